// Package config provides the configuration schema, loader, file watcher,
// and provider registry for the callaudit review server.
package config

// LogLevel controls log verbosity for the callaudit server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for callaudit.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig `yaml:"server"`
	Rubric RubricConfig `yaml:"rubric"`
	Coach  CoachConfig  `yaml:"coach"`
	STT    STTConfig    `yaml:"stt"`
}

// ServerConfig holds network and logging settings for the callaudit server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// RubricConfig locates the scoring rubric and sets the pass mark.
type RubricConfig struct {
	// Path is the rubric JSON file. A missing file yields an empty rubric,
	// not a startup failure.
	Path string `yaml:"path"`

	// PassingThreshold is the minimum score percentage for a passing
	// review. 0 means the default of 90.
	PassingThreshold float64 `yaml:"passing_threshold"`
}

// CoachConfig selects which AI coaching backends to use.
type CoachConfig struct {
	// Provider selects the primary coaching backend registered in the
	// [Registry] (e.g., "gemini"). Empty disables coaching.
	Provider string `yaml:"provider"`

	// Fallbacks lists backends tried in order when the primary fails.
	Fallbacks []string `yaml:"fallbacks"`

	// Entries holds per-backend settings keyed by provider name.
	Entries map[string]ProviderEntry `yaml:"entries"`
}

// STTConfig selects the speech-to-text backend for audio review requests.
type STTConfig struct {
	ProviderEntry `yaml:",inline"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field (or the map key for coach entries) is used to look
// up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "gemini", "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	// When empty, the loader falls back to the provider's conventional
	// environment variable (GEMINI_API_KEY, OPENAI_API_KEY).
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}
