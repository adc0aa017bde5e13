package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"coach": {"gemini", "openai", "mock"},
	"stt":   {"mock"},
}

// apiKeyEnv maps coach provider names to the environment variable consulted
// when the YAML entry carries no api_key.
var apiKeyEnv = map[string]string{
	"gemini": "GEMINI_API_KEY",
	"openai": "OPENAI_API_KEY",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills API keys from the
// environment where absent, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty coach API keys from the conventional environment
// variables. The YAML value always wins when present.
func applyEnv(cfg *Config) {
	for name, entry := range cfg.Coach.Entries {
		if entry.APIKey != "" {
			continue
		}
		env, ok := apiKeyEnv[name]
		if !ok {
			continue
		}
		if v := os.Getenv(env); v != "" {
			entry.APIKey = v
			cfg.Coach.Entries[name] = entry
		}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Rubric
	if cfg.Rubric.PassingThreshold < 0 || cfg.Rubric.PassingThreshold > 100 {
		errs = append(errs, fmt.Errorf("rubric.passing_threshold %.2f is out of range [0, 100]", cfg.Rubric.PassingThreshold))
	}
	if cfg.Rubric.Path == "" {
		slog.Warn("rubric.path is empty; every review will score 0 against an empty rubric")
	}

	// Coach provider names, including fallbacks.
	validateProviderName("coach", cfg.Coach.Provider)
	for _, name := range cfg.Coach.Fallbacks {
		validateProviderName("coach", name)
	}
	validateProviderName("stt", cfg.STT.Name)

	// Coach availability warnings
	if cfg.Coach.Provider == "" {
		slog.Warn("coach.provider is empty; reviews will carry no AI feedback")
	}

	// The primary and each fallback need an entry so they can be constructed.
	for _, name := range append([]string{cfg.Coach.Provider}, cfg.Coach.Fallbacks...) {
		if name == "" || name == "mock" {
			continue
		}
		entry, ok := cfg.Coach.Entries[name]
		if !ok {
			errs = append(errs, fmt.Errorf("coach.entries is missing an entry for provider %q", name))
			continue
		}
		if entry.APIKey == "" {
			env := apiKeyEnv[name]
			errs = append(errs, fmt.Errorf("coach.entries.%s.api_key is empty and %s is not set", name, env))
		}
	}

	// Duplicate fallback detection, the primary counted too.
	seen := map[string]bool{cfg.Coach.Provider: true}
	for _, name := range cfg.Coach.Fallbacks {
		if seen[name] {
			errs = append(errs, fmt.Errorf("coach.fallbacks duplicates provider %q", name))
		}
		seen[name] = true
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
