package config_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hotelcx/callaudit/internal/coach"
	coachmock "github.com/hotelcx/callaudit/internal/coach/mock"
	"github.com/hotelcx/callaudit/internal/config"
	"github.com/hotelcx/callaudit/internal/stt"
	sttmock "github.com/hotelcx/callaudit/internal/stt/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

rubric:
  path: qa_criteria.json
  passing_threshold: 90

coach:
  provider: gemini
  fallbacks:
    - openai
  entries:
    gemini:
      api_key: gm-test
      model: models/gemini-2.5-flash
    openai:
      api_key: sk-test
      model: gpt-4o-mini

stt:
  name: mock
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.Rubric.Path != "qa_criteria.json" {
		t.Errorf("rubric.path: got %q", cfg.Rubric.Path)
	}
	if cfg.Rubric.PassingThreshold != 90 {
		t.Errorf("rubric.passing_threshold: got %.2f, want 90", cfg.Rubric.PassingThreshold)
	}
	if cfg.Coach.Provider != "gemini" {
		t.Errorf("coach.provider: got %q, want %q", cfg.Coach.Provider, "gemini")
	}
	if len(cfg.Coach.Fallbacks) != 1 || cfg.Coach.Fallbacks[0] != "openai" {
		t.Errorf("coach.fallbacks: got %v, want [openai]", cfg.Coach.Fallbacks)
	}
	if got := cfg.Coach.Entries["openai"].Model; got != "gpt-4o-mini" {
		t.Errorf("coach.entries.openai.model: got %q", got)
	}
	if cfg.STT.Name != "mock" {
		t.Errorf("stt.name: got %q, want %q", cfg.STT.Name, "mock")
	}
}

func TestLoadFromReader_EmptyIsValid(t *testing.T) {
	// An empty config should succeed (no required top-level fields).
	_, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yaml := `
server:
  listen_adr: ":8080"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestValidate_InvalidLogLevel(t *testing.T) {
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log_level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	yaml := `
rubric:
  passing_threshold: 150
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range passing_threshold, got nil")
	}
	if !strings.Contains(err.Error(), "passing_threshold") {
		t.Errorf("error should mention passing_threshold, got: %v", err)
	}
}

func TestValidate_CoachMissingEntry(t *testing.T) {
	yaml := `
coach:
  provider: gemini
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for coach provider without entry, got nil")
	}
	if !strings.Contains(err.Error(), "gemini") {
		t.Errorf("error should mention the provider, got: %v", err)
	}
}

func TestValidate_MockCoachNeedsNoEntry(t *testing.T) {
	yaml := `
coach:
  provider: mock
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("unexpected error for mock coach: %v", err)
	}
}

func TestValidate_DuplicateFallback(t *testing.T) {
	yaml := `
coach:
  provider: mock
  fallbacks:
    - mock
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate fallback, got nil")
	}
	if !strings.Contains(err.Error(), "mock") {
		t.Errorf("error should mention the duplicated provider, got: %v", err)
	}
}

func TestLoadFromReader_APIKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gm-from-env")
	yaml := `
coach:
  provider: gemini
  entries:
    gemini:
      model: models/gemini-2.5-flash
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Coach.Entries["gemini"].APIKey; got != "gm-from-env" {
		t.Errorf("api_key: got %q, want %q", got, "gm-from-env")
	}
}

func TestLoadFromReader_YAMLKeyWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	yaml := `
coach:
  provider: openai
  entries:
    openai:
      api_key: sk-from-yaml
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Coach.Entries["openai"].APIKey; got != "sk-from-yaml" {
		t.Errorf("api_key: got %q, want %q", got, "sk-from-yaml")
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_CreateCoach(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	reg.RegisterCoach("mock", func(config.ProviderEntry) (coach.Provider, error) {
		return &coachmock.Provider{}, nil
	})

	p, err := reg.CreateCoach("mock", config.ProviderEntry{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Analyze(context.Background(), "transcript"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
}

func TestRegistry_CreateCoach_NotRegistered(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	_, err := reg.CreateCoach("gemini", config.ProviderEntry{})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_CreateSTT(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	reg.RegisterSTT("mock", func(config.ProviderEntry) (stt.Transcriber, error) {
		return &sttmock.Transcriber{Transcript: "hello"}, nil
	})

	tr, err := reg.CreateSTT(config.ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := tr.Transcribe(context.Background(), stt.Request{Audio: strings.NewReader("pcm")})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello" {
		t.Errorf("transcript: got %q, want %q", got, "hello")
	}
}

func TestRegistry_CreateSTT_NotRegistered(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	_, err := reg.CreateSTT(config.ProviderEntry{Name: "deepgram"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}
