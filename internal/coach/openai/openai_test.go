package openai

import (
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Error("New with empty key succeeded, want error")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("New with empty model succeeded, want error")
	}
}

func TestNew_Name(t *testing.T) {
	t.Parallel()

	c, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Name() != "openai" {
		t.Errorf("Name = %q, want openai", c.Name())
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	cfg := &config{}
	WithBaseURL("https://proxy.example.com/v1")(cfg)
	WithTimeout(5 * time.Second)(cfg)

	if cfg.baseURL != "https://proxy.example.com/v1" {
		t.Errorf("baseURL = %q", cfg.baseURL)
	}
	if cfg.timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.timeout)
	}
}
