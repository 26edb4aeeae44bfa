package config

import (
	"testing"
)

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() = nil error, want missing GEMINI_API_KEY error")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.GenAI.Model != "gemini-1.5-flash" {
		t.Errorf("Model = %q, want gemini-1.5-flash", cfg.GenAI.Model)
	}
	if cfg.Content.Retries != 3 {
		t.Errorf("Retries = %d, want 3", cfg.Content.Retries)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")
	t.Setenv("EDBOT_PORT", "9100")
	t.Setenv("CONTENT_TIMEOUT_SECS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GenAI.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q, want override", cfg.GenAI.Model)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Content.Timeout != 2.5 {
		t.Errorf("Timeout = %v, want 2.5", cfg.Content.Timeout)
	}
}

func TestLoad_MalformedNumberKeepsDefault(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("EDBOT_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d, want default 8000", cfg.Server.Port)
	}
}
