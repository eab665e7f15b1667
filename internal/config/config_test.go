package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.Storm.TotalProbes != 40 {
		t.Errorf("Storm.TotalProbes = %d, want 40", cfg.Storm.TotalProbes)
	}
	if cfg.Storm.MinJitterMs != 10 || cfg.Storm.MaxJitterMs != 80 {
		t.Errorf("jitter window = [%d,%d], want [10,80]", cfg.Storm.MinJitterMs, cfg.Storm.MaxJitterMs)
	}
	if cfg.General.OutputRoot == "" {
		t.Error("OutputRoot should have a default")
	}
	if cfg.General.DryRun {
		t.Error("DryRun should be off by default")
	}
	if !cfg.Autostart.Cleanup {
		t.Error("autostart cleanup should be on by default")
	}
	if cfg.ClockSkew.AllowSet {
		t.Error("clock set must be blocked by default")
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing config should not error, got %v", err)
	}
	if cfg.Storm.TotalProbes != 40 {
		t.Errorf("TotalProbes = %d, want default 40", cfg.Storm.TotalProbes)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
[general]
output_root = "/test/telemetry"
continue_on_error = true

[storm]
total_probes = 12
workers = 2

[clock_skew]
allow_set = true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.OutputRoot != "/test/telemetry" {
		t.Errorf("OutputRoot = %q, want /test/telemetry", cfg.General.OutputRoot)
	}
	if !cfg.General.ContinueOnError {
		t.Error("ContinueOnError should be true")
	}
	if cfg.Storm.TotalProbes != 12 {
		t.Errorf("TotalProbes = %d, want 12", cfg.Storm.TotalProbes)
	}
	if cfg.Storm.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Storm.Workers)
	}
	// Unset sections keep their defaults
	if cfg.Storm.MaxJitterMs != 80 {
		t.Errorf("MaxJitterMs = %d, want default 80", cfg.Storm.MaxJitterMs)
	}
	if !cfg.ClockSkew.AllowSet {
		t.Error("AllowSet should be true from file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}

	cfg.General.OutputRoot = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty output root should not validate")
	}

	cfg = Default()
	cfg.Storm.TotalProbes = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero total_probes should not validate")
	}

	cfg = Default()
	cfg.Storm.MinJitterMs = 100
	cfg.Storm.MaxJitterMs = 10
	if err := cfg.Validate(); err == nil {
		t.Error("inverted jitter window should not validate")
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
