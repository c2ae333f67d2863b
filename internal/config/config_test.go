package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != 8760 {
		t.Errorf("Port = %d, want 8760", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.GateThreshold != 0.7 {
		t.Errorf("GateThreshold = %f, want 0.7", cfg.GateThreshold)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ATLAS_PORT", "9000")
	t.Setenv("ATLAS_GATE_THRESHOLD", "0.85")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.GateThreshold != 0.85 {
		t.Errorf("GateThreshold = %f, want 0.85", cfg.GateThreshold)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("ATLAS_PORT", "not-a-port")
	t.Setenv("ATLAS_GATE_THRESHOLD", "high")

	cfg := Load()
	if cfg.Port != 8760 {
		t.Errorf("Port = %d, want fallback 8760", cfg.Port)
	}
	if cfg.GateThreshold != 0.7 {
		t.Errorf("GateThreshold = %f, want fallback 0.7", cfg.GateThreshold)
	}
}
