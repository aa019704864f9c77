// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func init() {
	Notify = io.Discard
}

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIURL, EnvPersonality, EnvLogLevel, EnvCycle, EnvTraces, EnvMetrics} {
		t.Setenv(k, "")
	}
}

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "funglus-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, ".funglus", "funglus.yaml")

	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	var cfg FunglusConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8000/api/v1" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.CatalogLimit != 1000 {
		t.Errorf("API.CatalogLimit = %d, want 1000", cfg.API.CatalogLimit)
	}
	if cfg.UI.FeedbackTTL != 3*time.Second {
		t.Errorf("UI.FeedbackTTL = %v, want 3s", cfg.UI.FeedbackTTL)
	}
	mp, ok := cfg.Stages["materia_prima"]
	if !ok || mp.ResetOriginOnSample == nil || !*mp.ResetOriginOnSample {
		t.Errorf("materia_prima should reset the origin on sample change, got %+v", mp)
	}
}

func TestLoadFrom_FirstRunWritesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "funglus.yaml")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if cfg.UI.Personality != "full" || cfg.Logging.Level != "warn" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "funglus.yaml")
	body := "api:\n  base_url: http://lab.local:9000/api/v1\nstages:\n  gubys:\n    reset_origin_on_sample: true\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if cfg.API.BaseURL != "http://lab.local:9000/api/v1" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.CatalogLimit != 1000 {
		t.Errorf("CatalogLimit lost its default: %d", cfg.API.CatalogLimit)
	}
	overrides := cfg.ResetOverrides()
	if !overrides["gubys"] {
		t.Errorf("gubys override missing: %v", overrides)
	}
	if !overrides["materia_prima"] {
		t.Errorf("materia_prima default missing: %v", overrides)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIURL, "http://10.0.0.5:8000/api/v1/")
	t.Setenv(EnvPersonality, "MACHINE")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvCycle, "C2025-02")
	path := filepath.Join(t.TempDir(), "funglus.yaml")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.5:8000/api/v1" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.UI.Personality != "machine" {
		t.Errorf("Personality = %q", cfg.UI.Personality)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
	if cfg.Session.DefaultCycle != "C2025-02" {
		t.Errorf("DefaultCycle = %q", cfg.Session.DefaultCycle)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad url", "api:\n  base_url: not a url\n"},
		{"bad personality", "ui:\n  personality: loud\n"},
		{"bad level", "logging:\n  level: trace\n"},
		{"bad exporter", "telemetry:\n  trace_exporter: jaeger\n"},
		{"zero catalog limit", "api:\n  catalog_limit: 0\n"},
		{"broken yaml", "api: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "funglus.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(path); err == nil {
				t.Errorf("LoadFrom() accepted %q", tt.body)
			}
		})
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("DefaultConfig() does not validate: %v", err)
	}
}
