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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file is read.
const (
	EnvAPIURL      = "FUNGLUS_API_URL"
	EnvPersonality = "FUNGLUS_PERSONALITY"
	EnvLogLevel    = "FUNGLUS_LOG_LEVEL"
	EnvCycle       = "FUNGLUS_CYCLE"
	EnvTraces      = "OTEL_TRACES_EXPORTER"
	EnvMetrics     = "OTEL_METRICS_EXPORTER"
)

var (
	// Global is a singleton instance
	Global FunglusConfig
	once   sync.Once

	// Notify receives the first-run message. Tests silence it.
	Notify io.Writer = os.Stdout

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Load ensures the config is loaded into the Global variable
func Load() error {
	var err error
	once.Do(func() {
		err = loadInternal()
	})
	return err
}

// DefaultPath returns ~/.funglus/funglus.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".funglus", "funglus.yaml"), nil
}

func loadInternal() error {
	configPath, err := DefaultPath()
	if err != nil {
		return err
	}
	cfg, err := LoadFrom(configPath)
	if err != nil {
		return err
	}
	Global = cfg
	return nil
}

// LoadFrom reads, overrides and validates the config at path.
//
// # Description
//
// A missing file is created with DefaultConfig first. Keys absent from the
// file keep their default values. Environment overrides are applied after
// parsing and before validation.
//
// # Inputs
//
//   - path: Location of the YAML file.
//
// # Outputs
//
//   - FunglusConfig: The effective configuration.
//   - error: Read, parse or validation failure.
func LoadFrom(path string) (FunglusConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(Notify, " First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return FunglusConfig{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FunglusConfig{}, fmt.Errorf("failed to read the config file %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FunglusConfig{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	applyEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return FunglusConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg FunglusConfig) error {
	return validate.Struct(cfg)
}

func applyEnv(cfg *FunglusConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv(EnvPersonality)); v != "" {
		cfg.UI.Personality = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCycle)); v != "" {
		cfg.Session.DefaultCycle = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTraces)); v != "" {
		cfg.Telemetry.TraceExporter = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMetrics)); v != "" {
		cfg.Telemetry.MetricExporter = strings.ToLower(v)
	}
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	defaultCfg := DefaultConfig()
	data, err := yaml.Marshal(defaultCfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
