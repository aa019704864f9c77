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
	"time"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
)

type FunglusConfig struct {
	// API: where the laboratory backend lives and how hard to hit it
	API APIConfig `yaml:"api"`

	// UI: output personality and how long messages stay on screen
	UI UIConfig `yaml:"ui"`

	// Logging: level and optional JSON file log
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry: OpenTelemetry exporters, "none" by default
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Stages: per-stage overrides keyed by stage key, e.g. "materia_prima"
	Stages map[string]StageConfig `yaml:"stages,omitempty" validate:"omitempty,dive"`

	// Session: defaults for the interactive session
	Session SessionConfig `yaml:"session"`
}

type APIConfig struct {
	BaseURL      string        `yaml:"base_url" validate:"required,url"`       // e.g. http://localhost:8000/api/v1
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`               // 0 = no timeout
	CatalogLimit int           `yaml:"catalog_limit" validate:"gte=1,lte=100000"` // ?limit= on catalog lists
	MaxRPS       float64       `yaml:"max_rps" validate:"gte=0"`               // 0 = unlimited
}

type UIConfig struct {
	Personality string        `yaml:"personality" validate:"oneof=full standard minimal machine"`
	FeedbackTTL time.Duration `yaml:"feedback_ttl" validate:"gte=0"`
	ErrorTTL    time.Duration `yaml:"error_ttl" validate:"gte=0"`
	SelectorTTL time.Duration `yaml:"selector_ttl" validate:"gte=0"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `yaml:"otlp_endpoint,omitempty"`
}

type StageConfig struct {
	ResetOriginOnSample *bool `yaml:"reset_origin_on_sample,omitempty"`
}

type SessionConfig struct {
	DefaultCycle string `yaml:"default_cycle"`
}

// ResetOverrides returns the reset_origin_on_sample values that are set,
// in the shape selector.WithResetOverrides takes.
func (c FunglusConfig) ResetOverrides() map[string]bool {
	out := make(map[string]bool)
	for key, st := range c.Stages {
		if st.ResetOriginOnSample != nil {
			out[selector.StageKey(key)] = *st.ResetOriginOnSample
		}
	}
	return out
}

func DefaultConfig() FunglusConfig {
	stages := make(map[string]StageConfig)
	for _, def := range selector.DefaultStages() {
		reset := def.ResetOriginOnSample
		stages[def.Key] = StageConfig{ResetOriginOnSample: &reset}
	}
	return FunglusConfig{
		API: APIConfig{
			BaseURL:      labapi.DefaultBaseURL,
			Timeout:      0,
			CatalogLimit: 1000,
			MaxRPS:       0,
		},
		UI: UIConfig{
			Personality: "full",
			FeedbackTTL: 3 * time.Second,
			ErrorTTL:    5 * time.Second,
			SelectorTTL: 4 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
		},
		Stages:  stages,
		Session: SessionConfig{},
	}
}
