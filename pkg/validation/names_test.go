// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"
)

func TestValidateCycleName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "C2025-01", false},
		{"spaces and parens", "Ciclo 12 (Invierno)", false},
		{"accented", "Ciclo Año Nuevo", false},
		{"padded", "  C1  ", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"slash", "C1/../C2", true},
		{"query", "C1?x=1", true},
		{"leading dot", ".hidden", true},
		{"too long", strings.Repeat("a", MaxNameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCycleName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCycleName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeCycleName(t *testing.T) {
	got, err := SanitizeCycleName("  C2025-01 ")
	if err != nil {
		t.Fatalf("SanitizeCycleName() error = %v", err)
	}
	if got != "C2025-01" {
		t.Errorf("SanitizeCycleName() = %q, want %q", got, "C2025-01")
	}

	if _, err := SanitizeCycleName("a/b"); err == nil {
		t.Error("SanitizeCycleName(a/b) should fail")
	}
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"  Lote N-01 ", "Lote N-01", false},
		{"Lote/2", "Lote/2", false},
		{"", "", true},
		{"bad\x07bell", "", true},
		{strings.Repeat("x", MaxNameLength+1), "", true},
	}

	for _, tt := range tests {
		got, err := SanitizeLabel("batch label", tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("SanitizeLabel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("SanitizeLabel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	_, err := SanitizeLabel("sample name", "")
	if err == nil || !strings.Contains(err.Error(), "sample name") {
		t.Errorf("error should name the field, got %v", err)
	}
}

func TestValidateAnalysisType(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"nitrogeno", "nitrogeno", false},
		{" Cenizas ", "cenizas", false},
		{"fosforo", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ValidateAnalysisType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateAnalysisType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ValidateAnalysisType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
