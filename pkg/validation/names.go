// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for user-typed identifiers.
//
// Cycle names travel inside URL paths of the stage-ledger endpoints
// (/laboratorio/{stage}/{ciclo}) and batch labels are shown in tables, so
// both are restricted to printable text without path separators.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxNameLength bounds catalog names, cycle names, and batch labels.
const MaxNameLength = 100

// cycleNamePattern matches cycle identifiers such as "C2025-01" or
// "Ciclo 12 (Invierno)". No slashes, no query characters.
var cycleNamePattern = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} ._()\-]*$`)

// AnalysisTypes lists the analysis kinds a processing batch may have.
var AnalysisTypes = []string{"nitrogeno", "cenizas"}

// ValidateCycleName checks a cycle name typed by the user.
//
// Valid names:
//   - 1-100 characters after trimming
//   - start with a letter or digit
//   - letters, digits, spaces, dots, underscores, hyphens, parentheses
//
// Example:
//
//	if err := validation.ValidateCycleName(name); err != nil {
//	    return fmt.Errorf("invalid cycle: %w", err)
//	}
func ValidateCycleName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("cycle name cannot be empty")
	}
	if len([]rune(name)) > MaxNameLength {
		return fmt.Errorf("cycle name too long: %d characters (max %d)", len([]rune(name)), MaxNameLength)
	}
	if !cycleNamePattern.MatchString(name) {
		return fmt.Errorf("invalid cycle name: %q (letters, digits, spaces, . _ - ( ) only)", name)
	}
	return nil
}

// SanitizeCycleName trims and validates a cycle name.
func SanitizeCycleName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := ValidateCycleName(name); err != nil {
		return "", err
	}
	return name, nil
}

// SanitizeLabel trims free text used for catalog names and batch labels and
// rejects control characters. what names the field in error messages.
func SanitizeLabel(what, label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("%s cannot be empty", what)
	}
	if len([]rune(label)) > MaxNameLength {
		return "", fmt.Errorf("%s too long: %d characters (max %d)", what, len([]rune(label)), MaxNameLength)
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%s contains control characters", what)
		}
	}
	return label, nil
}

// ValidateAnalysisType accepts "nitrogeno" or "cenizas" (case-insensitive)
// and returns the canonical lower-case form.
func ValidateAnalysisType(kind string) (string, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	for _, allowed := range AnalysisTypes {
		if k == allowed {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid analysis type %q (must be one of %s)", kind, strings.Join(AnalysisTypes, ", "))
}
