// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// withOutput redirects the print helpers for the duration of a test and
// pins the personality level.
func withOutput(t *testing.T, level PersonalityLevel) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	orig := GetPersonality()
	SetPersonalityLevel(level)
	t.Cleanup(func() {
		SetOutput(nil, nil)
		SetPersonality(orig)
	})
	return &out, &errOut
}

func TestSuccess_MachineMode(t *testing.T) {
	out, _ := withOutput(t, PersonalityMachine)

	Success("record saved")

	assert.Equal(t, "OK: record saved\n", out.String())
}

func TestWarningAndError_MachineModeGoToStderr(t *testing.T) {
	out, errOut := withOutput(t, PersonalityMachine)

	Warning("cycle list may be stale")
	Error("backend unreachable")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "WARN: cycle list may be stale")
	assert.Contains(t, errOut.String(), "ERROR: backend unreachable")
}

func TestTitleAndMuted_SilentInMachineMode(t *testing.T) {
	out, _ := withOutput(t, PersonalityMachine)

	Title("Funglus Lab")
	Muted("hint")

	assert.Empty(t, out.String())
}

func TestSuccess_FullModeIncludesIcon(t *testing.T) {
	out, _ := withOutput(t, PersonalityFull)

	Success("done")

	assert.Contains(t, out.String(), string(IconSuccess))
	assert.Contains(t, out.String(), "done")
}

func TestKeyValue(t *testing.T) {
	tests := []struct {
		name  string
		level PersonalityLevel
		want  string
	}{
		{"machine", PersonalityMachine, "Cycle\tC2025-01\n"},
		{"minimal", PersonalityMinimal, "C2025-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := withOutput(t, tt.level)
			KeyValue("Cycle", "C2025-01")
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestSummary_MachineMode(t *testing.T) {
	out, _ := withOutput(t, PersonalityMachine)

	Summary("4", "C2025-01")

	assert.Equal(t, "SUMMARY: rows=4 cycle=C2025-01\n", out.String())
}

func TestIcon_RenderKeepsGlyph(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow} {
		assert.True(t, strings.Contains(icon.Render(), string(icon)), "icon %q lost its glyph", icon)
	}
}

func TestSetOutput_NilRestoresProcessStreams(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, &buf)
	SetOutput(nil, nil)

	assert.Equal(t, io.Writer(os.Stdout), Stdout())
	assert.Equal(t, io.Writer(os.Stderr), Stderr())
}
