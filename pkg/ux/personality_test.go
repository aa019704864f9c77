// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePersonalityLevel(t *testing.T) {
	tests := []struct {
		in   string
		want PersonalityLevel
	}{
		{"full", PersonalityFull},
		{"F", PersonalityFull},
		{"standard", PersonalityStandard},
		{"std", PersonalityStandard},
		{" minimal ", PersonalityMinimal},
		{"machine", PersonalityMachine},
		{"quiet", PersonalityMachine},
		{"", PersonalityStandard},
		{"loud", PersonalityStandard},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePersonalityLevel(tt.in))
		})
	}
}

func TestSetPersonalityLevel_HintsOnlyInFull(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	SetPersonalityLevel(PersonalityFull)
	assert.True(t, GetPersonality().ShowHints)

	SetPersonalityLevel(PersonalityMinimal)
	assert.False(t, GetPersonality().ShowHints)
	assert.Equal(t, PersonalityMinimal, GetPersonality().Level)
}

func TestInitPersonality_EnvWins(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	t.Setenv(PersonalityEnv, "minimal")
	InitPersonality("full")

	assert.Equal(t, PersonalityMinimal, GetPersonality().Level)
}

func TestInitPersonality_NonTerminalIsMachine(t *testing.T) {
	orig := GetPersonality()
	defer SetPersonality(orig)

	if isTerminal() {
		t.Skip("stdout is a terminal")
	}
	t.Setenv(PersonalityEnv, "")
	InitPersonality("full")

	assert.Equal(t, PersonalityMachine, GetPersonality().Level)
	assert.False(t, IsInteractive())
	assert.False(t, ShouldShowProgress())
}

func TestDefaultPersonality(t *testing.T) {
	p := DefaultPersonality()
	assert.Equal(t, PersonalityFull, p.Level)
	assert.True(t, p.ShowHints)
}
