// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// NewSpinner Tests
// =============================================================================

func TestNewSpinner_Defaults(t *testing.T) {
	spin := NewSpinner("Loading cycles")
	if spin.message != "Loading cycles" {
		t.Errorf("expected message 'Loading cycles', got %q", spin.message)
	}
	if spin.spinType != SpinnerDots {
		t.Errorf("expected SpinnerDots, got %v", spin.spinType)
	}
	if spin.stop == nil || spin.done == nil {
		t.Error("channels should be initialized")
	}
}

func TestSpinner_WithType(t *testing.T) {
	spin := NewSpinner("x").WithType(SpinnerGlobe)
	if spin.spinType != SpinnerGlobe {
		t.Errorf("expected SpinnerGlobe, got %v", spin.spinType)
	}
}

// =============================================================================
// Start/Stop Tests
// =============================================================================

func TestSpinner_MachineModePrintsProgressOnce(t *testing.T) {
	_, errOut := withOutput(t, PersonalityMachine)

	spin := NewSpinner("Saving record")
	spin.Start()
	spin.Start()
	spin.Stop()
	spin.Stop()

	if got := errOut.String(); got != "PROGRESS: Saving record\n" {
		t.Errorf("unexpected progress output %q", got)
	}
}

func TestSpinner_AnimatesAndStopsCleanly(t *testing.T) {
	out, _ := withOutput(t, PersonalityFull)

	spin := NewSpinner("Loading").WithType(SpinnerLine)
	spin.Start()
	time.Sleep(250 * time.Millisecond)
	spin.UpdateMessage("Still loading")
	spin.Stop()

	if out.Len() == 0 {
		t.Error("expected spinner frames to be written")
	}
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	spin := NewSpinner("never started")
	spin.Stop()
}

func TestWithSpinner_ReturnsFnError(t *testing.T) {
	withOutput(t, PersonalityMachine)

	want := errors.New("boom")
	if err := WithSpinner("work", func() error { return want }); !errors.Is(err, want) {
		t.Errorf("WithSpinner() error = %v, want %v", err, want)
	}
	if err := WithSpinner("work", func() error { return nil }); err != nil {
		t.Errorf("WithSpinner() error = %v, want nil", err)
	}
}
