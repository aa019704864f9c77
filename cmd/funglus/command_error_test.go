// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/recordform"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
	"github.com/jinterlante1206/FunglusLab/pkg/summary"
)

func TestWrapCommandError_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantHint string
	}{
		{"context cancelled", fmt.Errorf("load: %w", context.Canceled), ExitCancelled, ""},
		{"form aborted", huh.ErrUserAborted, ExitCancelled, ""},
		{"delete declined", summary.ErrDeleteCancelled, ExitCancelled, ""},
		{"api cancelled", &labapi.APIError{Type: labapi.ErrorCancelled, Message: "cancelled"}, ExitCancelled, ""},
		{"local validation", labapi.NewValidationError("ciclo %q no existe", "X"), ExitValidation, ""},
		{"no changes", recordform.ErrNoChanges, ExitValidation, ""},
		{"bad value", fmt.Errorf("%w: ph", recordform.ErrInvalidValue), ExitValidation, ""},
		{"unknown stage", fmt.Errorf("%w: %q", selector.ErrUnknownStage, "x"), ExitValidation, ""},
		{"missing keys", selector.ErrIncompleteKeys, ExitValidation, ""},
		{
			"backend status",
			&labapi.APIError{Type: labapi.ErrorStatus, StatusCode: 404, Detail: "Ciclo no encontrado", Remediation: "check the cycle id"},
			ExitBackend, "check the cycle id",
		},
		{"plain error", errors.New("boom"), ExitGeneric, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmdErr := WrapCommandError(tt.err, "funglus test")

			assert.Equal(t, tt.wantCode, cmdErr.ExitCode)
			assert.Equal(t, tt.wantHint, cmdErr.Hint)
			assert.ErrorIs(t, cmdErr, tt.err)
		})
	}
}

func TestWrapCommandError_KeepsExisting(t *testing.T) {
	inner := usageError("funglus entry set", "bad assignment %q", "x")
	wrapped := fmt.Errorf("confirm delete: %w", inner)

	got := WrapCommandError(wrapped, "funglus")

	assert.Same(t, inner, got)
	assert.Equal(t, ExitUsage, got.ExitCode)
	assert.True(t, got.HasHint())
}

func TestWrapCommandError_Nil(t *testing.T) {
	assert.Nil(t, WrapCommandError(nil, "funglus"))
	assert.Equal(t, 0, ExitCodeFor(nil))
}

func TestCommandError_Message(t *testing.T) {
	err := NewCommandError("funglus cycle delete", ExitBackend, "  retry later  ", errors.New("HTTP 500"))

	assert.Equal(t, "funglus cycle delete (exit 3): HTTP 500", err.Error())
	assert.Equal(t, "retry later", err.Hint)
}
