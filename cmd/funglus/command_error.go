// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/recordform"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
	"github.com/jinterlante1206/FunglusLab/pkg/summary"
)

// Process exit codes.
const (
	ExitGeneric    = 1
	ExitUsage      = 2
	ExitBackend    = 3
	ExitValidation = 4
	ExitCancelled  = 130
)

// CommandError is a command failure with the exit code it maps to.
//
// # Description
//
// Carries the command path that failed, the process exit code, an optional
// hint for the operator, and the underlying error. Implements error and
// supports unwrapping.
//
// # Example
//
//	err := NewCommandError("funglus cycle delete", ExitBackend, "", apiErr)
//	fmt.Println(err.Error()) // "funglus cycle delete (exit 3): HTTP 409: ..."
type CommandError struct {
	// Command is the command path that failed.
	Command string

	// ExitCode is the process exit code.
	ExitCode int

	// Hint is an optional remediation line.
	Hint string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error returns a formatted error message.
func (e *CommandError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s (exit %d): %v", e.Command, e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("%s (exit %d)", e.Command, e.ExitCode)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}

// HasHint returns true if a remediation hint is available.
func (e *CommandError) HasHint() bool {
	return e.Hint != ""
}

// NewCommandError creates a CommandError with full context.
//
// # Inputs
//
//   - cmd: The command path (e.g., "funglus entry set")
//   - exitCode: One of the Exit* constants
//   - hint: Remediation text (will be trimmed, may be empty)
//   - wrapped: Underlying error (may be nil)
//
// # Outputs
//
//   - *CommandError: New error with full context
func NewCommandError(cmd string, exitCode int, hint string, wrapped error) *CommandError {
	return &CommandError{
		Command:  cmd,
		ExitCode: exitCode,
		Hint:     strings.TrimSpace(hint),
		Wrapped:  wrapped,
	}
}

// WrapCommandError classifies err and wraps it into a CommandError.
//
// # Description
//
// An existing *CommandError is returned as-is. Otherwise the exit code is
// derived from the error chain:
//
//   - context.Canceled, huh.ErrUserAborted, summary.ErrDeleteCancelled: 130
//   - labapi validation errors and local input errors: 4
//   - any other labapi error (connection, status, decode): 3
//   - everything else: 1
//
// # Inputs
//
//   - err: Error to wrap (nil returns nil)
//   - cmd: Command path for context
//
// # Outputs
//
//   - *CommandError: Wrapped error
func WrapCommandError(err error, cmd string) *CommandError {
	if err == nil {
		return nil
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr
	}

	code, hint := classify(err)
	return NewCommandError(cmd, code, hint, err)
}

func classify(err error) (int, string) {
	if errors.Is(err, context.Canceled) || errors.Is(err, huh.ErrUserAborted) ||
		errors.Is(err, summary.ErrDeleteCancelled) || labapi.IsType(err, labapi.ErrorCancelled) {
		return ExitCancelled, ""
	}
	if isInputError(err) {
		return ExitValidation, ""
	}
	var apiErr *labapi.APIError
	if errors.As(err, &apiErr) {
		return ExitBackend, apiErr.Remediation
	}
	return ExitGeneric, ""
}

func isInputError(err error) bool {
	if labapi.IsType(err, labapi.ErrorValidation) {
		return true
	}
	for _, target := range []error{
		recordform.ErrNoChanges,
		recordform.ErrUnknownField,
		recordform.ErrReadOnly,
		recordform.ErrInvalidValue,
		selector.ErrUnknownStage,
		selector.ErrIncompleteKeys,
		selector.ErrInvalidOption,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// usageError reports bad flags or arguments detected by a command.
func usageError(cmd, format string, args ...any) *CommandError {
	return NewCommandError(cmd, ExitUsage, "run with --help for usage", fmt.Errorf(format, args...))
}

// ExitCodeFor returns the process exit code for err. Nil maps to 0.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	code, _ := classify(err)
	return code
}
