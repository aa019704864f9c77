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
	"strings"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
)

// newRootCmd builds the command tree around a fresh app.
//
// # Description
//
// The app is filled in by PersistentPreRunE, after flags are parsed, so
// every subcommand sees the effective config. The caller must call
// app.close once the command returns.
//
// # Outputs
//
//   - *cobra.Command: The root command.
//   - *app: Shared state of the command tree.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "funglus",
		Short: "Data entry client for the Funglus laboratory backend",
		Long: `Funglus records laboratory data per cycle, stage, sample and origin:
general measurements, stage tables, nitrogen and ash analyses.
All storage and calculations live in the backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ux.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
			return a.setup(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Config file (default ~/.funglus/funglus.yaml)")
	pf.StringVar(&a.flags.apiURL, "api-url", "", "Backend base URL, e.g. http://localhost:8000/api/v1")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.flags.personality, "personality", "", "Output style: full, standard, minimal, machine")
	pf.BoolVarP(&a.flags.yes, "yes", "y", false, "Answer yes to confirmation prompts")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(cmd.CommandPath(), "%v", err)
	})

	root.AddCommand(
		newCycleCmd(a),
		newCatalogCmd(a),
		newEntryCmd(a),
		newStageCmd(a),
		newSummaryCmd(a),
		newBatchCmd(a),
		newLabCmd(a),
		newSchemaCmd(),
		newConfigCmd(a),
	)
	return root, a
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(cmd.CommandPath(), "%v", err)
		}
		return nil
	}
}

// minArgs is cobra.MinimumNArgs reporting a usage error.
func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return usageError(cmd.CommandPath(), "%v", err)
		}
		return nil
	}
}

// execute runs root and turns the outcome into a process exit code,
// printing any error through the personality-aware helpers.
func execute(ctx context.Context, root *cobra.Command) int {
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	path := "funglus"
	if cmd != nil {
		path = cmd.CommandPath()
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		err = usageError(path, "%v", err)
	}
	cmdErr := WrapCommandError(err, path)
	report(cmdErr)
	return cmdErr.ExitCode
}

// report prints a failed command. Backend errors include the request id
// and remediation.
func report(cmdErr *CommandError) {
	if cmdErr.ExitCode == ExitCancelled {
		ux.Warning("Operación cancelada.")
		return
	}
	var apiErr *labapi.APIError
	switch {
	case errors.As(cmdErr, &apiErr) && apiErr.Type != labapi.ErrorValidation:
		ux.Error(apiErr.FullError())
	case cmdErr.Wrapped != nil:
		ux.Error(cmdErr.Wrapped.Error())
		if cmdErr.HasHint() {
			ux.Muted(cmdErr.Hint)
		}
	default:
		ux.Error(cmdErr.Error())
	}
}
