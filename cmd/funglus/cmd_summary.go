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
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/summary"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
)

func newSummaryCmd(a *app) *cobra.Command {
	var interactive bool
	summaryCmd := &cobra.Command{
		Use:     "summary [CYCLE]",
		Aliases: []string{"resumen"},
		Short:   "Show every general data record of a cycle",
		Long: `Prints the summary matrix of a cycle: one row per stage, sample and origin
with the metadata fields and the computed results. With --interactive the
rows can be browsed and deleted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cycle, err := a.knownCycle(cmd.Context(), firstArg(args))
			if err != nil {
				return err
			}
			view := a.newSummaryView(cmd.CommandPath())
			if interactive {
				if !ux.IsInteractive() {
					return usageError(cmd.CommandPath(), "--interactive needs a terminal")
				}
				return a.browseSummary(cmd.Context(), view, cycle)
			}
			if _, err := view.Load(cmd.Context(), cycle.ID); err != nil {
				return err
			}
			ux.Title(fmt.Sprintf("Resumen del ciclo %s", cycle.Name))
			ux.PrintTable(view.Headers(), view.Cells(), "No hay registros para este ciclo.")
			ux.Summary(strconv.Itoa(len(view.Rows())), cycle.Name)
			return nil
		},
	}
	summaryCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Browse the rows and delete with d")

	var del keyFlags
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete one summary row and show the remaining rows",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, tuple, err := a.generalKeys(cmd.Context(), del)
			if err != nil {
				return err
			}
			view := a.newSummaryView(cmd.CommandPath())
			if _, err := view.Load(cmd.Context(), keys.CycleID); err != nil {
				return err
			}
			if err := view.DeleteRow(cmd.Context(), keys); err != nil {
				return err
			}
			view.Notice().Print()
			ux.PrintTable(view.Headers(), view.Cells(), "No quedan registros en este ciclo.")
			ux.Summary(strconv.Itoa(len(view.Rows())), tuple.Cycle.Name)
			return nil
		},
	}
	del.register(deleteCmd)

	summaryCmd.AddCommand(deleteCmd)
	return summaryCmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// knownCycle resolves a cycle that must exist in the catalog.
func (a *app) knownCycle(ctx context.Context, explicit string) (labapi.Cycle, error) {
	name := a.cycleName(explicit)
	if name == "" {
		return labapi.Cycle{}, labapi.NewValidationError("no cycle given and session.default_cycle is empty")
	}
	cycle, known := a.registry.SelectActive(ctx, name)
	if !known {
		return labapi.Cycle{}, labapi.NewValidationError("ciclo %q no existe", name)
	}
	return cycle, nil
}

// newSummaryView builds a view whose deletes go through ask.
func (a *app) newSummaryView(cmdPath string) *summary.View {
	confirm := summary.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		return a.ask(ctx, cmdPath, prompt)
	})
	return summary.New(a.client, confirm,
		summary.WithLogger(a.logger),
		summary.WithMessageTTL(a.cfg.UI.ErrorTTL),
	)
}

// browseSummary alternates between the table browser and the actions it
// requests until the user quits.
func (a *app) browseSummary(ctx context.Context, view *summary.View, cycle labapi.Cycle) error {
	if _, err := view.Load(ctx, cycle.ID); err != nil {
		return err
	}
	title := fmt.Sprintf("Resumen del ciclo %s", cycle.Name)
	cursor := 0
	for {
		model := newSummaryModel(title, view.Headers(), view.Rows(), view.Notice().Render(), cursor)
		final, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
		if err != nil {
			return err
		}
		m, ok := final.(summaryModel)
		if !ok {
			return nil
		}
		cursor = m.table.Cursor()

		switch {
		case m.pending != nil:
			err := view.DeleteRow(ctx, *m.pending)
			if err != nil && !errors.Is(err, summary.ErrDeleteCancelled) {
				a.logger.Warn("summary delete failed", "error", err)
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
		case m.reload:
			if _, err := view.Load(ctx, cycle.ID); err != nil {
				a.logger.Warn("summary reload failed", "error", err)
			}
		default:
			return nil
		}
	}
}
