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

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jinterlante1206/FunglusLab/pkg/recordform"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
)

// entryFlags select the record an entry command works on.
type entryFlags struct {
	keyFlags
	general bool
}

func (f *entryFlags) register(cmd *cobra.Command) {
	f.keyFlags.register(cmd)
	cmd.Flags().BoolVar(&f.general, "general", false, "Use the general data table even for stages with their own table")
}

func newEntryCmd(a *app) *cobra.Command {
	entryCmd := &cobra.Command{
		Use:     "entry",
		Aliases: []string{"record"},
		Short:   "Show and edit the record of a cycle, stage, sample and origin",
		Long: `Records are fetched with get-or-create semantics: the first access to a
key creates an empty record. Stages with their own table (materia_prima,
gubys, formulacion) use it unless --general is given.`,
	}

	var show entryFlags
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a record, creating it if needed",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := a.openForm(cmd.Context(), show)
			if err != nil {
				return err
			}
			printRecord(form)
			return nil
		},
	}
	show.register(showCmd)

	var set entryFlags
	var preview bool
	setCmd := &cobra.Command{
		Use:   "set field=value...",
		Short: "Change fields of a record and show the recalculated values",
		Long: `Sets each field=value and submits only the changed fields. An empty value
clears the field. Numbers accept "," as decimal separator; dates are
YYYY-MM-DD. Computed fields are filled in by the backend.`,
		Example: `  funglus entry set --cycle C2025-01 --stage tamo_humedo --origin VOLTEO1 humedad_1_porc=60,5 humedad_2_porc=61.5`,
		Args:    minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments, err := parseAssignments(cmd.CommandPath(), args)
			if err != nil {
				return err
			}
			form, err := a.openForm(cmd.Context(), set)
			if err != nil {
				return err
			}
			if err := form.SetFields(assignments); err != nil {
				return err
			}
			if preview {
				printPreview(form)
				return nil
			}
			if _, err := form.Submit(cmd.Context()); err != nil {
				if errors.Is(err, recordform.ErrNoChanges) {
					ux.Info(form.Notice().Text())
					return nil
				}
				return err
			}
			form.Notice().Print()
			printRecord(form)
			return nil
		},
	}
	set.register(setCmd)
	setCmd.Flags().BoolVar(&preview, "preview", false, "Show the locally computed values without saving")

	var edit entryFlags
	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a record in an interactive form",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ux.IsInteractive() {
				return usageError(cmd.CommandPath(), "edit needs a terminal; use entry set instead")
			}
			form, err := a.openForm(cmd.Context(), edit)
			if err != nil {
				return err
			}
			return editRecord(cmd.Context(), form)
		},
	}
	edit.register(editCmd)

	var del keyFlags
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a general data record",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, tuple, err := a.generalKeys(cmd.Context(), del)
			if err != nil {
				return err
			}
			prompt := fmt.Sprintf("¿Eliminar el registro de %s (%s)? Esta acción no se puede deshacer.", tuple.Stage.Name, tuple)
			if err := a.confirmAction(cmd.Context(), cmd.CommandPath(), prompt); err != nil {
				return err
			}
			msg, err := a.client.DeleteEntry(cmd.Context(), keys)
			if err != nil {
				return err
			}
			ux.Success(messageOr(msg, "Registro eliminado."))
			return nil
		},
	}
	del.register(deleteCmd)

	entryCmd.AddCommand(showCmd, setCmd, editCmd, deleteCmd)
	return entryCmd
}

// openForm resolves the key flags and loads the record into a form.
func (a *app) openForm(ctx context.Context, f entryFlags) (*recordform.Form, error) {
	tuple, err := a.resolve(ctx, f.keyFlags)
	if err != nil {
		return nil, err
	}
	return a.loadForm(ctx, tuple, f.general)
}

func (a *app) loadForm(ctx context.Context, tuple selector.Tuple, general bool) (*recordform.Form, error) {
	if general {
		tuple.Ledger = ""
	}
	backend, schema := recordform.BackendFor(tuple, a.client, a.client)
	form := recordform.New(backend, schema,
		recordform.WithLogger(a.logger),
		recordform.WithMessageTTL(a.cfg.UI.FeedbackTTL),
	)
	if err := form.Load(ctx, tuple); err != nil {
		return nil, err
	}
	return form, nil
}

// printRecord lists every field of the loaded record, computed fields last.
func printRecord(form *recordform.Form) {
	schema := form.Schema()
	ux.Title(fmt.Sprintf("%s · %s", schema.Name, form.Tuple()))
	for _, fld := range schema.Editable() {
		ux.KeyValue(fld.Label, form.Display(fld.Key))
	}
	for _, fld := range schema.Derived() {
		ux.KeyValue(fld.Label, form.Display(fld.Key))
	}
}

// printPreview shows the locally computed values of the edit buffer.
func printPreview(form *recordform.Form) {
	values := form.Preview()
	ux.Title("Vista previa (no guardada)")
	for _, fld := range form.Schema().Derived() {
		v, ok := values[fld.Key]
		if !ok {
			continue
		}
		text := "-"
		if v != nil {
			text = strconv.FormatFloat(*v, 'f', fld.Precision, 64)
		}
		ux.KeyValue(fld.Label, text)
	}
}

// editRecord runs a huh form over the editable fields and submits the
// changes.
func editRecord(ctx context.Context, form *recordform.Form) error {
	schema := form.Schema()
	values := make(map[string]*string, len(schema.Fields))
	for _, fld := range schema.Editable() {
		v := form.Input(fld.Key)
		values[fld.Key] = &v
	}

	if err := huh.NewForm(huh.NewGroup(fieldInputs(schema, values)...).Title(form.Tuple().String())).RunWithContext(ctx); err != nil {
		return err
	}
	pairs := make([][2]string, 0, len(values))
	for _, fld := range schema.Editable() {
		pairs = append(pairs, [2]string{fld.Key, *values[fld.Key]})
	}
	if err := form.SetFields(pairs); err != nil {
		return err
	}
	if _, err := form.Submit(ctx); err != nil && !errors.Is(err, recordform.ErrNoChanges) {
		return err
	}
	form.Notice().Print()
	printRecord(form)
	return nil
}
