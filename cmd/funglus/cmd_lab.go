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
	"github.com/spf13/cobra"

	"github.com/jinterlante1206/FunglusLab/pkg/recordform"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
	"github.com/jinterlante1206/FunglusLab/pkg/validation"
)

// newCycleOption is the picker value that asks for a cycle name instead.
const newCycleOption = "\x00new"

func newLabCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lab",
		Short: "Interactive data entry session",
		Long: `Walks through cycle, stage, sample and origin pickers and opens the
record form for the chosen key. The session keeps the cycle between
records; changing it clears the open record.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ux.IsInteractive() {
				return usageError(cmd.CommandPath(), "lab needs a terminal; use entry show/set instead")
			}
			return a.labSession(cmd.Context())
		},
	}
}

// labSession is one interactive loop over the selector and record form.
//
// # Description
//
// The selector follows the cycle registry, and the current form is cleared
// whenever the selector drops its keys. Backend errors inside one round are
// printed and the loop continues, as do key selection errors. Aborting a
// picker ends the session.
func (a *app) labSession(ctx context.Context) error {
	cats, err := a.catalogs(ctx)
	if err != nil {
		return err
	}

	var form *recordform.Form
	sel := a.newSelector(cats, selector.OnClear(func() {
		if form != nil {
			form.Clear()
		}
	}))
	sel.Follow(a.registry)

	ux.Title("Funglus · laboratorio")
	for {
		tuple, err := a.pickTuple(ctx, sel)
		if recoverableKeyError(err) {
			ux.Warning(err.Error())
			continue
		}
		if err != nil {
			return endOfSession(err)
		}

		err = ux.WithSpinner("Cargando registro...", func() error {
			var loadErr error
			form, loadErr = a.loadForm(ctx, tuple, false)
			return loadErr
		})
		if err != nil {
			ux.Error(err.Error())
		} else if err := editRecord(ctx, form); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				ux.Warning("Edición descartada.")
			} else {
				ux.Error(err.Error())
			}
		}

		again, err := huhConfirm(ctx, "¿Editar otro registro?")
		if err != nil || !again {
			return endOfSession(err)
		}
	}
}

// pickTuple asks for each key the selected stage requires.
func (a *app) pickTuple(ctx context.Context, sel *selector.Selector) (selector.Tuple, error) {
	if err := a.registry.Refresh(ctx); err != nil {
		a.registry.Notice().Print()
	}
	opts := make([]huh.Option[string], 0, len(a.registry.Names())+1)
	for _, name := range a.registry.Names() {
		opts = append(opts, huh.NewOption(name, name))
	}
	opts = append(opts, huh.NewOption("+ Nuevo ciclo", newCycleOption))

	name, err := huhSelect(ctx, "Ciclo", opts)
	if err != nil {
		return selector.Tuple{}, err
	}
	if name == newCycleOption {
		name, err = huhInput(ctx, "Nombre del ciclo", "", validation.ValidateCycleName)
		if err != nil {
			return selector.Tuple{}, err
		}
	}
	cycle, _ := a.registry.SelectActive(ctx, name)
	sel.SetCycle(selector.RefFromCycle(cycle))

	stages := make([]huh.Option[string], 0)
	for _, def := range sel.Stages() {
		stages = append(stages, huh.NewOption(def.Label, def.Key))
	}
	stage, err := huhSelect(ctx, "Etapa", stages)
	if err != nil {
		return selector.Tuple{}, err
	}
	if err := sel.SetStage(stage); err != nil {
		return selector.Tuple{}, err
	}

	def, _ := sel.Stage()
	if def.UsesSample() {
		if err := pickKey(ctx, def, selector.DimSample, sel.SampleOptions(), sel.SetSample); err != nil {
			return selector.Tuple{}, err
		}
	}
	if def.UsesOrigin() {
		if err := pickKey(ctx, def, selector.DimOrigin, sel.OriginOptions(), sel.SetOrigin); err != nil {
			return selector.Tuple{}, err
		}
	}

	tuple, err := sel.Confirm()
	if err != nil {
		sel.Notice().Print()
		return selector.Tuple{}, err
	}
	return tuple, nil
}

// noneLabel is the picker entry that leaves an optional key unset.
const noneLabel = "(ninguno)"

// keyOptions builds the picker entries for one key. An optional key gets a
// "(ninguno)" entry; ok is false when there is nothing to pick.
func keyOptions(def selector.StageDef, dim selector.Dimension, choices []selector.Choice) (opts []huh.Option[string], ok bool) {
	if len(choices) == 0 {
		return nil, false
	}
	opts = huhOptions(choices)
	if !def.Requires(dim) {
		opts = append([]huh.Option[string]{huh.NewOption(noneLabel, "")}, opts...)
	}
	return opts, true
}

// pickKey asks for one key and stores it with set. An optional key with no
// choices is skipped.
func pickKey(ctx context.Context, def selector.StageDef, dim selector.Dimension, choices []selector.Choice, set func(string) error) error {
	opts, ok := keyOptions(def, dim, choices)
	if !ok {
		if def.Requires(dim) {
			return fmt.Errorf("%w: no hay opciones de %s para %s", selector.ErrIncompleteKeys, strings.ToLower(dim.Label()), def.Label)
		}
		return set("")
	}
	value, err := huhSelect(ctx, dim.Label(), opts)
	if err != nil {
		return err
	}
	return set(value)
}

// recoverableKeyError reports whether err only spoils the current key
// selection, so the session can start a new round.
func recoverableKeyError(err error) bool {
	return errors.Is(err, selector.ErrIncompleteKeys) ||
		errors.Is(err, selector.ErrInvalidOption) ||
		errors.Is(err, selector.ErrUnknownStage)
}

// endOfSession treats a picker abort as a normal exit.
func endOfSession(err error) error {
	if err == nil || errors.Is(err, huh.ErrUserAborted) {
		ux.Muted("Sesión terminada.")
		return nil
	}
	return err
}
