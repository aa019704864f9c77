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
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/jinterlante1206/FunglusLab/pkg/recordform"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
)

var errCancelled = errors.New("cancelled by user")

// huhConfirm shows a yes/no prompt. Declining is not an error.
func huhConfirm(ctx context.Context, prompt string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Affirmative("Sí").
			Negative("No").
			Value(&ok),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}
	return ok, nil
}

// huhOptions converts selector options to huh options.
func huhOptions(opts []selector.Choice) []huh.Option[string] {
	out := make([]huh.Option[string], 0, len(opts))
	for _, o := range opts {
		out = append(out, huh.NewOption(o.Label, o.Value))
	}
	return out
}

// huhSelect asks for one value out of opts.
func huhSelect(ctx context.Context, title string, opts []huh.Option[string]) (string, error) {
	var v string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title(title).Options(opts...).Value(&v),
	)).RunWithContext(ctx)
	return v, err
}

// huhInput asks for free text, pre-filled with value.
func huhInput(ctx context.Context, title, value string, check func(string) error) (string, error) {
	v := value
	in := huh.NewInput().Title(title).Value(&v)
	if check != nil {
		in = in.Validate(check)
	}
	err := huh.NewForm(huh.NewGroup(in)).RunWithContext(ctx)
	return strings.TrimSpace(v), err
}

// fieldInputs builds one huh field per editable schema field, bound to
// values. Numbers and dates are checked with recordform.Parse so the form
// never accepts what SetField would reject.
func fieldInputs(schema recordform.Schema, values map[string]*string) []huh.Field {
	fields := make([]huh.Field, 0, len(schema.Fields))
	for _, fld := range schema.Editable() {
		fld := fld
		target := values[fld.Key]
		if len(fld.Options) > 0 {
			opts := []huh.Option[string]{huh.NewOption("(vacío)", "")}
			for _, o := range fld.Options {
				opts = append(opts, huh.NewOption(o, o))
			}
			fields = append(fields, huh.NewSelect[string]().Title(fld.Label).Options(opts...).Value(target))
			continue
		}
		title := fld.Label
		if fld.Kind == recordform.KindDate {
			title += " (YYYY-MM-DD)"
		}
		fields = append(fields, huh.NewInput().
			Title(title).
			Value(target).
			Validate(func(s string) error {
				_, err := recordform.Parse(fld, s)
				return err
			}))
	}
	return fields
}

// parseID parses a positive integer argument.
func parseID(cmdPath, what, raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, usageError(cmdPath, "%s must be a positive integer, got %q", what, raw)
	}
	return id, nil
}

// parseAssignments splits "key=value" arguments. An empty value clears the
// field.
func parseAssignments(cmdPath string, args []string) ([][2]string, error) {
	out := make([][2]string, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, usageError(cmdPath, "expected field=value, got %q", arg)
		}
		out = append(out, [2]string{key, value})
	}
	return out, nil
}

// optionalFloat parses a measurement flag. Empty means not measured.
func optionalFloat(what, raw string) (*float64, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%s: %w: %q", what, recordform.ErrInvalidValue, raw)
	}
	return &v, nil
}
