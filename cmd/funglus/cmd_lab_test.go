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
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/FunglusLab/pkg/selector"
)

var catalogStage = selector.StageDef{
	Key:           "compostaje",
	Label:         "Compostaje",
	Keys:          []selector.Dimension{selector.DimCycle},
	CatalogDriven: true,
}

var gubysStage = selector.StageDef{
	Key:   "gubys",
	Label: "Gubys",
	Keys:  []selector.Dimension{selector.DimCycle, selector.DimOrigin},
}

func optionValues(opts []huh.Option[string]) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

func TestKeyOptions(t *testing.T) {
	choices := []selector.Choice{{Value: "BODEGA", Label: "Bodega"}}

	tests := []struct {
		name    string
		def     selector.StageDef
		choices []selector.Choice
		want    []string
		wantOK  bool
	}{
		{"optional key offers none", catalogStage, choices, []string{"", "BODEGA"}, true},
		{"required key has no none", gubysStage, choices, []string{"BODEGA"}, true},
		{"no choices", catalogStage, nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, ok := keyOptions(tt.def, selector.DimOrigin, tt.choices)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, optionValues(opts))
			}
		})
	}

	opts, _ := keyOptions(catalogStage, selector.DimSample, choices)
	assert.Equal(t, noneLabel, opts[0].Key)
}

func TestPickKey_EmptyChoices(t *testing.T) {
	var stored []string
	set := func(v string) error { stored = append(stored, v); return nil }

	require.NoError(t, pickKey(context.Background(), catalogStage, selector.DimOrigin, nil, set))
	assert.Equal(t, []string{""}, stored, "optional key is left unset")

	err := pickKey(context.Background(), gubysStage, selector.DimOrigin, nil, set)
	require.ErrorIs(t, err, selector.ErrIncompleteKeys)
	assert.True(t, recoverableKeyError(err))
	assert.Len(t, stored, 1)
}

func TestRecoverableKeyError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("%w: origen", selector.ErrIncompleteKeys), true},
		{fmt.Errorf("%w: muestra \"X\"", selector.ErrInvalidOption), true},
		{selector.ErrUnknownStage, true},
		{huh.ErrUserAborted, false},
		{errors.New("HTTP 500"), false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, recoverableKeyError(tt.err), "%v", tt.err)
	}
}
