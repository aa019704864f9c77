// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(opts []Choice) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

func TestOriginOptionsFor(t *testing.T) {
	tests := []struct {
		stage  string
		sample string
		want   []string
	}{
		{"materia_prima", "TAMO", []string{"BODEGA", "CAMION1", "CAMION2", "CAMION3", "CAMION4"}},
		{"materia_prima", "tamo", []string{"BODEGA", "CAMION1", "CAMION2", "CAMION3", "CAMION4"}},
		{"materia_prima", "CASCARILLA", []string{"BODEGA", "CAMION1"}},
		{"materia_prima", "GALLINAZA", []string{"BODEGA", "CAMION1", "CAMION2"}},
		{"materia_prima", "BAGAZO", []string{"BODEGA", "CARMEN", "YALI", "S.C"}},
		{"materia_prima", "", []string{}},
		{"materia_prima", "ARCILLA", []string{}},
		{"gubys", "", []string{"ENTRADA", "SALIDA"}},
		{"tamo_humedo", "anything", []string{"VOLTEO1", "VOLTEO2", "VOLTEO3", "VOLTEO4"}},
		{"formulacion", "Lote A", []string{"MP Combinada", "Proceso Interno"}},
		{"Materia Prima", "TAMO", []string{"BODEGA", "CAMION1", "CAMION2", "CAMION3", "CAMION4"}},
		{"nitrogeno", "TAMO", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.stage+"/"+tt.sample, func(t *testing.T) {
			assert.Equal(t, tt.want, values(OriginOptionsFor(tt.stage, tt.sample)))
		})
	}
}

func TestOriginOptionsFor_TamoDiffersFromBagazo(t *testing.T) {
	tamo := OriginOptionsFor("materia_prima", "TAMO")
	bagazo := OriginOptionsFor("materia_prima", "BAGAZO")

	assert.NotEmpty(t, tamo)
	assert.NotEmpty(t, bagazo)
	assert.NotEqual(t, tamo, bagazo)
}

func TestOriginOptionsFor_ReturnsCopy(t *testing.T) {
	opts := OriginOptionsFor("gubys", "")
	opts[0].Value = "MUTATED"

	assert.Equal(t, "ENTRADA", OriginOptionsFor("gubys", "")[0].Value)
}

func TestStageKey(t *testing.T) {
	tests := map[string]string{
		"Materia Prima":   "materia_prima",
		"  Tamo   Húmedo": "tamo_humedo",
		"Formulación":     "formulacion",
		"S.C. Etapa":      "sc_etapa",
		"gubys":           "gubys",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, StageKey(in), "StageKey(%q)", in)
	}
}

func TestDefaultStages_Keys(t *testing.T) {
	stages := DefaultStages()
	require.Len(t, stages, 4)

	mp, ok := FindStage("materia_prima")
	require.True(t, ok)
	assert.True(t, mp.Requires(DimCycle))
	assert.True(t, mp.Requires(DimOrigin))
	assert.True(t, mp.Requires(DimSample))
	assert.True(t, mp.ResetOriginOnSample)

	gubys, _ := FindStage("gubys")
	assert.False(t, gubys.Requires(DimSample))
	assert.False(t, gubys.ResetOriginOnSample)

	form, _ := FindStage("formulacion")
	assert.True(t, form.Requires(DimSample))
	assert.False(t, form.UsesOrigin())

	_, ok = FindStage("cenizas")
	assert.False(t, ok)
}
