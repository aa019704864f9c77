// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package labcalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertValue(t *testing.T, want *float64, got *float64) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.InDelta(t, *want, *got, 1e-9)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 12.346, Round(12.3456, 3))
	assert.Equal(t, 2.0, Round(1.995, 0))
	assert.Equal(t, -3.0, Round(-2.5, 0))
}

func TestHumidityAverage(t *testing.T) {
	tests := []struct {
		name   string
		h1, h2 *float64
		want   *float64
	}{
		{"both", Ptr(10), Ptr(11.5), Ptr(10.75)},
		{"rounded", Ptr(10.0001), Ptr(10.0002), Ptr(10)},
		{"missing", Ptr(10), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValue(t, tt.want, HumidityAverage(tt.h1, tt.h2))
		})
	}
}

func TestFDRAverage(t *testing.T) {
	assertValue(t, Ptr(2), FDRAverage(Ptr(1), Ptr(2), Ptr(3)))
	assertValue(t, Ptr(1.667), FDRAverage(Ptr(1), Ptr(2), Ptr(2)))
	assertValue(t, nil, FDRAverage(Ptr(1), nil, Ptr(2)))
}

func TestNitrogen(t *testing.T) {
	a, b, c := Ptr(0.5), Ptr(0.1), Ptr(5.0)

	assertValue(t, Ptr(1.4), NitrogenTotal(a, b, c))
	assertValue(t, nil, NitrogenTotal(Ptr(0), b, c))
	assertValue(t, nil, NitrogenTotal(a, nil, c))

	dry := DryWeight(a, Ptr(20))
	assertValue(t, Ptr(0.4), dry)
	assertValue(t, Ptr(1.75), NitrogenDry(b, c, dry))
	assertValue(t, nil, NitrogenDry(b, c, Ptr(0)))
	assertValue(t, nil, DryWeight(a, nil))
}

func TestAshPercent(t *testing.T) {
	assertValue(t, Ptr(25), AshPercent(Ptr(10), Ptr(12), Ptr(10.5)))
	assertValue(t, nil, AshPercent(Ptr(10), Ptr(10), Ptr(10.5)))
	assertValue(t, nil, AshPercent(nil, Ptr(12), Ptr(10.5)))
}

func TestMeanPresent(t *testing.T) {
	assertValue(t, Ptr(1.5), MeanPresent(2, Ptr(1), nil, Ptr(2)))
	assertValue(t, nil, MeanPresent(2, nil, nil))
	assertValue(t, nil, Mean(2))
}

func TestFormulacion(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		got := Formulacion(FormulacionInput{
			Peso:          Ptr(100),
			HpromEntrada:  Ptr(0.7),
			PorcNEntrada:  Ptr(0.02),
			PorcCzEntrada: Ptr(0.1),
		})
		assertValue(t, Ptr(30), got.MsKg)
		assertValue(t, Ptr(0.6), got.NKg)
		assertValue(t, Ptr(2), got.PorcNMs)
		assertValue(t, Ptr(3), got.CzKg)
		assertValue(t, Ptr(10), got.PorcCzMs)
		assertValue(t, Ptr(27), got.MosKg)
		assertValue(t, nil, got.CNRatio)
	})

	t.Run("carbon ratio", func(t *testing.T) {
		got := Formulacion(FormulacionInput{
			Peso: Ptr(100), HpromEntrada: Ptr(0.7), PorcNEntrada: Ptr(0.02), PorcCzEntrada: Ptr(0.1), CKg: Ptr(12),
		})
		assertValue(t, Ptr(20), got.CNRatio)
	})

	t.Run("no humidity resets everything", func(t *testing.T) {
		got := Formulacion(FormulacionInput{Peso: Ptr(100), PorcNEntrada: Ptr(0.02)})
		assert.Equal(t, FormulacionResult{}, got)
	})

	t.Run("no ash input", func(t *testing.T) {
		got := Formulacion(FormulacionInput{Peso: Ptr(10), HpromEntrada: Ptr(0.5), PorcNEntrada: Ptr(0.1)})
		assertValue(t, Ptr(5), got.MsKg)
		assertValue(t, Ptr(0.5), got.NKg)
		assertValue(t, nil, got.CzKg)
		assertValue(t, nil, got.MosKg)
	})
}
