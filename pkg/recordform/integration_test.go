// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package recordform_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/recordform"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
	"github.com/jinterlante1206/FunglusLab/services/labstub/routes"
	"github.com/jinterlante1206/FunglusLab/services/labstub/store"
)

// stubClient starts the reference backend and returns a client for it.
func stubClient(t *testing.T) (*labapi.Client, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.New(nil)
	store.SeedDefaults(st)
	srv := httptest.NewServer(routes.NewRouter(routes.Options{Store: st}))
	t.Cleanup(srv.Close)
	return labapi.NewClient(srv.URL + routes.APIPrefix), st
}

func TestGeneralForm_SubmitShowsBackendComputedFields(t *testing.T) {
	client, _ := stubClient(t)
	ctx := context.Background()
	cycle, err := client.CreateCycle(ctx, labapi.CycleInput{Name: "C2025-01"})
	require.NoError(t, err)

	tuple := selector.Tuple{
		StageKey: "tamo_humedo",
		Cycle:    selector.Ref{ID: cycle.ID, Name: cycle.Name},
		Stage:    selector.Ref{ID: 3, Name: "Tamo Húmedo"},
		Sample:   selector.Ref{ID: 1, Name: "TAMO"},
		Origin:   selector.Ref{ID: 2, Name: "CAMION1"},
	}
	backend, schema := recordform.BackendFor(tuple, client, client)
	require.Equal(t, "datos_generales", schema.Name)
	form := recordform.New(backend, schema)

	require.NoError(t, form.Load(ctx, tuple))
	require.NoError(t, form.SetField("humedad_1_porc", "60,5"))
	require.NoError(t, form.SetField("humedad_2_porc", "61.5"))
	require.NoError(t, form.SetField("fdr_1_kgf", "1"))
	require.NoError(t, form.SetField("fdr_2_kgf", "2"))
	require.NoError(t, form.SetField("fdr_3_kgf", "2"))

	rec, err := form.Submit(ctx)

	require.NoError(t, err)
	hum, ok := rec.Float("humedad_prom_porc")
	require.True(t, ok)
	assert.Equal(t, 61.0, hum)
	assert.Equal(t, "61.00", form.Display("humedad_prom_porc"))
	assert.Equal(t, "1.667", form.Display("fdr_prom_kgf"))
	assert.Empty(t, form.Changes())

	// A second form for the same tuple sees the stored record.
	other := recordform.New(backend, schema)
	require.NoError(t, other.Load(ctx, tuple))
	assert.Equal(t, 60.5, other.Value("humedad_1_porc"))
	assert.Equal(t, rec.Int("id"), other.Baseline().Int("id"))

	require.NoError(t, form.SetField("humedad_2_porc", ""))
	rec, err = form.Submit(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec["humedad_prom_porc"])
	assert.Equal(t, "-", form.Display("humedad_prom_porc"))
}

func TestLedgerForm_InitializesCycleOnFirstLoad(t *testing.T) {
	client, st := stubClient(t)
	ctx := context.Background()

	tuple := selector.Tuple{
		StageKey: "gubys",
		Ledger:   labapi.LedgerGubys,
		Cycle:    selector.Ref{Name: "C2025-01"},
		Stage:    selector.Ref{ID: 2, Name: "Gubys"},
		Origin:   selector.Ref{ID: 1, Name: "BODEGA"},
	}
	backend, schema := recordform.BackendFor(tuple, client, client)
	require.Equal(t, "gubys", schema.Name)
	form := recordform.New(backend, schema)

	require.NoError(t, form.Load(ctx, tuple))
	first := form.Baseline().Int("key")
	require.Positive(t, first)
	assert.Equal(t, []string{"C2025-01"}, st.DistinctCycles())

	again := recordform.New(backend, schema)
	require.NoError(t, again.Load(ctx, tuple))
	assert.Equal(t, first, again.Baseline().Int("key"))

	require.NoError(t, form.SetField("porc_h1", "40"))
	require.NoError(t, form.SetField("porc_h2", "41"))
	rec, err := form.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "40.500", form.Display("hprom"))
	assert.Equal(t, "BODEGA", rec["origen"])
}
