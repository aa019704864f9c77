// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package summary_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/summary"
	"github.com/jinterlante1206/FunglusLab/services/labstub/routes"
	"github.com/jinterlante1206/FunglusLab/services/labstub/store"
)

func TestSummary_DeleteAgainstBackend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := store.New(nil)
	store.SeedDefaults(st)
	srv := httptest.NewServer(routes.NewRouter(routes.Options{Store: st}))
	t.Cleanup(srv.Close)
	client := labapi.NewClient(srv.URL + routes.APIPrefix)
	ctx := context.Background()

	cycle, err := client.CreateCycle(ctx, labapi.CycleInput{Name: "C2025-03"})
	require.NoError(t, err)
	keep := labapi.EntryKeys{CycleID: cycle.ID, StageID: 1, SampleID: 1, OriginID: 1}
	drop := labapi.EntryKeys{CycleID: cycle.ID, StageID: 3, SampleID: 0, OriginID: 0}
	for _, k := range []labapi.EntryKeys{drop, keep} {
		_, err := client.GetOrCreateEntry(ctx, k)
		require.NoError(t, err)
	}
	_, err = client.UpdateEntry(ctx, keep, map[string]any{"ph_valor": 7.25})
	require.NoError(t, err)

	var prompts []string
	view := summary.New(client, summary.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		prompts = append(prompts, prompt)
		return true, nil
	}))

	rows, err := view.Load(ctx, cycle.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, keep, rows[0].Keys)
	assert.Equal(t, "Materia Prima", rows[0].Cells[0])
	assert.Equal(t, "N/A", rows[1].Cells[1])

	require.NoError(t, view.DeleteRow(ctx, drop))

	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Tamo Húmedo")
	assert.Equal(t, "Entrada de Datos Generales borrada exitosamente", view.Notice().Text())
	require.Len(t, view.Rows(), 1)
	assert.Equal(t, keep, view.Rows()[0].Keys)

	rec, _, err := st.GetOrCreateEntry(keep)
	require.NoError(t, err)
	assert.Equal(t, 7.25, rec["ph_valor"])
}
