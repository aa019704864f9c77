// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/labcalc"
	"github.com/jinterlante1206/FunglusLab/services/labstub/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSeededRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	st := store.New(nil)
	store.SeedDefaults(st)
	return NewRouter(Options{Store: st}), st
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _ := newSeededRouter(t)

	w := serve(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newSeededRouter(t)
	serve(router, http.MethodGet, "/health", "")

	w := serve(router, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorShapes(t *testing.T) {
	router, _ := newSeededRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"missing cycle", http.MethodGet, APIPrefix + "/catalogos/ciclos/42", "", http.StatusNotFound, "Ciclo no encontrado"},
		{"missing ledger row", http.MethodGet, APIPrefix + "/laboratorio/gubys/ciclo/C9", "", http.StatusNotFound, "No hay entrada Gubys para el ciclo C9"},
		{"bad batch type", http.MethodGet, APIPrefix + "/ciclos-procesamiento/humedad/", "", http.StatusBadRequest, "Tipo de análisis no válido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body struct {
				Detail string `json:"detail"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body.Detail, tt.wantDetail)
		})
	}
}

func TestValidationErrorsUseDetailList(t *testing.T) {
	router, _ := newSeededRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"missing cycle name", http.MethodPost, APIPrefix + "/catalogos/ciclos/", `{"descripcion":"x"}`},
		{"non integer id", http.MethodGet, APIPrefix + "/catalogos/etapas/abc", ""},
		{"malformed json", http.MethodPost, APIPrefix + "/datos_laboratorio/entry", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.path, tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			var body struct {
				Detail []struct {
					Loc []string `json:"loc"`
					Msg string   `json:"msg"`
				} `json:"detail"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotEmpty(t, body.Detail)
			assert.NotEmpty(t, body.Detail[0].Msg)
		})
	}
}

// newClient serves the router and returns a client pointed at it.
func newClient(t *testing.T) (*labapi.Client, *store.Store) {
	t.Helper()
	router, st := newSeededRouter(t)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return labapi.NewClient(srv.URL + APIPrefix), st
}

func TestClientFlow_GeneralData(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	cycle, err := client.CreateCycle(ctx, labapi.CycleInput{Name: "C2025-01"})
	require.NoError(t, err)
	keys := labapi.EntryKeys{CycleID: cycle.ID, StageID: 1, SampleID: 1, OriginID: 2}

	rec, err := client.GetOrCreateEntry(ctx, keys)
	require.NoError(t, err)
	assert.Equal(t, "Materia Prima", rec.Ref("etapa_ref").Name)
	assert.Equal(t, "TAMO", rec.Ref("muestra_ref").Name)

	rec, err = client.UpdateEntry(ctx, keys, map[string]any{
		"humedad_1_porc": 50.0,
		"humedad_2_porc": 52.0,
	})
	require.NoError(t, err)
	avg, ok := rec.Float("humedad_prom_porc")
	require.True(t, ok)
	assert.Equal(t, 51.0, avg)

	rows, err := client.ListEntriesByCycle(ctx, cycle.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, rec.Int("id"), rows[0].Int("id"))

	_, err = client.DeleteCycle(ctx, cycle.ID)
	assert.True(t, labapi.IsConflict(err))

	msg, err := client.DeleteEntry(ctx, keys)
	require.NoError(t, err)
	assert.Equal(t, "Entrada de Datos Generales borrada exitosamente", msg.Message)

	_, err = client.DeleteEntry(ctx, keys)
	assert.True(t, labapi.IsNotFound(err))
}

func TestClientFlow_Ledger(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	_, err := client.GetLedger(ctx, labapi.LedgerFormulacion, "C2025-02")
	require.True(t, labapi.IsNotFound(err))

	res, err := client.InitializePlaceholders(ctx, "C2025-02")
	require.NoError(t, err)
	assert.Positive(t, res.FormulacionKey)

	rec, err := client.UpdateLedger(ctx, labapi.LedgerFormulacion, "C2025-02", map[string]any{
		"peso": 500.0, "hprom_entrada": 0.5, "porc_n_entrada": 0.01, "porc_cz_entrada": 0.2,
	})
	require.NoError(t, err)
	ms, ok := rec.Float("ms_kg")
	require.True(t, ok)
	assert.Equal(t, 250.0, ms)

	cycles, err := client.DistinctCycles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C2025-02"}, cycles)
}

func TestClientFlow_Batches(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()
	keys := labapi.EntryKeys{CycleID: 1, StageID: 1, SampleID: 1, OriginID: 1}
	_, err := client.GetOrCreateEntry(ctx, keys)
	require.NoError(t, err)

	at, err := strfmt.ParseDateTime("2025-03-01T08:00:00Z")
	require.NoError(t, err)
	batch, err := client.CreateBatch(ctx, labapi.BatchInput{Label: "CZ-01", At: at, Analysis: "cenizas"})
	require.NoError(t, err)

	entry, err := client.CreateAshEntry(ctx, labapi.AshInput{
		BatchID: batch.ID, CatalogKeys: labapi.CatalogKeysFrom(keys),
		CrucibleG: labcalc.Ptr(10), CrucibleSampleG: labcalc.Ptr(12), CrucibleAshG: labcalc.Ptr(10.4),
	})
	require.NoError(t, err)
	require.NotNil(t, entry.AshPct)
	assert.InDelta(t, 20.0, *entry.AshPct, 1e-9)
	require.NotNil(t, entry.StageRef)
	assert.Equal(t, "Materia Prima", entry.StageRef.Name)

	rec, err := client.GetOrCreateEntry(ctx, keys)
	require.NoError(t, err)
	ash, ok := rec.Float("resultado_cenizas_porc")
	require.True(t, ok)
	assert.InDelta(t, 20.0, ash, 1e-9)

	batches, err := client.ListBatches(ctx, "cenizas")
	require.NoError(t, err)
	require.Len(t, batches, 1)

	_, err = client.DeleteBatch(ctx, batch.ID)
	require.NoError(t, err)
	entries, err := client.ListAshEntries(ctx, batch.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
