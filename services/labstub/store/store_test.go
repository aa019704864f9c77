// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/labcalc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeys = labapi.EntryKeys{CycleID: 1, StageID: 2, SampleID: 3, OriginID: 4}

func fixedNow() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

func TestCreateCycle_DuplicateNameIsBadRequest(t *testing.T) {
	s := New(fixedNow)
	_, err := s.CreateCycle(labapi.CycleInput{Name: "C2025-01"})
	require.NoError(t, err)

	_, err = s.CreateCycle(labapi.CycleInput{Name: "C2025-01"})

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
	assert.Contains(t, err.Error(), "ya existe")
}

func TestSeedDefaults_IsIdempotent(t *testing.T) {
	s := New(nil)
	SeedDefaults(s)
	SeedDefaults(s)

	stages, err := s.ListCatalog(labapi.CatalogStages, 0, 0)
	require.NoError(t, err)
	assert.Len(t, stages, 4)
	assert.Equal(t, "Materia Prima", stages[0].Name)
}

func TestDeleteCatalogEntry_InUseIsConflict(t *testing.T) {
	s := New(nil)
	stage, err := s.CreateCatalogEntry(labapi.CatalogStages, labapi.CatalogInput{Name: "Gubys"})
	require.NoError(t, err)
	_, _, err = s.GetOrCreateEntry(labapi.EntryKeys{CycleID: 1, StageID: stage.ID})
	require.NoError(t, err)

	err = s.DeleteCatalogEntry(labapi.CatalogStages, stage.ID)

	assert.Equal(t, http.StatusConflict, StatusOf(err))
}

func TestGetOrCreateEntry_SameRecordTwice(t *testing.T) {
	s := New(nil)

	first, created, err := s.GetOrCreateEntry(testKeys)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, first["humedad_1_porc"])

	second, created, err := s.GetOrCreateEntry(testKeys)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Int("id"), second.Int("id"))
}

func TestGetOrCreateEntry_RequiresCycleAndStage(t *testing.T) {
	s := New(nil)
	_, _, err := s.GetOrCreateEntry(labapi.EntryKeys{CycleID: 1})
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestUpdateEntry_RecomputesAverages(t *testing.T) {
	s := New(nil)
	_, _, err := s.GetOrCreateEntry(testKeys)
	require.NoError(t, err)

	rec, err := s.UpdateEntry(testKeys, labapi.Record{
		"humedad_1_porc":    50.0,
		"humedad_2_porc":    51.5,
		"fdr_1_kgf":         1.0,
		"fdr_2_kgf":         2.0,
		"fdr_3_kgf":         2.0,
		"humedad_prom_porc": 99.0,
		"unknown":           "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, 50.75, rec["humedad_prom_porc"])
	assert.Equal(t, 1.667, rec["fdr_prom_kgf"])
	_, hasUnknown := rec["unknown"]
	assert.False(t, hasUnknown)

	rec, err = s.UpdateEntry(testKeys, labapi.Record{"humedad_2_porc": nil})
	require.NoError(t, err)
	assert.Nil(t, rec["humedad_prom_porc"])
	assert.Equal(t, 1.667, rec["fdr_prom_kgf"])
}

func TestUpdateEntry_MissingIsNotFound(t *testing.T) {
	s := New(nil)
	_, err := s.UpdateEntry(testKeys, labapi.Record{"ph_valor": 7.0})
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestListEntriesByCycle_OrderAndRefs(t *testing.T) {
	s := New(nil)
	SeedDefaults(s)
	for _, k := range []labapi.EntryKeys{
		{CycleID: 1, StageID: 2, SampleID: 0, OriginID: 9},
		{CycleID: 1, StageID: 1, SampleID: 4, OriginID: 1},
		{CycleID: 1, StageID: 1, SampleID: 1, OriginID: 2},
		{CycleID: 2, StageID: 1, SampleID: 1, OriginID: 1},
	} {
		_, _, err := s.GetOrCreateEntry(k)
		require.NoError(t, err)
	}

	rows := s.ListEntriesByCycle(1, 0, 100)

	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 1, 2}, []int{rows[0].Int("etapa_id"), rows[1].Int("etapa_id"), rows[2].Int("etapa_id")})
	assert.Equal(t, 1, rows[0].Int("muestra_id"))
	assert.Equal(t, "Materia Prima", rows[0].Ref("etapa_ref").Name)
	assert.Nil(t, rows[2].Ref("muestra_ref"))
}

func TestLedger_PlaceholdersAndDistinct(t *testing.T) {
	s := New(nil)

	_, err := s.GetLedger(labapi.LedgerGubys, "C2025-01")
	assert.Equal(t, http.StatusNotFound, StatusOf(err))

	first, err := s.InitializePlaceholders("C2025-01")
	require.NoError(t, err)
	again, err := s.InitializePlaceholders("C2025-01")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	_, err = s.InitializePlaceholders("C2025-02")
	require.NoError(t, err)

	rec, err := s.GetLedger(labapi.LedgerGubys, "C2025-01")
	require.NoError(t, err)
	assert.Equal(t, first.GubysKey, rec.Int("key"))
	assert.Equal(t, []string{"C2025-02", "C2025-01"}, s.DistinctCycles())

	_, err = s.InitializePlaceholders("  ")
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestUpdateLedger_HpromRules(t *testing.T) {
	s := New(nil)
	_, err := s.InitializePlaceholders("C1")
	require.NoError(t, err)

	rec, err := s.UpdateLedger(labapi.LedgerGubys, "C1", labapi.Record{"porc_h1": 40.0, "porc_h2": 41.0})
	require.NoError(t, err)
	assert.Equal(t, 40.5, rec["hprom"])

	rec, err = s.UpdateLedger(labapi.LedgerGubys, "C1", labapi.Record{"porc_h1": nil, "hprom": 12.0})
	require.NoError(t, err)
	assert.Equal(t, 12.0, rec["hprom"], "explicit hprom survives a missing input")

	rec, err = s.UpdateLedger(labapi.LedgerGubys, "C1", labapi.Record{"porc_h2": 43.0})
	require.NoError(t, err)
	assert.Nil(t, rec["hprom"])

	rec, err = s.UpdateLedger(labapi.LedgerMateriaPrima, "C1", labapi.Record{"d1": 1.0, "d2": 1.0, "d3": 2.0, "muestra": "TAMO"})
	require.NoError(t, err)
	assert.Equal(t, 1.333, rec["dprom"])
	assert.Equal(t, "TAMO", rec["muestra"])

	_, err = s.UpdateLedger(labapi.LedgerCenizas, "nope", labapi.Record{"p1": 1.0})
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestUpdateLedger_Formulacion(t *testing.T) {
	s := New(nil)
	_, err := s.InitializePlaceholders("C1")
	require.NoError(t, err)

	rec, err := s.UpdateLedger(labapi.LedgerFormulacion, "C1", labapi.Record{
		"peso": 1000.0, "hprom_entrada": 0.6, "porc_n_entrada": 0.02, "porc_cz_entrada": 0.25,
	})
	require.NoError(t, err)

	assert.InDelta(t, 400.0, rec["ms_kg"], 1e-9)
	assert.InDelta(t, 8.0, rec["n_kg"], 1e-9)
	assert.InDelta(t, 2.0, rec["porc_n_ms"], 1e-9)
	assert.InDelta(t, 100.0, rec["cz_kg"], 1e-9)
	assert.InDelta(t, 300.0, rec["mos_kg"], 1e-9)
	assert.Nil(t, rec["c_n_ratio"])

	rec, err = s.UpdateLedger(labapi.LedgerFormulacion, "C1", labapi.Record{"peso": nil})
	require.NoError(t, err)
	assert.Nil(t, rec["ms_kg"])
	assert.Nil(t, rec["mos_kg"])
}

func newBatch(t *testing.T, s *Store, analysis string) labapi.Batch {
	t.Helper()
	at, err := strfmt.ParseDateTime("2025-03-01T08:00:00Z")
	require.NoError(t, err)
	return s.CreateBatch(labapi.BatchInput{Label: "L-1", At: at, Analysis: analysis})
}

func TestNitrogen_UsesGeneralHumidityAndAverages(t *testing.T) {
	s := New(fixedNow)
	_, _, err := s.GetOrCreateEntry(testKeys)
	require.NoError(t, err)
	_, err = s.UpdateEntry(testKeys, labapi.Record{"humedad_1_porc": 60.0, "humedad_2_porc": 60.0})
	require.NoError(t, err)
	b := newBatch(t, s, "nitrogeno")
	ck := labapi.CatalogKeysFrom(testKeys)

	e, err := s.CreateNitrogen(labapi.NitrogenInput{
		BatchID: b.ID, CatalogKeys: ck,
		SampleWeightG: labcalc.Ptr(0.5), HClNormality: labcalc.Ptr(0.1), HClVolumeCm3: labcalc.Ptr(10),
	})
	require.NoError(t, err)
	require.NotNil(t, e.TotalNitrogenPct)
	assert.InDelta(t, 2.8, *e.TotalNitrogenPct, 1e-9)
	assert.InDelta(t, 60.0, *e.HumidityUsedPct, 1e-9)
	assert.InDelta(t, 0.2, *e.DryWeightG, 1e-9)
	assert.InDelta(t, 7.0, *e.DryNitrogenPct, 1e-9)

	_, err = s.CreateNitrogen(labapi.NitrogenInput{
		BatchID: b.ID, CatalogKeys: ck,
		SampleWeightG: labcalc.Ptr(0.5), HClNormality: labcalc.Ptr(0.1), HClVolumeCm3: labcalc.Ptr(12),
	})
	require.NoError(t, err)

	rec, err := s.AverageNitrogen(labapi.AverageRequest{CatalogKeys: ck})
	require.NoError(t, err)
	assert.InDelta(t, 3.08, rec["resultado_nitrogeno_total_porc"], 1e-9)
	assert.InDelta(t, 7.7, rec["resultado_nitrogeno_seca_porc"], 1e-9)

	other := labapi.CatalogKeysFrom(labapi.EntryKeys{CycleID: 9, StageID: 9})
	_, err = s.AverageNitrogen(labapi.AverageRequest{CatalogKeys: other})
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestNitrogen_WrongBatchType(t *testing.T) {
	s := New(nil)
	b := newBatch(t, s, "cenizas")
	_, err := s.CreateNitrogen(labapi.NitrogenInput{BatchID: b.ID, CatalogKeys: labapi.CatalogKeysFrom(testKeys)})
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestAsh_RequiresGeneralRecordAndIsUniquePerBatch(t *testing.T) {
	s := New(nil)
	b := newBatch(t, s, "cenizas")
	in := labapi.AshInput{
		BatchID: b.ID, CatalogKeys: labapi.CatalogKeysFrom(testKeys),
		CrucibleG: labcalc.Ptr(20), CrucibleSampleG: labcalc.Ptr(22), CrucibleAshG: labcalc.Ptr(20.5),
	}

	_, err := s.CreateAsh(in)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))

	_, _, err = s.GetOrCreateEntry(testKeys)
	require.NoError(t, err)
	e, err := s.CreateAsh(in)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, *e.AshPct, 1e-9)

	_, err = s.CreateAsh(in)
	assert.Equal(t, http.StatusConflict, StatusOf(err))

	gen, _, err := s.GetOrCreateEntry(testKeys)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, gen["resultado_cenizas_porc"], 1e-9)

	e, err = s.UpdateAsh(e.ID, labapi.AshUpdate{CrucibleAshG: labcalc.Ptr(21)})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, *e.AshPct, 1e-9)
	gen, _, _ = s.GetOrCreateEntry(testKeys)
	assert.InDelta(t, 50.0, gen["resultado_cenizas_porc"], 1e-9)
}

func TestDeleteBatch_Cascades(t *testing.T) {
	s := New(nil)
	b := newBatch(t, s, "nitrogeno")
	for i := 0; i < 3; i++ {
		_, err := s.CreateNitrogen(labapi.NitrogenInput{BatchID: b.ID, CatalogKeys: labapi.CatalogKeysFrom(testKeys)})
		require.NoError(t, err)
	}

	removed, err := s.DeleteBatch(b.ID)

	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Empty(t, s.ListNitrogen(b.ID, 0, 100))
	_, err = s.GetBatch(b.ID)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestListBatches_NewestFirst(t *testing.T) {
	s := New(nil)
	early, _ := strfmt.ParseDateTime("2025-01-01T00:00:00Z")
	late, _ := strfmt.ParseDateTime("2025-02-01T00:00:00Z")
	s.CreateBatch(labapi.BatchInput{Label: "old", At: early, Analysis: "nitrogeno"})
	s.CreateBatch(labapi.BatchInput{Label: "new", At: late, Analysis: "nitrogeno"})
	s.CreateBatch(labapi.BatchInput{Label: "ash", At: late, Analysis: "cenizas"})

	got := s.ListBatches("nitrogeno", 0, 100)

	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].Label)
	assert.Equal(t, "old", got[1].Label)
}
