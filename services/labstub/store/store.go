// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store is the in-memory data layer of the reference laboratory
// backend.
//
// # Description
//
// Store keeps catalogs, general-data records, the per-cycle stage tables,
// processing batches and their analysis entries in memory. Derived values
// (humidity and FDR averages, formulation, nitrogen and ash results) are
// recomputed on every write with pkg/labcalc, the same formulas the client
// previews with.
//
// # Errors
//
// Every failure is an *Error carrying the HTTP status and the "detail" text
// the handlers return.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Returned records are copies.
package store

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/labcalc"
)

// Error is a failure with the status the backend answers with.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

func notFound(format string, args ...any) *Error {
	return &Error{Status: http.StatusNotFound, Detail: fmt.Sprintf(format, args...)}
}

func badRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Detail: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) *Error {
	return &Error{Status: http.StatusConflict, Detail: fmt.Sprintf(format, args...)}
}

// StatusOf returns the HTTP status of err, 500 for foreign errors.
func StatusOf(err error) int {
	var se *Error
	if errors.As(err, &se) {
		return se.Status
	}
	return http.StatusInternalServerError
}

// generalFields are the writable metadata columns of the general table.
var generalFields = map[string]bool{
	"fecha_ingreso": true, "fecha_procesamiento": true,
	"peso_h1_g": true, "peso_h2_g": true,
	"humedad_1_porc": true, "humedad_2_porc": true,
	"peso_ph_g": true, "ph_valor": true,
	"fdr_1_kgf": true, "fdr_2_kgf": true, "fdr_3_kgf": true,
	"resultado_cenizas_porc": true, "resultado_nitrogeno_total_porc": true,
	"resultado_nitrogeno_seca_porc": true,
}

var generalDerived = []string{"humedad_prom_porc", "fdr_prom_kgf"}

// ledgerTable describes one per-cycle stage table.
type ledgerTable struct {
	label    string
	writable []string
	derived  []string
}

var ledgerTables = map[labapi.LedgerStage]ledgerTable{
	labapi.LedgerMateriaPrima: {
		label: "Materia Prima",
		writable: []string{"fecha_i", "fecha_p", "muestra", "origen", "p1h1", "p2h2",
			"porc_h1", "porc_h2", "p_ph", "ph", "d1", "d2", "d3"},
		derived: []string{"hprom", "dprom"},
	},
	labapi.LedgerGubys: {
		label: "Gubys",
		writable: []string{"fecha_i", "fecha_p", "origen", "p1h1", "p2h2",
			"porc_h1", "porc_h2", "p_ph", "ph", "hprom"},
	},
	labapi.LedgerCenizas: {
		label:    "Cenizas",
		writable: []string{"fecha_i", "muestra", "origen", "p1", "p2", "p3", "porc_cz"},
	},
	labapi.LedgerFormulacion: {
		label: "de formulación",
		writable: []string{"peso", "muestra", "origen", "porc_n_entrada",
			"porc_cz_entrada", "hprom_entrada"},
		derived: []string{"ms_kg", "n_kg", "porc_n_ms", "cz_kg", "porc_cz_ms", "c_kg",
			"c_n_ratio", "mos_kg", "porc_n_mos", "porc_cz_mos"},
	},
}

// Store is the in-memory backend state.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	seq      map[string]int
	cycles   map[int]labapi.Cycle
	catalogs map[labapi.CatalogKind]map[int]labapi.CatalogEntry

	general map[labapi.EntryKeys]labapi.Record
	ledgers map[labapi.LedgerStage]map[string]labapi.Record

	batches  map[int]labapi.Batch
	nitrogen map[int]labapi.NitrogenEntry
	ash      map[int]labapi.AshEntry
}

// New creates an empty store. now stamps batches and entries; nil uses
// time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{
		now:      now,
		seq:      make(map[string]int),
		cycles:   make(map[int]labapi.Cycle),
		catalogs: make(map[labapi.CatalogKind]map[int]labapi.CatalogEntry),
		general:  make(map[labapi.EntryKeys]labapi.Record),
		ledgers:  make(map[labapi.LedgerStage]map[string]labapi.Record),
		batches:  make(map[int]labapi.Batch),
		nitrogen: make(map[int]labapi.NitrogenEntry),
		ash:      make(map[int]labapi.AshEntry),
	}
	for _, k := range labapi.CatalogKinds {
		s.catalogs[k] = make(map[int]labapi.CatalogEntry)
	}
	for stage := range ledgerTables {
		s.ledgers[stage] = make(map[string]labapi.Record)
	}
	return s
}

func (s *Store) nextID(table string) int {
	s.seq[table]++
	return s.seq[table]
}

func page(n, skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if skip > n {
		skip = n
	}
	end := n
	if limit > 0 && skip+limit < n {
		end = skip + limit
	}
	return skip, end
}

// =============================================================================
// Catalogs
// =============================================================================

// Seed creates catalog entries by name, skipping names that already exist.
func (s *Store) Seed(kind labapi.CatalogKind, names ...string) {
	for _, name := range names {
		_, _ = s.CreateCatalogEntry(kind, labapi.CatalogInput{Name: name})
	}
}

// SeedDefaults fills the catalogs with the stages, samples and origins the
// lab uses day to day.
func SeedDefaults(s *Store) {
	s.Seed(labapi.CatalogStages, "Materia Prima", "Gubys", "Tamo Húmedo", "Formulación")
	s.Seed(labapi.CatalogSamples, "TAMO", "CASCARILLA", "GALLINAZA", "BAGAZO",
		"Lote A", "Lote B", "Estándar")
	s.Seed(labapi.CatalogOrigins, "BODEGA", "CAMION1", "CAMION2", "CAMION3", "CAMION4",
		"CARMEN", "YALI", "S.C", "ENTRADA", "SALIDA", "VOLTEO1", "VOLTEO2", "VOLTEO3", "VOLTEO4")
}

func (s *Store) cycleByNameLocked(name string) (labapi.Cycle, bool) {
	for _, c := range s.cycles {
		if c.Name == name {
			return c, true
		}
	}
	return labapi.Cycle{}, false
}

// CreateCycle adds a cycle. Names are unique.
func (s *Store) CreateCycle(in labapi.CycleInput) (labapi.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cycleByNameLocked(in.Name); exists {
		return labapi.Cycle{}, badRequest("Un ciclo con el nombre '%s' ya existe.", in.Name)
	}
	c := labapi.Cycle{
		ID:          s.nextID("ciclos"),
		Name:        in.Name,
		Description: in.Description,
		StartDate:   in.StartDate,
	}
	s.cycles[c.ID] = c
	return c, nil
}

// ListCycles returns cycles by id.
func (s *Store) ListCycles(skip, limit int) []labapi.Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]labapi.Cycle, 0, len(s.cycles))
	for _, c := range s.cycles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	from, to := page(len(out), skip, limit)
	return out[from:to]
}

// GetCycle returns one cycle.
func (s *Store) GetCycle(id int) (labapi.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cycles[id]
	if !ok {
		return labapi.Cycle{}, notFound("Ciclo no encontrado")
	}
	return c, nil
}

// UpdateCycle applies a partial update.
func (s *Store) UpdateCycle(id int, in labapi.CycleUpdate) (labapi.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cycles[id]
	if !ok {
		return labapi.Cycle{}, notFound("Ciclo no encontrado para actualizar")
	}
	if in.Name != nil && *in.Name != c.Name {
		if _, exists := s.cycleByNameLocked(*in.Name); exists {
			return labapi.Cycle{}, badRequest("Otro ciclo ya existe con el nombre '%s'.", *in.Name)
		}
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = in.Description
	}
	if in.StartDate != nil {
		c.StartDate = in.StartDate
	}
	s.cycles[id] = c
	return c, nil
}

// DeleteCycle removes a cycle that no general record references.
func (s *Store) DeleteCycle(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cycles[id]; !ok {
		return notFound("Ciclo no encontrado para borrar")
	}
	for k := range s.general {
		if k.CycleID == id {
			return conflict("No se pudo borrar el ciclo. Puede estar en uso.")
		}
	}
	delete(s.cycles, id)
	return nil
}

func (s *Store) catalogLocked(kind labapi.CatalogKind) (map[int]labapi.CatalogEntry, error) {
	entries, ok := s.catalogs[kind]
	if !ok {
		return nil, notFound("Catálogo '%s' no existe", kind)
	}
	return entries, nil
}

// CreateCatalogEntry adds a stage, sample or origin. Names are unique per
// catalog.
func (s *Store) CreateCatalogEntry(kind labapi.CatalogKind, in labapi.CatalogInput) (labapi.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.catalogLocked(kind)
	if err != nil {
		return labapi.CatalogEntry{}, err
	}
	for _, e := range entries {
		if e.Name == in.Name {
			return labapi.CatalogEntry{}, badRequest("Un item en '%s' con el nombre '%s' ya existe.", kind, in.Name)
		}
	}
	e := labapi.CatalogEntry{ID: s.nextID(string(kind)), Name: in.Name, Description: in.Description}
	entries[e.ID] = e
	return e, nil
}

// ListCatalog returns a catalog by id.
func (s *Store) ListCatalog(kind labapi.CatalogKind, skip, limit int) ([]labapi.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.catalogLocked(kind)
	if err != nil {
		return nil, err
	}
	out := make([]labapi.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	from, to := page(len(out), skip, limit)
	return out[from:to], nil
}

// GetCatalogEntry returns one catalog entry.
func (s *Store) GetCatalogEntry(kind labapi.CatalogKind, id int) (labapi.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.catalogLocked(kind)
	if err != nil {
		return labapi.CatalogEntry{}, err
	}
	e, ok := entries[id]
	if !ok {
		return labapi.CatalogEntry{}, notFound("%s no encontrado", kind.Label())
	}
	return e, nil
}

// UpdateCatalogEntry applies a partial update.
func (s *Store) UpdateCatalogEntry(kind labapi.CatalogKind, id int, in labapi.CatalogUpdate) (labapi.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.catalogLocked(kind)
	if err != nil {
		return labapi.CatalogEntry{}, err
	}
	e, ok := entries[id]
	if !ok {
		return labapi.CatalogEntry{}, notFound("%s no encontrado para actualizar", kind.Label())
	}
	if in.Name != nil && *in.Name != e.Name {
		for _, other := range entries {
			if other.Name == *in.Name {
				return labapi.CatalogEntry{}, badRequest("Otro item en '%s' ya existe con el nombre '%s'.", kind, *in.Name)
			}
		}
		e.Name = *in.Name
	}
	if in.Description != nil {
		e.Description = in.Description
	}
	entries[id] = e
	return e, nil
}

// DeleteCatalogEntry removes an entry that no general record references.
func (s *Store) DeleteCatalogEntry(kind labapi.CatalogKind, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.catalogLocked(kind)
	if err != nil {
		return err
	}
	if _, ok := entries[id]; !ok {
		return notFound("%s no encontrado para borrar", kind.Label())
	}
	for k := range s.general {
		if (kind == labapi.CatalogStages && k.StageID == id) ||
			(kind == labapi.CatalogSamples && k.SampleID == id) ||
			(kind == labapi.CatalogOrigins && k.OriginID == id) {
			return conflict("No se pudo borrar el item de '%s'. Puede estar en uso.", kind)
		}
	}
	delete(entries, id)
	return nil
}

// =============================================================================
// General-data records
// =============================================================================

func checkKeys(k labapi.EntryKeys) error {
	if k.CycleID <= 0 || k.StageID <= 0 || k.SampleID < 0 || k.OriginID < 0 {
		return badRequest("Las claves ciclo_id y etapa_id son requeridas; muestra_id y origen_id no pueden ser negativas.")
	}
	return nil
}

// view attaches catalog references to a copy of rec.
func (s *Store) viewLocked(rec labapi.Record, k labapi.EntryKeys) labapi.Record {
	out := rec.Clone()
	refs := []struct {
		key  string
		kind labapi.CatalogKind
		id   int
	}{
		{"etapa_ref", labapi.CatalogStages, k.StageID},
		{"muestra_ref", labapi.CatalogSamples, k.SampleID},
		{"origen_ref", labapi.CatalogOrigins, k.OriginID},
	}
	for _, r := range refs {
		if e, ok := s.catalogs[r.kind][r.id]; ok {
			out[r.key] = map[string]any{"id": float64(e.ID), "nombre": e.Name, "descripcion": e.Description}
		} else {
			out[r.key] = nil
		}
	}
	return out
}

func (s *Store) getOrCreateLocked(k labapi.EntryKeys) (labapi.Record, bool) {
	if rec, ok := s.general[k]; ok {
		return rec, false
	}
	rec := labapi.Record{
		"id":         float64(s.nextID("datos_generales")),
		"ciclo_id":   float64(k.CycleID),
		"etapa_id":   float64(k.StageID),
		"muestra_id": float64(k.SampleID),
		"origen_id":  float64(k.OriginID),
	}
	for f := range generalFields {
		rec[f] = nil
	}
	for _, f := range generalDerived {
		rec[f] = nil
	}
	s.general[k] = rec
	return rec, true
}

// GetOrCreateEntry returns the record for k, creating an empty one when
// missing. created reports which happened.
func (s *Store) GetOrCreateEntry(k labapi.EntryKeys) (rec labapi.Record, created bool, err error) {
	if err := checkKeys(k); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, created = s.getOrCreateLocked(k)
	return s.viewLocked(rec, k), created, nil
}

func num(rec labapi.Record, key string) *float64 {
	if v, ok := rec.Float(key); ok {
		return &v
	}
	return nil
}

func setNum(rec labapi.Record, key string, v *float64) {
	if v == nil {
		rec[key] = nil
		return
	}
	rec[key] = *v
}

// recompute refreshes an average from its inputs: rounded when every input
// is set, cleared when an input changed to null and the average itself was
// not written.
func recompute(rec, changes labapi.Record, avgKey string, avg func(...*float64) *float64, inputs ...string) {
	vals := make([]*float64, len(inputs))
	touched := false
	for i, in := range inputs {
		vals[i] = num(rec, in)
		if _, ok := changes[in]; ok {
			touched = true
		}
	}
	if v := avg(vals...); v != nil {
		setNum(rec, avgKey, v)
		return
	}
	if _, explicit := changes[avgKey]; touched && !explicit {
		rec[avgKey] = nil
	}
}

func mean3(values ...*float64) *float64 { return labcalc.Mean(3, values...) }

func (s *Store) updateGeneralLocked(k labapi.EntryKeys, fields labapi.Record) (labapi.Record, error) {
	rec, ok := s.general[k]
	if !ok {
		return nil, notFound("Entrada no encontrada con las claves proporcionadas")
	}
	changes := make(labapi.Record, len(fields))
	for key, v := range fields {
		if !generalFields[key] {
			continue
		}
		rec[key] = v
		changes[key] = v
	}
	recompute(rec, changes, "humedad_prom_porc", mean3, "humedad_1_porc", "humedad_2_porc")
	recompute(rec, changes, "fdr_prom_kgf", mean3, "fdr_1_kgf", "fdr_2_kgf", "fdr_3_kgf")
	return rec, nil
}

// UpdateEntry writes the metadata fields of an existing record. Unknown and
// derived fields are ignored.
func (s *Store) UpdateEntry(k labapi.EntryKeys, fields labapi.Record) (labapi.Record, error) {
	if err := checkKeys(k); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.updateGeneralLocked(k, fields)
	if err != nil {
		return nil, err
	}
	return s.viewLocked(rec, k), nil
}

// DeleteEntry removes a record.
func (s *Store) DeleteEntry(k labapi.EntryKeys) error {
	if err := checkKeys(k); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.general[k]; !ok {
		return notFound("Entrada de Datos Generales no encontrada para borrar.")
	}
	delete(s.general, k)
	return nil
}

// ListEntriesByCycle returns the cycle's records ordered by stage, sample
// and origin.
func (s *Store) ListEntriesByCycle(cycleID, skip, limit int) []labapi.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]labapi.EntryKeys, 0)
	for k := range s.general {
		if k.CycleID == cycleID {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.StageID != b.StageID {
			return a.StageID < b.StageID
		}
		if a.SampleID != b.SampleID {
			return a.SampleID < b.SampleID
		}
		return a.OriginID < b.OriginID
	})
	from, to := page(len(keys), skip, limit)
	out := make([]labapi.Record, 0, to-from)
	for _, k := range keys[from:to] {
		out = append(out, s.viewLocked(s.general[k], k))
	}
	return out
}

// =============================================================================
// Stage tables
// =============================================================================

func tableFor(stage labapi.LedgerStage) (ledgerTable, error) {
	t, ok := ledgerTables[stage]
	if !ok {
		return ledgerTable{}, notFound("Tabla '%s' no existe", stage)
	}
	return t, nil
}

// InitializePlaceholders makes sure every stage table has a row for cycle.
func (s *Store) InitializePlaceholders(cycle string) (labapi.PlaceholderResult, error) {
	if strings.TrimSpace(cycle) == "" {
		return labapi.PlaceholderResult{}, badRequest("El ciclo_id no puede estar vacío.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := func(stage labapi.LedgerStage) int {
		rows := s.ledgers[stage]
		if rec, ok := rows[cycle]; ok {
			return rec.Int("key")
		}
		t := ledgerTables[stage]
		rec := labapi.Record{"key": float64(s.nextID(string(stage))), "ciclo": cycle}
		for _, f := range t.writable {
			rec[f] = nil
		}
		for _, f := range t.derived {
			rec[f] = nil
		}
		rows[cycle] = rec
		return rec.Int("key")
	}
	return labapi.PlaceholderResult{
		Message:         fmt.Sprintf("Placeholders para ciclo '%s' verificados/creados.", cycle),
		MateriaPrimaKey: key(labapi.LedgerMateriaPrima),
		GubysKey:        key(labapi.LedgerGubys),
		CenizasKey:      key(labapi.LedgerCenizas),
		FormulacionKey:  key(labapi.LedgerFormulacion),
	}, nil
}

// DistinctCycles lists initialized cycle names, newest name first.
func (s *Store) DistinctCycles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ledgers[labapi.LedgerMateriaPrima]))
	for name := range s.ledgers[labapi.LedgerMateriaPrima] {
		if name != "" {
			out = append(out, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// GetLedger returns a stage row.
func (s *Store) GetLedger(stage labapi.LedgerStage, cycle string) (labapi.Record, error) {
	t, err := tableFor(stage)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ledgers[stage][cycle]
	if !ok {
		return nil, notFound("No hay entrada %s para el ciclo %s", t.label, cycle)
	}
	return rec.Clone(), nil
}

// UpdateLedger writes the stage row of cycle and recomputes its derived
// columns.
func (s *Store) UpdateLedger(stage labapi.LedgerStage, cycle string, fields labapi.Record) (labapi.Record, error) {
	t, err := tableFor(stage)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.ledgers[stage][cycle]
	if !ok {
		return nil, notFound("Entrada %s para ciclo '%s' no encontrada.", t.label, cycle)
	}
	changes := make(labapi.Record, len(fields))
	for _, f := range t.writable {
		if v, present := fields[f]; present {
			rec[f] = v
			changes[f] = v
		}
	}

	switch stage {
	case labapi.LedgerMateriaPrima:
		recompute(rec, changes, "hprom", mean3, "porc_h1", "porc_h2")
		recompute(rec, changes, "dprom", mean3, "d1", "d2", "d3")
	case labapi.LedgerGubys:
		recompute(rec, changes, "hprom", mean3, "porc_h1", "porc_h2")
	case labapi.LedgerFormulacion:
		applyFormulacion(rec)
	}
	return rec.Clone(), nil
}

func applyFormulacion(rec labapi.Record) {
	res := labcalc.Formulacion(labcalc.FormulacionInput{
		Peso:          num(rec, "peso"),
		HpromEntrada:  num(rec, "hprom_entrada"),
		PorcNEntrada:  num(rec, "porc_n_entrada"),
		PorcCzEntrada: num(rec, "porc_cz_entrada"),
		CKg:           num(rec, "c_kg"),
	})
	setNum(rec, "ms_kg", res.MsKg)
	setNum(rec, "n_kg", res.NKg)
	setNum(rec, "porc_n_ms", res.PorcNMs)
	setNum(rec, "cz_kg", res.CzKg)
	setNum(rec, "porc_cz_ms", res.PorcCzMs)
	setNum(rec, "c_kg", res.CKg)
	setNum(rec, "c_n_ratio", res.CNRatio)
	setNum(rec, "mos_kg", res.MosKg)
	if res.MsKg == nil {
		rec["porc_n_mos"] = nil
		rec["porc_cz_mos"] = nil
	}
}

// =============================================================================
// Processing batches
// =============================================================================

// CreateBatch adds a batch. The analysis type must already be normalized.
func (s *Store) CreateBatch(in labapi.BatchInput) labapi.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := strfmt.DateTime(s.now().UTC())
	b := labapi.Batch{
		ID:          s.nextID("ciclos_procesamiento"),
		Label:       in.Label,
		At:          in.At,
		Analysis:    in.Analysis,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.batches[b.ID] = b
	return b
}

// ListBatches returns the batches of one analysis type, newest first.
func (s *Store) ListBatches(analysis string, skip, limit int) []labapi.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]labapi.Batch, 0)
	for _, b := range s.batches {
		if b.Analysis == analysis {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := time.Time(out[i].At), time.Time(out[j].At)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID > out[j].ID
	})
	from, to := page(len(out), skip, limit)
	return out[from:to]
}

// GetBatch returns one batch.
func (s *Store) GetBatch(id int) (labapi.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return labapi.Batch{}, notFound("Ciclo de procesamiento no encontrado.")
	}
	return b, nil
}

// UpdateBatch applies a partial update.
func (s *Store) UpdateBatch(id int, in labapi.BatchUpdate) (labapi.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return labapi.Batch{}, notFound("Ciclo de procesamiento no encontrado para actualizar.")
	}
	if in.Label != nil {
		b.Label = *in.Label
	}
	if in.At != nil {
		b.At = *in.At
	}
	if in.Description != nil {
		b.Description = in.Description
	}
	b.UpdatedAt = strfmt.DateTime(s.now().UTC())
	s.batches[id] = b
	return b, nil
}

// DeleteBatch removes a batch and its analysis entries. It returns how many
// entries went with it.
func (s *Store) DeleteBatch(id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[id]; !ok {
		return 0, notFound("Ciclo de procesamiento no encontrado para borrar.")
	}
	removed := 0
	for eid, e := range s.nitrogen {
		if e.BatchID == id {
			delete(s.nitrogen, eid)
			removed++
		}
	}
	for eid, e := range s.ash {
		if e.BatchID == id {
			delete(s.ash, eid)
			removed++
		}
	}
	delete(s.batches, id)
	return removed, nil
}

func (s *Store) batchOfTypeLocked(id int, analysis string) error {
	b, ok := s.batches[id]
	if !ok {
		return badRequest("El ciclo de procesamiento %d no existe.", id)
	}
	if b.Analysis != analysis {
		return badRequest("El ciclo de procesamiento %d es de tipo '%s', no '%s'.", id, b.Analysis, analysis)
	}
	return nil
}

func (s *Store) refsLocked(k labapi.CatalogKeys) (*labapi.Cycle, *labapi.CatalogEntry, *labapi.CatalogEntry, *labapi.CatalogEntry) {
	ref := func(kind labapi.CatalogKind, id int) *labapi.CatalogEntry {
		if e, ok := s.catalogs[kind][id]; ok {
			return &e
		}
		return nil
	}
	var cycle *labapi.Cycle
	if c, ok := s.cycles[k.CycleID]; ok {
		cycle = &c
	}
	return cycle, ref(labapi.CatalogStages, k.StageID), ref(labapi.CatalogSamples, k.SampleID), ref(labapi.CatalogOrigins, k.OriginID)
}

// =============================================================================
// Nitrogen entries
// =============================================================================

func (s *Store) computeNitrogenLocked(e *labapi.NitrogenEntry) {
	e.HumidityUsedPct, e.TotalNitrogenPct, e.DryWeightG, e.DryNitrogenPct = nil, nil, nil, nil
	if gen, ok := s.general[e.CatalogKeys.EntryKeys()]; ok {
		e.HumidityUsedPct = num(gen, "humedad_prom_porc")
	}
	e.TotalNitrogenPct = labcalc.NitrogenTotal(e.SampleWeightG, e.HClNormality, e.HClVolumeCm3)
	if e.TotalNitrogenPct == nil {
		return
	}
	e.DryWeightG = labcalc.DryWeight(e.SampleWeightG, e.HumidityUsedPct)
	e.DryNitrogenPct = labcalc.NitrogenDry(e.HClNormality, e.HClVolumeCm3, e.DryWeightG)
}

func (s *Store) nitrogenViewLocked(e labapi.NitrogenEntry) labapi.NitrogenEntry {
	e.CycleRef, e.StageRef, e.SampleRef, e.OriginRef = s.refsLocked(e.CatalogKeys)
	return e
}

// CreateNitrogen adds a nitrogen entry and computes its results from the
// humidity of the matching general record.
func (s *Store) CreateNitrogen(in labapi.NitrogenInput) (labapi.NitrogenEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.batchOfTypeLocked(in.BatchID, "nitrogeno"); err != nil {
		return labapi.NitrogenEntry{}, err
	}
	now := strfmt.DateTime(s.now().UTC())
	e := labapi.NitrogenEntry{
		ID:            s.nextID("registros_nitrogeno"),
		BatchID:       in.BatchID,
		CatalogKeys:   in.CatalogKeys,
		SampleWeightG: in.SampleWeightG,
		HClNormality:  in.HClNormality,
		HClVolumeCm3:  in.HClVolumeCm3,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.computeNitrogenLocked(&e)
	s.nitrogen[e.ID] = e
	return s.nitrogenViewLocked(e), nil
}

// ListNitrogen returns the entries of a batch by id.
func (s *Store) ListNitrogen(batchID, skip, limit int) []labapi.NitrogenEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]labapi.NitrogenEntry, 0)
	for _, e := range s.nitrogen {
		if e.BatchID == batchID {
			out = append(out, s.nitrogenViewLocked(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	from, to := page(len(out), skip, limit)
	return out[from:to]
}

// GetNitrogen returns one entry.
func (s *Store) GetNitrogen(id int) (labapi.NitrogenEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.nitrogen[id]
	if !ok {
		return labapi.NitrogenEntry{}, notFound("Registro de análisis de nitrógeno no encontrado.")
	}
	return s.nitrogenViewLocked(e), nil
}

// UpdateNitrogen changes the measured inputs and recomputes the results.
func (s *Store) UpdateNitrogen(id int, in labapi.NitrogenUpdate) (labapi.NitrogenEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.nitrogen[id]
	if !ok {
		return labapi.NitrogenEntry{}, notFound("Registro de análisis de nitrógeno no encontrado para actualizar.")
	}
	if in.SampleWeightG != nil {
		e.SampleWeightG = in.SampleWeightG
	}
	if in.HClNormality != nil {
		e.HClNormality = in.HClNormality
	}
	if in.HClVolumeCm3 != nil {
		e.HClVolumeCm3 = in.HClVolumeCm3
	}
	s.computeNitrogenLocked(&e)
	e.UpdatedAt = strfmt.DateTime(s.now().UTC())
	s.nitrogen[id] = e
	return s.nitrogenViewLocked(e), nil
}

// DeleteNitrogen removes one entry.
func (s *Store) DeleteNitrogen(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nitrogen[id]; !ok {
		return notFound("Registro de análisis de nitrógeno no encontrado para borrar.")
	}
	delete(s.nitrogen, id)
	return nil
}

// AverageNitrogen averages the nitrogen results of one context, optionally
// from a single batch, into the general record, creating it when missing.
func (s *Store) AverageNitrogen(req labapi.AverageRequest) (labapi.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var totals, dries []*float64
	for _, e := range s.nitrogen {
		if e.CatalogKeys != req.CatalogKeys {
			continue
		}
		if req.BatchID != nil && *req.BatchID != 0 && e.BatchID != *req.BatchID {
			continue
		}
		totals = append(totals, e.TotalNitrogenPct)
		dries = append(dries, e.DryNitrogenPct)
	}
	if len(totals) == 0 {
		return nil, badRequest("No se pudo actualizar la tabla general. No hay registros de nitrógeno para promediar.")
	}
	k := req.CatalogKeys.EntryKeys()
	if err := checkKeys(k); err != nil {
		return nil, err
	}
	s.getOrCreateLocked(k)
	rec, err := s.updateGeneralLocked(k, labapi.Record{
		"resultado_nitrogeno_total_porc": ptrValue(labcalc.MeanPresent(2, totals...)),
		"resultado_nitrogeno_seca_porc":  ptrValue(labcalc.MeanPresent(2, dries...)),
	})
	if err != nil {
		return nil, err
	}
	return s.viewLocked(rec, k), nil
}

func ptrValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// =============================================================================
// Ash entries
// =============================================================================

func (s *Store) ashViewLocked(e labapi.AshEntry) labapi.AshEntry {
	e.CycleRef, e.StageRef, e.SampleRef, e.OriginRef = s.refsLocked(e.CatalogKeys)
	return e
}

func (s *Store) pushAshLocked(e labapi.AshEntry) {
	if e.AshPct == nil {
		return
	}
	k := e.CatalogKeys.EntryKeys()
	s.getOrCreateLocked(k)
	_, _ = s.updateGeneralLocked(k, labapi.Record{"resultado_cenizas_porc": *e.AshPct})
}

// CreateAsh adds an ash entry. The context must have a general record and
// may appear once per batch. A computed result is copied into the general
// record.
func (s *Store) CreateAsh(in labapi.AshInput) (labapi.AshEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.batchOfTypeLocked(in.BatchID, "cenizas"); err != nil {
		return labapi.AshEntry{}, err
	}
	if _, ok := s.general[in.CatalogKeys.EntryKeys()]; !ok {
		return labapi.AshEntry{}, badRequest("No existe una entrada en la Tabla General para la combinación de catálogos seleccionada. " +
			"Por favor, créela primero en 'Laboratorio General'.")
	}
	for _, other := range s.ash {
		if other.BatchID == in.BatchID && other.CatalogKeys == in.CatalogKeys {
			return labapi.AshEntry{}, conflict("Ya existe un registro de cenizas para esta combinación de lote y catálogos.")
		}
	}
	now := strfmt.DateTime(s.now().UTC())
	e := labapi.AshEntry{
		ID:              s.nextID("registros_cenizas"),
		BatchID:         in.BatchID,
		CatalogKeys:     in.CatalogKeys,
		CrucibleG:       in.CrucibleG,
		CrucibleSampleG: in.CrucibleSampleG,
		CrucibleAshG:    in.CrucibleAshG,
		AshPct:          labcalc.AshPercent(in.CrucibleG, in.CrucibleSampleG, in.CrucibleAshG),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.ash[e.ID] = e
	s.pushAshLocked(e)
	return s.ashViewLocked(e), nil
}

// ListAsh returns the entries of a batch by id.
func (s *Store) ListAsh(batchID, skip, limit int) []labapi.AshEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]labapi.AshEntry, 0)
	for _, e := range s.ash {
		if e.BatchID == batchID {
			out = append(out, s.ashViewLocked(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	from, to := page(len(out), skip, limit)
	return out[from:to]
}

// GetAsh returns one entry.
func (s *Store) GetAsh(id int) (labapi.AshEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.ash[id]
	if !ok {
		return labapi.AshEntry{}, notFound("Registro de análisis de cenizas no encontrado.")
	}
	return s.ashViewLocked(e), nil
}

// UpdateAsh changes the measured weights, recomputes the result and copies
// it into the general record.
func (s *Store) UpdateAsh(id int, in labapi.AshUpdate) (labapi.AshEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.ash[id]
	if !ok {
		return labapi.AshEntry{}, notFound("Registro de análisis de cenizas no encontrado para actualizar.")
	}
	changed := false
	for _, u := range []struct {
		dst **float64
		src *float64
	}{
		{&e.CrucibleG, in.CrucibleG},
		{&e.CrucibleSampleG, in.CrucibleSampleG},
		{&e.CrucibleAshG, in.CrucibleAshG},
	} {
		if u.src != nil && (*u.dst == nil || **u.dst != *u.src) {
			v := *u.src
			*u.dst = &v
			changed = true
		}
	}
	if changed {
		e.AshPct = labcalc.AshPercent(e.CrucibleG, e.CrucibleSampleG, e.CrucibleAshG)
		e.UpdatedAt = strfmt.DateTime(s.now().UTC())
		s.pushAshLocked(e)
	}
	s.ash[id] = e
	return s.ashViewLocked(e), nil
}

// DeleteAsh removes one entry.
func (s *Store) DeleteAsh(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ash[id]; !ok {
		return notFound("Registro de análisis de cenizas no encontrado para borrar.")
	}
	delete(s.ash, id)
	return nil
}
