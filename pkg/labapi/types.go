// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package labapi

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-openapi/strfmt"
)

// =============================================================================
// Catalogs
// =============================================================================

// Cycle is a top-level unit of laboratory work.
type Cycle struct {
	ID          int     `json:"id"`
	Name        string  `json:"nombre_ciclo"`
	Description *string `json:"descripcion"`
	StartDate   *string `json:"fecha_inicio"`
}

// CycleInput is the body for creating a cycle.
type CycleInput struct {
	Name        string  `json:"nombre_ciclo" validate:"required,max=100"`
	Description *string `json:"descripcion,omitempty"`
	StartDate   *string `json:"fecha_inicio,omitempty"`
}

// CycleUpdate is a partial cycle update. Nil fields are left unchanged.
type CycleUpdate struct {
	Name        *string `json:"nombre_ciclo,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"descripcion,omitempty"`
	StartDate   *string `json:"fecha_inicio,omitempty"`
}

// CatalogKind names one of the simple catalogs.
type CatalogKind string

const (
	CatalogStages  CatalogKind = "etapas"
	CatalogSamples CatalogKind = "muestras"
	CatalogOrigins CatalogKind = "origenes"
)

// CatalogKinds lists the simple catalogs in display order.
var CatalogKinds = []CatalogKind{CatalogStages, CatalogSamples, CatalogOrigins}

// ParseCatalogKind accepts the plural path segment or common aliases.
func ParseCatalogKind(s string) (CatalogKind, error) {
	switch s {
	case "etapas", "etapa", "stages", "stage":
		return CatalogStages, nil
	case "muestras", "muestra", "samples", "sample":
		return CatalogSamples, nil
	case "origenes", "origen", "origins", "origin":
		return CatalogOrigins, nil
	default:
		return "", NewValidationError("unknown catalog %q (etapas, muestras, origenes)", s)
	}
}

// Label returns the singular display name.
func (k CatalogKind) Label() string {
	switch k {
	case CatalogStages:
		return "Etapa"
	case CatalogSamples:
		return "Muestra"
	case CatalogOrigins:
		return "Origen"
	default:
		return string(k)
	}
}

// CatalogEntry is a stage, sample, or origin.
type CatalogEntry struct {
	ID          int     `json:"id"`
	Name        string  `json:"nombre"`
	Description *string `json:"descripcion"`
}

// CatalogInput is the body for creating a catalog entry.
type CatalogInput struct {
	Name        string  `json:"nombre" validate:"required,max=100"`
	Description *string `json:"descripcion,omitempty"`
}

// CatalogUpdate is a partial catalog entry update.
type CatalogUpdate struct {
	Name        *string `json:"nombre,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"descripcion,omitempty"`
}

// Message is the {"message": ...} body returned by deletes and actions.
type Message struct {
	Message string `json:"message"`
}

// =============================================================================
// General laboratory records
// =============================================================================

// EntryKeys identifies a general-data record. Absent sample or origin
// travel as 0.
type EntryKeys struct {
	CycleID  int `json:"ciclo_id" validate:"gt=0"`
	StageID  int `json:"etapa_id" validate:"gt=0"`
	SampleID int `json:"muestra_id" validate:"gte=0"`
	OriginID int `json:"origen_id" validate:"gte=0"`
}

// Map returns the keys as body fields.
func (k EntryKeys) Map() map[string]any {
	return map[string]any{
		"ciclo_id":   k.CycleID,
		"etapa_id":   k.StageID,
		"muestra_id": k.SampleID,
		"origen_id":  k.OriginID,
	}
}

// Record is a laboratory record as the backend returns it. Numbers decode
// as float64 and JSON null as nil.
type Record map[string]any

// Float returns a numeric field. ok is false for missing, null, or
// non-numeric values.
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns an integer field such as "id" or "key", or 0.
func (r Record) Int(key string) int {
	f, ok := r.Float(key)
	if !ok || math.IsNaN(f) {
		return 0
	}
	return int(f)
}

// String returns a string field. ok is false for missing or null.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Ref decodes a nested catalog reference such as "etapa_ref".
func (r Record) Ref(key string) *CatalogEntry {
	m, ok := r[key].(map[string]any)
	if !ok {
		return nil
	}
	ref := &CatalogEntry{ID: Record(m).Int("id")}
	if name, ok := m["nombre"].(string); ok {
		ref.Name = name
	} else if name, ok := m["nombre_ciclo"].(string); ok {
		ref.Name = name
	}
	return ref
}

// Display formats a field for tables: "-" for null, fixed decimals for
// numbers when precision >= 0.
func (r Record) Display(key string, precision int) string {
	v, present := r[key]
	if !present || v == nil {
		return "-"
	}
	if f, ok := r.Float(key); ok {
		if precision >= 0 {
			return fmt.Sprintf("%.*f", precision, f)
		}
		return fmt.Sprint(f)
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// PlaceholderResult is returned by initialize_placeholders.
type PlaceholderResult struct {
	Message         string `json:"message"`
	MateriaPrimaKey int    `json:"materia_prima_key"`
	GubysKey        int    `json:"gubys_key"`
	CenizasKey      int    `json:"cenizas_key"`
	FormulacionKey  int    `json:"formulacion_key"`
}

// =============================================================================
// Processing batches
// =============================================================================

// Batch is a processing batch ("lote") grouping analysis entries.
type Batch struct {
	ID          int             `json:"id"`
	Label       string          `json:"identificador_lote"`
	At          strfmt.DateTime `json:"fecha_hora_lote"`
	Analysis    string          `json:"tipo_analisis"`
	Description *string         `json:"descripcion"`
	CreatedAt   strfmt.DateTime `json:"created_at"`
	UpdatedAt   strfmt.DateTime `json:"updated_at"`
}

// BatchInput is the body for creating a batch.
type BatchInput struct {
	Label       string          `json:"identificador_lote" validate:"required,max=100"`
	At          strfmt.DateTime `json:"fecha_hora_lote"`
	Analysis    string          `json:"tipo_analisis" validate:"required,oneof=nitrogeno cenizas"`
	Description *string         `json:"descripcion,omitempty"`
}

// BatchUpdate is a partial batch update.
type BatchUpdate struct {
	Label       *string          `json:"identificador_lote,omitempty" validate:"omitempty,min=1,max=100"`
	At          *strfmt.DateTime `json:"fecha_hora_lote,omitempty"`
	Description *string          `json:"descripcion,omitempty"`
}

// CatalogKeys identifies the general-data context of an analysis entry.
type CatalogKeys struct {
	CycleID  int `json:"ciclo_catalogo_id" validate:"gt=0"`
	StageID  int `json:"etapa_catalogo_id" validate:"gt=0"`
	SampleID int `json:"muestra_catalogo_id" validate:"gte=0"`
	OriginID int `json:"origen_catalogo_id" validate:"gte=0"`
}

// EntryKeys converts to the general-data key shape.
func (k CatalogKeys) EntryKeys() EntryKeys {
	return EntryKeys{CycleID: k.CycleID, StageID: k.StageID, SampleID: k.SampleID, OriginID: k.OriginID}
}

// CatalogKeysFrom converts general-data keys to analysis keys.
func CatalogKeysFrom(k EntryKeys) CatalogKeys {
	return CatalogKeys{CycleID: k.CycleID, StageID: k.StageID, SampleID: k.SampleID, OriginID: k.OriginID}
}

// entryRefs are the catalog references embedded in analysis entries.
type entryRefs struct {
	CycleRef  *Cycle        `json:"ciclo_catalogo_ref,omitempty"`
	StageRef  *CatalogEntry `json:"etapa_catalogo_ref,omitempty"`
	SampleRef *CatalogEntry `json:"muestra_catalogo_ref,omitempty"`
	OriginRef *CatalogEntry `json:"origen_catalogo_ref,omitempty"`
}

// NitrogenEntry is one nitrogen determination. Inputs follow the lab sheet
// variables a (sample weight), b (HCl normality), c (HCl volume).
type NitrogenEntry struct {
	ID      int `json:"id"`
	BatchID int `json:"ciclo_procesamiento_id"`
	CatalogKeys
	SampleWeightG *float64 `json:"peso_muestra_n_g"`
	HClNormality  *float64 `json:"n_hcl_normalidad"`
	HClVolumeCm3  *float64 `json:"vol_hcl_gastado_cm3"`

	TotalNitrogenPct *float64 `json:"calc_nitrogeno_organico_total_porc"`
	HumidityUsedPct  *float64 `json:"calc_humedad_usada_referencia_porc"`
	DryWeightG       *float64 `json:"calc_peso_seco_g"`
	DryNitrogenPct   *float64 `json:"calc_nitrogeno_base_seca_porc"`

	CreatedAt strfmt.DateTime `json:"created_at"`
	UpdatedAt strfmt.DateTime `json:"updated_at"`
	entryRefs
}

// NitrogenInput is the body for creating a nitrogen entry.
type NitrogenInput struct {
	BatchID int `json:"ciclo_procesamiento_id" validate:"gt=0"`
	CatalogKeys
	SampleWeightG *float64 `json:"peso_muestra_n_g"`
	HClNormality  *float64 `json:"n_hcl_normalidad"`
	HClVolumeCm3  *float64 `json:"vol_hcl_gastado_cm3"`
}

// NitrogenUpdate changes the measured inputs of a nitrogen entry.
type NitrogenUpdate struct {
	SampleWeightG *float64 `json:"peso_muestra_n_g,omitempty"`
	HClNormality  *float64 `json:"n_hcl_normalidad,omitempty"`
	HClVolumeCm3  *float64 `json:"vol_hcl_gastado_cm3,omitempty"`
}

// AshEntry is one ash determination: a empty crucible, b crucible with
// sample, c crucible with ash.
type AshEntry struct {
	ID      int `json:"id"`
	BatchID int `json:"ciclo_procesamiento_id"`
	CatalogKeys
	CrucibleG       *float64 `json:"peso_crisol_vacio_g"`
	CrucibleSampleG *float64 `json:"peso_crisol_mas_muestra_g"`
	CrucibleAshG    *float64 `json:"peso_crisol_mas_cenizas_g"`
	AshPct          *float64 `json:"calc_cenizas_porc"`

	CreatedAt strfmt.DateTime `json:"created_at"`
	UpdatedAt strfmt.DateTime `json:"updated_at"`
	entryRefs
}

// AshInput is the body for creating an ash entry.
type AshInput struct {
	BatchID int `json:"ciclo_procesamiento_id" validate:"gt=0"`
	CatalogKeys
	CrucibleG       *float64 `json:"peso_crisol_vacio_g"`
	CrucibleSampleG *float64 `json:"peso_crisol_mas_muestra_g"`
	CrucibleAshG    *float64 `json:"peso_crisol_mas_cenizas_g"`
}

// AshUpdate changes the measured inputs of an ash entry.
type AshUpdate struct {
	CrucibleG       *float64 `json:"peso_crisol_vacio_g,omitempty"`
	CrucibleSampleG *float64 `json:"peso_crisol_mas_muestra_g,omitempty"`
	CrucibleAshG    *float64 `json:"peso_crisol_mas_cenizas_g,omitempty"`
}

// AverageRequest asks the backend to average nitrogen results for one
// context into the general table, optionally from a single batch.
type AverageRequest struct {
	CatalogKeys
	BatchID *int `json:"ciclo_procesamiento_id,omitempty"`
}
