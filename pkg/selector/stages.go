// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selector

import (
	"strings"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
)

// Dimension is one component of a record key.
type Dimension string

const (
	DimCycle  Dimension = "ciclo"
	DimStage  Dimension = "etapa"
	DimSample Dimension = "muestra"
	DimOrigin Dimension = "origen"
)

// Label returns the display name of the dimension.
func (d Dimension) Label() string {
	switch d {
	case DimCycle:
		return "Ciclo"
	case DimStage:
		return "Etapa"
	case DimSample:
		return "Muestra"
	case DimOrigin:
		return "Origen"
	default:
		return string(d)
	}
}

// Choice is one entry in a picker.
type Choice struct {
	Value string
	Label string
}

// StageDef declares which dimensions identify a stage's records and where
// their options come from.
type StageDef struct {
	// Key is the normalized stage name, e.g. "materia_prima".
	Key   string
	Label string

	// Keys lists the required dimensions besides the stage itself.
	Keys []Dimension

	SampleOptions []Choice

	// OriginOptions is used when OriginsBySample has no entry.
	OriginOptions   []Choice
	OriginsBySample map[string][]Choice

	// ResetOriginOnSample clears the origin whenever the sample changes.
	ResetOriginOnSample bool

	// Ledger is the per-cycle stage table, empty when the stage only has
	// general data.
	Ledger labapi.LedgerStage

	// CatalogDriven stages take sample and origin options from the
	// catalogs and treat both as optional.
	CatalogDriven bool
}

// Requires reports whether dim is a required key of the stage.
func (d StageDef) Requires(dim Dimension) bool {
	if dim == DimStage {
		return true
	}
	for _, k := range d.Keys {
		if k == dim {
			return true
		}
	}
	return false
}

// UsesSample reports whether the stage shows a sample picker.
func (d StageDef) UsesSample() bool {
	return d.CatalogDriven || d.Requires(DimSample)
}

// UsesOrigin reports whether the stage shows an origin picker.
func (d StageDef) UsesOrigin() bool {
	return d.CatalogDriven || d.Requires(DimOrigin)
}

// originsFor applies the sample lookup: upper-cased sample, falling back to
// OriginOptions, then to an empty list.
func (d StageDef) originsFor(sample string) []Choice {
	if d.OriginsBySample != nil {
		if opts, ok := d.OriginsBySample[strings.ToUpper(sample)]; ok {
			return cloneOptions(opts)
		}
		return []Choice{}
	}
	return cloneOptions(d.OriginOptions)
}

var unaccent = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n")

// StageKey normalizes a stage name: lower case, accents folded, whitespace
// to "_", dots removed. "Tamo Húmedo" becomes "tamo_humedo".
func StageKey(name string) string {
	fields := strings.Fields(unaccent.Replace(strings.ToLower(name)))
	key := strings.Join(fields, "_")
	return strings.ReplaceAll(key, ".", "")
}

var (
	originBodega  = Choice{Value: "BODEGA", Label: "Bodega"}
	originCamion1 = Choice{Value: "CAMION1", Label: "Camión 1"}
	originCamion2 = Choice{Value: "CAMION2", Label: "Camión 2"}
)

// DefaultStages returns the static stage table. Each call returns fresh
// slices, so callers may modify the result.
func DefaultStages() []StageDef {
	return []StageDef{
		{
			Key:   "materia_prima",
			Label: "Materia Prima",
			Keys:  []Dimension{DimCycle, DimOrigin, DimSample},
			SampleOptions: []Choice{
				{Value: "TAMO", Label: "Tamo"},
				{Value: "CASCARILLA", Label: "Cascarilla"},
				{Value: "GALLINAZA", Label: "Gallinaza"},
				{Value: "BAGAZO", Label: "Bagazo"},
			},
			OriginsBySample: map[string][]Choice{
				"TAMO": {
					originBodega,
					originCamion1,
					originCamion2,
					{Value: "CAMION3", Label: "Camión 3"},
					{Value: "CAMION4", Label: "Camión 4"},
				},
				"CASCARILLA": {originBodega, originCamion1},
				"GALLINAZA":  {originBodega, originCamion1, originCamion2},
				"BAGAZO": {
					originBodega,
					{Value: "CARMEN", Label: "Carmen"},
					{Value: "YALI", Label: "Yali"},
					{Value: "S.C", Label: "S.C"},
				},
			},
			ResetOriginOnSample: true,
			Ledger:              labapi.LedgerMateriaPrima,
		},
		{
			Key:   "gubys",
			Label: "Gubys",
			Keys:  []Dimension{DimCycle, DimOrigin},
			OriginOptions: []Choice{
				{Value: "ENTRADA", Label: "Entrada"},
				{Value: "SALIDA", Label: "Salida"},
			},
			Ledger: labapi.LedgerGubys,
		},
		{
			Key:   "tamo_humedo",
			Label: "Tamo Húmedo",
			Keys:  []Dimension{DimCycle, DimOrigin},
			OriginOptions: []Choice{
				{Value: "VOLTEO1", Label: "Volteo 1"},
				{Value: "VOLTEO2", Label: "Volteo 2"},
				{Value: "VOLTEO3", Label: "Volteo 3"},
				{Value: "VOLTEO4", Label: "Volteo 4"},
			},
		},
		{
			Key:   "formulacion",
			Label: "Formulación",
			Keys:  []Dimension{DimCycle, DimSample},
			SampleOptions: []Choice{
				{Value: "Lote A", Label: "Lote A Formulación"},
				{Value: "Lote B", Label: "Lote B Formulación"},
				{Value: "Estándar", Label: "Estándar Formulación"},
			},
			// origin is a data field here, not a key
			OriginOptions: []Choice{
				{Value: "MP Combinada", Label: "MP Combinada"},
				{Value: "Proceso Interno", Label: "Proceso Interno"},
			},
			Ledger: labapi.LedgerFormulacion,
		},
	}
}

// FindStage returns the static definition for a stage key or name.
func FindStage(keyOrName string) (StageDef, bool) {
	key := StageKey(keyOrName)
	for _, def := range DefaultStages() {
		if def.Key == key {
			return def, true
		}
	}
	return StageDef{}, false
}

// OriginOptionsFor returns the origin choices of a stage given the selected
// sample. Unknown stages and unknown samples yield an empty list.
func OriginOptionsFor(stageKey, sampleValue string) []Choice {
	def, ok := FindStage(stageKey)
	if !ok {
		return []Choice{}
	}
	return def.originsFor(sampleValue)
}

// catalogStage builds the definition used for catalog stages with no
// static entry.
func catalogStage(entry labapi.CatalogEntry, samples, origins []labapi.CatalogEntry) StageDef {
	return StageDef{
		Key:           StageKey(entry.Name),
		Label:         entry.Name,
		Keys:          []Dimension{DimCycle},
		SampleOptions: optionsFromCatalog(samples),
		OriginOptions: optionsFromCatalog(origins),
		CatalogDriven: true,
	}
}

func optionsFromCatalog(entries []labapi.CatalogEntry) []Choice {
	opts := make([]Choice, 0, len(entries))
	for _, e := range entries {
		opts = append(opts, Choice{Value: e.Name, Label: e.Name})
	}
	return opts
}

func cloneOptions(opts []Choice) []Choice {
	out := make([]Choice, len(opts))
	copy(out, opts)
	return out
}
