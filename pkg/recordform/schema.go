// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package recordform

import (
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/labcalc"
)

// Kind is the input type of a field.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// Field declares one record field.
type Field struct {
	Key   string
	Label string
	Kind  Kind

	// Derived fields are computed by the backend and never submitted.
	Derived bool

	// Precision is the number of display decimals, -1 for as-is.
	Precision int

	// Options restricts text input to fixed choices.
	Options []string

	// Compute previews a derived value from the edit buffer.
	Compute func(labapi.Record) *float64
}

// Schema is the field list of one record type.
type Schema struct {
	Name   string
	Fields []Field
}

// Editable returns the fields the user may change.
func (s Schema) Editable() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if !f.Derived {
			out = append(out, f)
		}
	}
	return out
}

// Derived returns the backend-computed fields.
func (s Schema) Derived() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Derived {
			out = append(out, f)
		}
	}
	return out
}

// Field looks up a field by key.
func (s Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

func num(key, label string) Field {
	return Field{Key: key, Label: label, Kind: KindNumber, Precision: -1}
}

func date(key, label string) Field {
	return Field{Key: key, Label: label, Kind: KindDate, Precision: -1}
}

func derived(key, label string, precision int, compute func(labapi.Record) *float64) Field {
	return Field{Key: key, Label: label, Kind: KindNumber, Derived: true, Precision: precision, Compute: compute}
}

// ptr reads a numeric field as a pointer.
func ptr(r labapi.Record, key string) *float64 {
	if v, ok := r.Float(key); ok {
		return &v
	}
	return nil
}

func mean(places int, keys ...string) func(labapi.Record) *float64 {
	return func(r labapi.Record) *float64 {
		values := make([]*float64, len(keys))
		for i, k := range keys {
			values[i] = ptr(r, k)
		}
		return labcalc.Mean(places, values...)
	}
}

func formulacion(pick func(labcalc.FormulacionResult) *float64) func(labapi.Record) *float64 {
	return func(r labapi.Record) *float64 {
		return pick(labcalc.Formulacion(labcalc.FormulacionInput{
			Peso:          ptr(r, "peso"),
			HpromEntrada:  ptr(r, "hprom_entrada"),
			PorcNEntrada:  ptr(r, "porc_n_entrada"),
			PorcCzEntrada: ptr(r, "porc_cz_entrada"),
			CKg:           ptr(r, "c_kg"),
		}))
	}
}

// GeneralSchema is the general-data record: editable metadata plus the
// averages and analysis results the backend fills in.
var GeneralSchema = Schema{
	Name: "datos_generales",
	Fields: []Field{
		date("fecha_ingreso", "Fecha Ingreso"),
		date("fecha_procesamiento", "Fecha Procesamiento"),
		num("peso_h1_g", "Peso H1 (g)"),
		num("peso_h2_g", "Peso H2 (g)"),
		num("humedad_1_porc", "Humedad 1 (%)"),
		num("humedad_2_porc", "Humedad 2 (%)"),
		num("peso_ph_g", "Peso pH (g)"),
		num("ph_valor", "Valor pH"),
		num("fdr_1_kgf", "FDR 1 (Kgf)"),
		num("fdr_2_kgf", "FDR 2 (Kgf)"),
		num("fdr_3_kgf", "FDR 3 (Kgf)"),
		derived("humedad_prom_porc", "H. Prom. (%)", 2, mean(3, "humedad_1_porc", "humedad_2_porc")),
		derived("fdr_prom_kgf", "FDR Prom. (Kgf)", 3, mean(3, "fdr_1_kgf", "fdr_2_kgf", "fdr_3_kgf")),
		derived("resultado_cenizas_porc", "Cenizas Res. (%)", 2, nil),
		derived("resultado_nitrogeno_total_porc", "N Total Res. (%)", 2, nil),
		derived("resultado_nitrogeno_seca_porc", "N Seca Res. (%)", 2, nil),
	},
}

// MateriaPrimaSchema is the raw-material stage table.
var MateriaPrimaSchema = Schema{
	Name: "materia_prima",
	Fields: []Field{
		date("fecha_i", "Fecha Inicio"),
		date("fecha_p", "Fecha Pesaje"),
		num("p1h1", "P1H1"),
		num("p2h2", "P2H2"),
		num("porc_h1", "%H1"),
		num("porc_h2", "%H2"),
		num("p_ph", "P_PH"),
		num("ph", "PH"),
		num("d1", "d1"),
		num("d2", "d2"),
		num("d3", "d3"),
		derived("hprom", "Hprom (Calculado)", 3, mean(3, "porc_h1", "porc_h2")),
		derived("dprom", "Dprom (Calculado)", 3, mean(3, "d1", "d2", "d3")),
	},
}

// GubysSchema is the Gubys stage table.
var GubysSchema = Schema{
	Name: "gubys",
	Fields: []Field{
		date("fecha_i", "Fecha Inicio"),
		date("fecha_p", "Fecha Pesaje"),
		num("p1h1", "P1H1"),
		num("p2h2", "P2H2"),
		num("porc_h1", "%H1"),
		num("porc_h2", "%H2"),
		num("p_ph", "P_PH"),
		num("ph", "PH"),
		derived("hprom", "Hprom (Calculado)", 3, mean(3, "porc_h1", "porc_h2")),
	},
}

// CenizasSchema is the per-cycle ash table.
var CenizasSchema = Schema{
	Name: "cenizas",
	Fields: []Field{
		date("fecha_i", "Fecha Inicio"),
		num("p1", "P1"),
		num("p2", "P2"),
		num("p3", "P3"),
		num("porc_cz", "%Cz"),
	},
}

// FormulacionSchema is the formulation table. Fractions are decimals.
var FormulacionSchema = Schema{
	Name: "formulacion",
	Fields: []Field{
		num("peso", "Peso (kg)"),
		{Key: "origen", Label: "Origen", Kind: KindText, Precision: -1, Options: []string{"MP Combinada", "Proceso Interno"}},
		num("porc_n_entrada", "%N Entrada"),
		num("porc_cz_entrada", "%Cz Entrada"),
		num("hprom_entrada", "Hprom Entrada"),
		derived("ms_kg", "M.S. (kg)", 3, formulacion(func(r labcalc.FormulacionResult) *float64 { return r.MsKg })),
		derived("n_kg", "N (kg)", 3, formulacion(func(r labcalc.FormulacionResult) *float64 { return r.NKg })),
		derived("porc_n_ms", "%N M.S.", 2, formulacion(func(r labcalc.FormulacionResult) *float64 { return r.PorcNMs })),
		derived("cz_kg", "Cz (kg)", 3, formulacion(func(r labcalc.FormulacionResult) *float64 { return r.CzKg })),
		derived("porc_cz_ms", "%Cz M.S.", 2, formulacion(func(r labcalc.FormulacionResult) *float64 { return r.PorcCzMs })),
		derived("c_kg", "C (kg)", 3, nil),
		derived("c_n_ratio", "C/N", 2, formulacion(func(r labcalc.FormulacionResult) *float64 { return r.CNRatio })),
		derived("mos_kg", "M.O.S. (kg)", 3, formulacion(func(r labcalc.FormulacionResult) *float64 { return r.MosKg })),
		derived("porc_n_mos", "%N M.O.S.", 2, nil),
		derived("porc_cz_mos", "%Cz M.O.S.", 2, nil),
	},
}

// LedgerSchema returns the schema of a stage table.
func LedgerSchema(stage labapi.LedgerStage) (Schema, bool) {
	switch stage {
	case labapi.LedgerMateriaPrima:
		return MateriaPrimaSchema, true
	case labapi.LedgerGubys:
		return GubysSchema, true
	case labapi.LedgerCenizas:
		return CenizasSchema, true
	case labapi.LedgerFormulacion:
		return FormulacionSchema, true
	default:
		return Schema{}, false
	}
}
