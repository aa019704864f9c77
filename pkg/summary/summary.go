// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package summary builds the per-cycle matrix of general-data records.
package summary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/logging"
	"github.com/jinterlante1206/FunglusLab/pkg/recordform"
	"github.com/jinterlante1206/FunglusLab/pkg/telemetry"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
)

// ErrDeleteCancelled is returned when the user declines a deletion.
var ErrDeleteCancelled = errors.New("delete cancelled")

// API is the part of the laboratory client the view needs.
type API interface {
	ListEntriesByCycle(ctx context.Context, cycleID int) ([]labapi.Record, error)
	DeleteEntry(ctx context.Context, keys labapi.EntryKeys) (*labapi.Message, error)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Column is one matrix column.
type Column struct {
	Key       string
	Label     string
	Precision int
}

// identity columns resolve through the nested catalog reference.
var identityColumns = []struct {
	Column
	ref   string
	idKey string
}{
	{Column{Key: "etapa", Label: "Etapa", Precision: -1}, "etapa_ref", "etapa_id"},
	{Column{Key: "muestra", Label: "Muestra", Precision: -1}, "muestra_ref", "muestra_id"},
	{Column{Key: "origen", Label: "Origen", Precision: -1}, "origen_ref", "origen_id"},
}

var computedColumns = []Column{
	{Key: "humedad_prom_porc", Label: "H. Prom. (%)", Precision: 2},
	{Key: "fdr_prom_kgf", Label: "FDR Prom. (Kgf)", Precision: 3},
	{Key: "resultado_cenizas_porc", Label: "Cenizas Res. (%)", Precision: 2},
	{Key: "resultado_nitrogeno_total_porc", Label: "N Total Res. (%)", Precision: 2},
	{Key: "resultado_nitrogeno_seca_porc", Label: "N Seca Res. (%)", Precision: 2},
}

// Columns returns identity, metadata and computed columns. A key that
// appears twice keeps its first column.
func Columns() []Column {
	var all []Column
	for _, c := range identityColumns {
		all = append(all, c.Column)
	}
	for _, f := range recordform.GeneralSchema.Editable() {
		all = append(all, Column{Key: f.Key, Label: f.Label, Precision: f.Precision})
	}
	all = append(all, computedColumns...)

	seen := make(map[string]bool, len(all))
	out := make([]Column, 0, len(all))
	for _, c := range all {
		if seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		out = append(out, c)
	}
	return out
}

// Row is one record of the matrix.
type Row struct {
	Keys   labapi.EntryKeys
	Record labapi.Record
	Cells  []string
}

// identityCell names a catalog dimension: the reference name, "ID: n"
// without one, "N/A" for id 0.
func identityCell(rec labapi.Record, ref, idKey string) string {
	if r := rec.Ref(ref); r != nil && r.Name != "" {
		return r.Name
	}
	if id := rec.Int(idKey); id != 0 {
		return fmt.Sprintf("ID: %d", id)
	}
	return "N/A"
}

func buildRow(rec labapi.Record, columns []Column) Row {
	row := Row{
		Keys: labapi.EntryKeys{
			CycleID:  rec.Int("ciclo_id"),
			StageID:  rec.Int("etapa_id"),
			SampleID: rec.Int("muestra_id"),
			OriginID: rec.Int("origen_id"),
		},
		Record: rec,
		Cells:  make([]string, 0, len(columns)),
	}
	identity := make(map[string][2]string, len(identityColumns))
	for _, c := range identityColumns {
		identity[c.Key] = [2]string{c.ref, c.idKey}
	}
	for _, c := range columns {
		if id, ok := identity[c.Key]; ok {
			row.Cells = append(row.Cells, identityCell(rec, id[0], id[1]))
			continue
		}
		row.Cells = append(row.Cells, rec.Display(c.Key, c.Precision))
	}
	return row
}

// View is the summary of one cycle.
//
// Thread Safety: Safe for concurrent use.
type View struct {
	api       API
	confirmer Confirmer
	columns   []Column
	notice    *ux.Notice
	ttl       time.Duration
	logger    *logging.Logger

	mu      sync.Mutex
	cycleID int
	rows    []Row
}

// Option configures a View.
type Option func(*View)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(v *View) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithClock sets the message clock.
func WithClock(now func() time.Time) Option {
	return func(v *View) {
		v.notice = ux.NewNotice(now)
	}
}

// WithMessageTTL sets how long messages stay visible.
func WithMessageTTL(d time.Duration) Option {
	return func(v *View) {
		if d > 0 {
			v.ttl = d
		}
	}
}

// New creates a summary view. confirmer guards DeleteRow.
func New(api API, confirmer Confirmer, opts ...Option) *View {
	v := &View{
		api:       api,
		confirmer: confirmer,
		columns:   Columns(),
		notice:    ux.NewNotice(nil),
		ttl:       5 * time.Second,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load fetches every record of the cycle.
//
// # Outputs
//
//   - []Row: Rows in backend order (stage, sample, origin).
//   - error: On failure the rows are emptied and the message is posted to
//     Notice.
func (v *View) Load(ctx context.Context, cycleID int) ([]Row, error) {
	records, err := v.api.ListEntriesByCycle(ctx, cycleID)
	if err != nil {
		v.mu.Lock()
		v.cycleID, v.rows = cycleID, nil
		v.mu.Unlock()
		v.notice.Set(ux.NoticeError, "Error al cargar resumen: "+err.Error(), v.ttl)
		return nil, fmt.Errorf("load summary for cycle %d: %w", cycleID, err)
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, buildRow(rec, v.columns))
	}

	v.mu.Lock()
	v.cycleID, v.rows = cycleID, rows
	v.mu.Unlock()

	v.logger.Debug("summary loaded", "cycle_id", cycleID, "rows", len(rows))
	return append([]Row(nil), rows...), nil
}

// describe renders the identity of a row for prompts.
func (v *View) describe(keys labapi.EntryKeys) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range v.rows {
		if r.Keys == keys {
			return fmt.Sprintf("Etapa %s / Muestra %s / Origen %s", r.Cells[0], r.Cells[1], r.Cells[2])
		}
	}
	return fmt.Sprintf("etapa %d / muestra %d / origen %d", keys.StageID, keys.SampleID, keys.OriginID)
}

// DeleteRow asks for confirmation, deletes the record and reloads.
//
// # Outputs
//
//   - error: ErrDeleteCancelled when declined, otherwise the backend error.
func (v *View) DeleteRow(ctx context.Context, keys labapi.EntryKeys) error {
	if v.confirmer != nil {
		ok, err := v.confirmer.Confirm(ctx, fmt.Sprintf("¿Eliminar el registro %s? Esta acción no se puede deshacer.", v.describe(keys)))
		if err != nil {
			return fmt.Errorf("confirm delete: %w", err)
		}
		if !ok {
			v.notice.Set(ux.NoticeInfo, "Eliminación cancelada.", v.ttl)
			return ErrDeleteCancelled
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "funglus.summary", "SummaryView.DeleteRow")
	defer span.End()

	msg, err := v.api.DeleteEntry(ctx, keys)
	if err != nil {
		telemetry.RecordError(span, err)
		v.notice.Set(ux.NoticeError, "Error al eliminar: "+err.Error(), v.ttl)
		return fmt.Errorf("delete record: %w", err)
	}
	text := "Registro eliminado."
	if msg != nil && msg.Message != "" {
		text = msg.Message
	}
	v.notice.Set(ux.NoticeSuccess, text, v.ttl)
	v.logger.Info("summary row deleted", "cycle_id", keys.CycleID, "stage_id", keys.StageID,
		"sample_id", keys.SampleID, "origin_id", keys.OriginID)

	cycleID := keys.CycleID
	if cycleID == 0 {
		cycleID = v.CycleID()
	}
	_, err = v.Load(ctx, cycleID)
	return err
}

// CycleID returns the cycle of the last load.
func (v *View) CycleID() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cycleID
}

// Rows returns the rows of the last load.
func (v *View) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Row(nil), v.rows...)
}

// Headers returns the column labels.
func (v *View) Headers() []string {
	out := make([]string, len(v.columns))
	for i, c := range v.columns {
		out[i] = c.Label
	}
	return out
}

// Cells returns the rows as display strings.
func (v *View) Cells() [][]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]string, len(v.rows))
	for i, r := range v.rows {
		out[i] = r.Cells
	}
	return out
}

// Notice returns the view's user-visible message.
func (v *View) Notice() *ux.Notice {
	return v.notice
}
