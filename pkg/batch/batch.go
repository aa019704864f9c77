// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package batch runs the analysis-batch workflows: processing batches
// ("lotes"), their nitrogen and ash entries, display-only previews of the
// backend formulas, and nitrogen averaging into the general table.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/go-playground/validator/v10"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/labcalc"
	"github.com/jinterlante1206/FunglusLab/pkg/logging"
	"github.com/jinterlante1206/FunglusLab/pkg/validation"
)

// Analysis types a batch may have.
const (
	Nitrogen = "nitrogeno"
	Ash      = "cenizas"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// API is the batch part of the laboratory client.
type API interface {
	CreateBatch(ctx context.Context, in labapi.BatchInput) (*labapi.Batch, error)
	ListBatches(ctx context.Context, analysis string) ([]labapi.Batch, error)
	GetBatch(ctx context.Context, id int) (*labapi.Batch, error)
	UpdateBatch(ctx context.Context, id int, in labapi.BatchUpdate) (*labapi.Batch, error)
	DeleteBatch(ctx context.Context, id int) (*labapi.Message, error)

	CreateNitrogenEntry(ctx context.Context, in labapi.NitrogenInput) (*labapi.NitrogenEntry, error)
	ListNitrogenEntries(ctx context.Context, batchID int) ([]labapi.NitrogenEntry, error)
	UpdateNitrogenEntry(ctx context.Context, id int, in labapi.NitrogenUpdate) (*labapi.NitrogenEntry, error)
	DeleteNitrogenEntry(ctx context.Context, id int) (*labapi.Message, error)
	AverageNitrogen(ctx context.Context, in labapi.AverageRequest) (*labapi.Message, error)

	CreateAshEntry(ctx context.Context, in labapi.AshInput) (*labapi.AshEntry, error)
	ListAshEntries(ctx context.Context, batchID int) ([]labapi.AshEntry, error)
	UpdateAshEntry(ctx context.Context, id int, in labapi.AshUpdate) (*labapi.AshEntry, error)
	DeleteAshEntry(ctx context.Context, id int) (*labapi.Message, error)

	GetOrCreateEntry(ctx context.Context, keys labapi.EntryKeys) (labapi.Record, error)
}

// Workbench wraps API with input checks and logging.
//
// Thread Safety: Safe for concurrent use; it holds no mutable state.
type Workbench struct {
	api    API
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Workbench.
type Option func(*Workbench)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Workbench) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock sets the clock used for batches created without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(w *Workbench) {
		if now != nil {
			w.now = now
		}
	}
}

// New creates a Workbench.
func New(api API, opts ...Option) *Workbench {
	w := &Workbench{api: api, logger: logging.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ParseTimestamp reads a batch timestamp. Empty input means now.
func ParseTimestamp(raw string, now func() time.Time) (strfmt.DateTime, error) {
	if raw == "" {
		return strfmt.DateTime(now().UTC().Truncate(time.Second)), nil
	}
	dt, err := strfmt.ParseDateTime(raw)
	if err != nil {
		return strfmt.DateTime{}, labapi.NewValidationError("fecha_hora_lote %q is not an RFC 3339 date-time", raw)
	}
	return dt, nil
}

// NewBatch describes a batch to create.
type NewBatch struct {
	Label       string
	At          string
	Analysis    string
	Description string
}

// CreateBatch validates nb and creates the batch.
//
// # Description
//
// The label is trimmed and checked, the analysis type normalized to
// "nitrogeno" or "cenizas", and an empty timestamp defaults to now.
//
// # Outputs
//
//   - *labapi.Batch: The stored batch.
//   - error: A validation APIError before any request, or the backend error.
func (w *Workbench) CreateBatch(ctx context.Context, nb NewBatch) (*labapi.Batch, error) {
	label, err := validation.SanitizeLabel("batch label", nb.Label)
	if err != nil {
		return nil, labapi.NewValidationError("%v", err)
	}
	analysis, err := validation.ValidateAnalysisType(nb.Analysis)
	if err != nil {
		return nil, labapi.NewValidationError("%v", err)
	}
	at, err := ParseTimestamp(nb.At, w.now)
	if err != nil {
		return nil, err
	}
	in := labapi.BatchInput{Label: label, At: at, Analysis: analysis}
	if nb.Description != "" {
		in.Description = &nb.Description
	}

	b, err := w.api.CreateBatch(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	w.logger.Info("batch created", "id", b.ID, "label", b.Label, "analysis", b.Analysis)
	return b, nil
}

// Batches lists the batches of one analysis type, newest first.
func (w *Workbench) Batches(ctx context.Context, analysis string) ([]labapi.Batch, error) {
	kind, err := validation.ValidateAnalysisType(analysis)
	if err != nil {
		return nil, labapi.NewValidationError("%v", err)
	}
	return w.api.ListBatches(ctx, kind)
}

// Batch returns one batch.
func (w *Workbench) Batch(ctx context.Context, id int) (*labapi.Batch, error) {
	return w.api.GetBatch(ctx, id)
}

// UpdateBatch changes label, timestamp or description. Empty strings leave
// a value unchanged.
func (w *Workbench) UpdateBatch(ctx context.Context, id int, label, at, description string) (*labapi.Batch, error) {
	var in labapi.BatchUpdate
	if label != "" {
		l, err := validation.SanitizeLabel("batch label", label)
		if err != nil {
			return nil, labapi.NewValidationError("%v", err)
		}
		in.Label = &l
	}
	if at != "" {
		dt, err := ParseTimestamp(at, w.now)
		if err != nil {
			return nil, err
		}
		in.At = &dt
	}
	if description != "" {
		in.Description = &description
	}
	if in.Label == nil && in.At == nil && in.Description == nil {
		return nil, labapi.NewValidationError("nothing to update")
	}
	return w.api.UpdateBatch(ctx, id, in)
}

// DeleteBatch removes a batch together with its entries and returns the
// backend's message.
func (w *Workbench) DeleteBatch(ctx context.Context, id int) (string, error) {
	msg, err := w.api.DeleteBatch(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete batch %d: %w", id, err)
	}
	w.logger.Info("batch deleted", "id", id)
	return msg.Message, nil
}

// Measurements are the three weighed or titrated inputs of an analysis
// entry: a, b, c on the lab sheet.
type Measurements struct {
	A, B, C *float64
}

func checkContext(batchID int, keys labapi.EntryKeys) error {
	if batchID <= 0 {
		return labapi.NewValidationError("a batch is required")
	}
	if err := validate.Struct(keys); err != nil {
		return labapi.NewValidationError("cycle and stage are required: %v", err)
	}
	return nil
}

// AddNitrogen records a nitrogen determination: a sample weight (g),
// b HCl normality, c HCl volume (cm3).
func (w *Workbench) AddNitrogen(ctx context.Context, batchID int, keys labapi.EntryKeys, m Measurements) (*labapi.NitrogenEntry, error) {
	if err := checkContext(batchID, keys); err != nil {
		return nil, err
	}
	e, err := w.api.CreateNitrogenEntry(ctx, labapi.NitrogenInput{
		BatchID:       batchID,
		CatalogKeys:   labapi.CatalogKeysFrom(keys),
		SampleWeightG: m.A,
		HClNormality:  m.B,
		HClVolumeCm3:  m.C,
	})
	if err != nil {
		return nil, fmt.Errorf("add nitrogen entry: %w", err)
	}
	return e, nil
}

// NitrogenEntries lists a batch's nitrogen entries.
func (w *Workbench) NitrogenEntries(ctx context.Context, batchID int) ([]labapi.NitrogenEntry, error) {
	return w.api.ListNitrogenEntries(ctx, batchID)
}

// UpdateNitrogen changes the inputs that are set in m.
func (w *Workbench) UpdateNitrogen(ctx context.Context, id int, m Measurements) (*labapi.NitrogenEntry, error) {
	return w.api.UpdateNitrogenEntry(ctx, id, labapi.NitrogenUpdate{SampleWeightG: m.A, HClNormality: m.B, HClVolumeCm3: m.C})
}

// DeleteNitrogen removes one entry.
func (w *Workbench) DeleteNitrogen(ctx context.Context, id int) (string, error) {
	msg, err := w.api.DeleteNitrogenEntry(ctx, id)
	if err != nil {
		return "", err
	}
	return msg.Message, nil
}

// AddAsh records an ash determination: a empty crucible, b crucible plus
// sample, c crucible plus ash, all in g. The backend requires a general
// record for keys and one entry per context and batch.
func (w *Workbench) AddAsh(ctx context.Context, batchID int, keys labapi.EntryKeys, m Measurements) (*labapi.AshEntry, error) {
	if err := checkContext(batchID, keys); err != nil {
		return nil, err
	}
	e, err := w.api.CreateAshEntry(ctx, labapi.AshInput{
		BatchID:         batchID,
		CatalogKeys:     labapi.CatalogKeysFrom(keys),
		CrucibleG:       m.A,
		CrucibleSampleG: m.B,
		CrucibleAshG:    m.C,
	})
	if err != nil {
		return nil, fmt.Errorf("add ash entry: %w", err)
	}
	return e, nil
}

// AshEntries lists a batch's ash entries.
func (w *Workbench) AshEntries(ctx context.Context, batchID int) ([]labapi.AshEntry, error) {
	return w.api.ListAshEntries(ctx, batchID)
}

// UpdateAsh changes the weights that are set in m.
func (w *Workbench) UpdateAsh(ctx context.Context, id int, m Measurements) (*labapi.AshEntry, error) {
	return w.api.UpdateAshEntry(ctx, id, labapi.AshUpdate{CrucibleG: m.A, CrucibleSampleG: m.B, CrucibleAshG: m.C})
}

// DeleteAsh removes one entry.
func (w *Workbench) DeleteAsh(ctx context.Context, id int) (string, error) {
	msg, err := w.api.DeleteAshEntry(ctx, id)
	if err != nil {
		return "", err
	}
	return msg.Message, nil
}

// Average pushes the mean nitrogen results of keys into the general table
// and returns the general record read back afterwards. batchID 0 averages
// across every batch.
func (w *Workbench) Average(ctx context.Context, keys labapi.EntryKeys, batchID int) (labapi.Record, error) {
	if err := validate.Struct(keys); err != nil {
		return nil, labapi.NewValidationError("cycle and stage are required: %v", err)
	}
	req := labapi.AverageRequest{CatalogKeys: labapi.CatalogKeysFrom(keys)}
	if batchID > 0 {
		req.BatchID = &batchID
	}
	msg, err := w.api.AverageNitrogen(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("average nitrogen: %w", err)
	}
	w.logger.Info("nitrogen averaged", "keys", keys, "batch_id", batchID, "message", msg.Message)

	rec, err := w.api.GetOrCreateEntry(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load general record: %w", err)
	}
	return rec, nil
}

// Humidity returns the humidity average of the general record for keys,
// the reference value the backend uses for dry-basis nitrogen. nil when
// the record has none yet.
func (w *Workbench) Humidity(ctx context.Context, keys labapi.EntryKeys) (*float64, error) {
	rec, err := w.api.GetOrCreateEntry(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load general record: %w", err)
	}
	if v, ok := rec.Float("humedad_prom_porc"); ok {
		return &v, nil
	}
	return nil, nil
}

// NitrogenPreview is the local rendition of the backend's nitrogen results.
// Display only; nothing here is submitted.
type NitrogenPreview struct {
	TotalPct   *float64
	DryWeightG *float64
	DryPct     *float64
}

// PreviewNitrogen applies the nitrogen formulas to m with the reference
// humidity in %.
func PreviewNitrogen(m Measurements, humidity *float64) NitrogenPreview {
	p := NitrogenPreview{TotalPct: labcalc.NitrogenTotal(m.A, m.B, m.C)}
	if p.TotalPct == nil {
		return p
	}
	p.DryWeightG = labcalc.DryWeight(m.A, humidity)
	p.DryPct = labcalc.NitrogenDry(m.B, m.C, p.DryWeightG)
	return p
}

// PreviewAsh is the local rendition of the backend's ash percentage. nil
// when an input is missing or b equals a.
func PreviewAsh(m Measurements) *float64 {
	return labcalc.AshPercent(m.A, m.B, m.C)
}
