// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package recordform edits one laboratory record identified by a resolved
// key tuple.
//
// A Form loads (or lazily creates) the record through a Backend, keeps the
// response as the baseline, buffers field edits, and submits only what
// changed. Derived fields are read from the last load and never sent.
package recordform

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-openapi/strfmt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/logging"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
	"github.com/jinterlante1206/FunglusLab/pkg/telemetry"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
)

var (
	// ErrNoChanges is returned by Submit when the buffer matches the baseline.
	ErrNoChanges = errors.New("no changes to submit")

	// ErrNotLoaded is returned when no record is loaded.
	ErrNotLoaded = errors.New("no record loaded")

	// ErrReadOnly is returned when editing a derived field.
	ErrReadOnly = errors.New("field is computed by the backend")

	// ErrUnknownField is returned for keys outside the schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidValue is returned when input cannot be parsed.
	ErrInvalidValue = errors.New("invalid value")
)

// Backend fetches and updates the record behind a key tuple.
type Backend interface {
	// Load returns the record for tuple, creating it when missing.
	Load(ctx context.Context, tuple selector.Tuple) (labapi.Record, error)

	// Update sends changed fields and returns the stored record.
	Update(ctx context.Context, tuple selector.Tuple, fields map[string]any) (labapi.Record, error)
}

// Form is the edit buffer of one record.
//
// Thread Safety: Safe for concurrent use; backend calls are made without
// holding the lock, so concurrent Load and Submit race at the backend.
type Form struct {
	backend Backend
	schema  Schema
	notice  *ux.Notice
	ttl     time.Duration
	logger  *logging.Logger

	mu       sync.Mutex
	tuple    selector.Tuple
	loaded   bool
	baseline labapi.Record
	values   map[string]any
}

// Option configures a Form.
type Option func(*Form)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithClock sets the message clock.
func WithClock(now func() time.Time) Option {
	return func(f *Form) {
		f.notice = ux.NewNotice(now)
	}
}

// WithMessageTTL sets how long messages stay visible.
func WithMessageTTL(d time.Duration) Option {
	return func(f *Form) {
		if d > 0 {
			f.ttl = d
		}
	}
}

// New creates an empty form.
func New(backend Backend, schema Schema, opts ...Option) *Form {
	f := &Form{
		backend: backend,
		schema:  schema,
		notice:  ux.NewNotice(nil),
		ttl:     5 * time.Second,
		logger:  logging.Nop(),
		values:  emptyValues(schema),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func emptyValues(s Schema) map[string]any {
	values := make(map[string]any)
	for _, fld := range s.Editable() {
		values[fld.Key] = nil
	}
	return values
}

// Schema returns the form's schema.
func (f *Form) Schema() Schema {
	return f.schema
}

// Notice returns the form's user-visible message.
func (f *Form) Notice() *ux.Notice {
	return f.notice
}

// Load fetches or creates the record for tuple.
//
// # Outputs
//
//   - error: On failure the buffer is reset to empty, the form is marked
//     not loaded, and the error is also posted to Notice.
func (f *Form) Load(ctx context.Context, tuple selector.Tuple) error {
	rec, err := f.backend.Load(ctx, tuple)
	if err != nil {
		f.reset()
		f.notice.Set(ux.NoticeError, "Error al cargar datos: "+err.Error(), f.ttl)
		f.logger.Warn("record load failed", "stage", tuple.StageKey, "keys", tuple.String(), "error", err)
		return fmt.Errorf("load record: %w", err)
	}

	f.mu.Lock()
	f.tuple = tuple
	f.adoptLocked(rec)
	f.mu.Unlock()

	f.notice.Set(ux.NoticeInfo, "Datos cargados/inicializados.", f.ttl)
	return nil
}

// adoptLocked makes rec the baseline and refills the buffer from it.
func (f *Form) adoptLocked(rec labapi.Record) {
	f.baseline = rec.Clone()
	f.values = make(map[string]any)
	for _, fld := range f.schema.Editable() {
		f.values[fld.Key] = normalize(fld, rec[fld.Key])
	}
	f.loaded = true
}

func (f *Form) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tuple = selector.Tuple{}
	f.loaded = false
	f.baseline = nil
	f.values = emptyValues(f.schema)
}

// Clear discards the loaded record. Wire it to the selector's OnClear.
func (f *Form) Clear() {
	f.reset()
}

// Loaded reports whether a record is loaded.
func (f *Form) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// Tuple returns the key of the loaded record.
func (f *Form) Tuple() selector.Tuple {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tuple
}

// SetField parses raw input into the buffer.
//
// # Description
//
// Empty input stores nil (JSON null). Number fields accept "," as the
// decimal separator and reject NaN and infinities. Date fields must be
// YYYY-MM-DD. Invalid input leaves the buffer unchanged.
func (f *Form) SetField(key, raw string) error {
	return f.SetFields([][2]string{{key, raw}})
}

// SetFields applies key/raw pairs in order. Every value is parsed before
// any is stored, so one invalid pair leaves the whole buffer unchanged.
func (f *Form) SetFields(pairs [][2]string) error {
	parsed := make([]any, len(pairs))
	for i, kv := range pairs {
		value, err := f.parseField(kv[0], kv[1])
		if err != nil {
			return err
		}
		parsed[i] = value
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return ErrNotLoaded
	}
	for i, kv := range pairs {
		f.values[kv[0]] = parsed[i]
	}
	return nil
}

func (f *Form) parseField(key, raw string) (any, error) {
	fld, ok := f.schema.Field(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if fld.Derived {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, fld.Label)
	}
	return Parse(fld, raw)
}

// Parse converts raw input for fld: nil for empty input, float64 for
// numbers, string otherwise.
func Parse(fld Field, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	switch fld.Kind {
	case KindNumber:
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s expects a number, got %q", ErrInvalidValue, fld.Label, raw)
		}
		return v, nil
	case KindDate:
		if !strfmt.IsDate(s) {
			return nil, fmt.Errorf("%w: %s expects YYYY-MM-DD, got %q", ErrInvalidValue, fld.Label, raw)
		}
		return s, nil
	default:
		if len(fld.Options) > 0 {
			for _, o := range fld.Options {
				if strings.EqualFold(o, s) {
					return o, nil
				}
			}
			return nil, fmt.Errorf("%w: %s must be one of %s", ErrInvalidValue, fld.Label, strings.Join(fld.Options, ", "))
		}
		return s, nil
	}
}

// normalize maps a backend value into buffer form. Dates keep only the
// YYYY-MM-DD part.
func normalize(fld Field, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if fld.Kind == KindNumber {
			return x
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		if x == "" {
			return nil
		}
		if fld.Kind == KindNumber {
			if p, err := strconv.ParseFloat(x, 64); err == nil {
				return p
			}
			return nil
		}
		if fld.Kind == KindDate && len(x) > 10 && strfmt.IsDate(x[:10]) {
			return x[:10]
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Value returns the buffered value of key.
func (f *Form) Value(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

// Input returns the buffered value formatted for an input box.
func (f *Form) Input(key string) string {
	switch v := f.Value(key).(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Baseline returns a copy of the last loaded record.
func (f *Form) Baseline() labapi.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.baseline == nil {
		return nil
	}
	return f.baseline.Clone()
}

// Changes returns the editable fields whose buffered value differs from the
// baseline.
func (f *Form) Changes() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changesLocked()
}

func (f *Form) changesLocked() map[string]any {
	changes := make(map[string]any)
	for _, fld := range f.schema.Editable() {
		current := f.values[fld.Key]
		base := normalize(fld, f.baseline[fld.Key])
		if current != base {
			changes[fld.Key] = current
		}
	}
	return changes
}

// Submit sends the changed fields and reloads the record.
//
// # Outputs
//
//   - labapi.Record: The reloaded record, including backend-computed fields.
//   - error: ErrNotLoaded, ErrNoChanges, or the backend error. On a backend
//     error the buffer is left as it was.
func (f *Form) Submit(ctx context.Context) (labapi.Record, error) {
	f.mu.Lock()
	if !f.loaded {
		f.mu.Unlock()
		return nil, ErrNotLoaded
	}
	tuple := f.tuple
	changes := f.changesLocked()
	f.mu.Unlock()

	if len(changes) == 0 {
		f.notice.Set(ux.NoticeInfo, "No hay cambios para guardar.", f.ttl)
		return nil, ErrNoChanges
	}

	ctx, span := telemetry.StartSpan(ctx, "funglus.recordform", "RecordForm.Submit",
		trace.WithAttributes(
			attribute.String("stage", tuple.StageKey),
			attribute.Int("fields", len(changes)),
		),
	)
	defer span.End()

	updated, err := f.backend.Update(ctx, tuple, changes)
	if err != nil {
		telemetry.RecordError(span, err)
		f.notice.Set(ux.NoticeError, "Error al actualizar: "+err.Error(), f.ttl)
		f.logger.Warn("record update failed", "stage", tuple.StageKey, "keys", tuple.String(),
			"trace_id", telemetry.TraceID(ctx), "error", err)
		return nil, fmt.Errorf("submit record: %w", err)
	}

	rec, err := f.backend.Load(ctx, tuple)
	if err != nil {
		f.logger.Warn("reload after submit failed; using update response", "error", err)
		rec = updated
	}

	f.mu.Lock()
	f.adoptLocked(rec)
	f.mu.Unlock()

	f.notice.Set(ux.NoticeSuccess, "Registro actualizado.", f.ttl)
	f.logger.Info("record updated", "stage", tuple.StageKey, "keys", tuple.String(), "fields", len(changes))
	return rec.Clone(), nil
}

// Preview computes derived values from the current buffer for display.
// Fields without a local formula are omitted; nothing here is submitted.
func (f *Form) Preview() map[string]*float64 {
	f.mu.Lock()
	buffer := f.baseline.Clone()
	for k, v := range f.values {
		buffer[k] = v
	}
	f.mu.Unlock()

	out := make(map[string]*float64)
	for _, fld := range f.schema.Derived() {
		if fld.Compute != nil {
			out[fld.Key] = fld.Compute(buffer)
		}
	}
	return out
}

// Display formats a field of the last loaded record.
func (f *Form) Display(key string) string {
	fld, ok := f.schema.Field(key)
	precision := -1
	if ok {
		precision = fld.Precision
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseline.Display(key, precision)
}
