// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package recordform

import (
	"context"
	"fmt"

	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
)

// GeneralAPI is the general-data part of the laboratory client.
type GeneralAPI interface {
	GetOrCreateEntry(ctx context.Context, keys labapi.EntryKeys) (labapi.Record, error)
	UpdateEntry(ctx context.Context, keys labapi.EntryKeys, fields map[string]any) (labapi.Record, error)
}

// GeneralBackend stores records in the general-data table, keyed by catalog
// ids.
type GeneralBackend struct {
	API GeneralAPI
}

// NewGeneralBackend wraps api.
func NewGeneralBackend(api GeneralAPI) *GeneralBackend {
	return &GeneralBackend{API: api}
}

// keys checks that every selected name resolved to a catalog id.
func (b *GeneralBackend) keys(tuple selector.Tuple) (labapi.EntryKeys, error) {
	switch {
	case tuple.Cycle.ID == 0:
		return labapi.EntryKeys{}, labapi.NewValidationError("ciclo %q no está en el catálogo", tuple.Cycle.Name)
	case tuple.Stage.ID == 0:
		return labapi.EntryKeys{}, labapi.NewValidationError("etapa %q no está en el catálogo", tuple.Stage.Name)
	case tuple.Sample.Name != "" && tuple.Sample.ID == 0:
		return labapi.EntryKeys{}, labapi.NewValidationError("muestra %q no está en el catálogo", tuple.Sample.Name)
	case tuple.Origin.Name != "" && tuple.Origin.ID == 0:
		return labapi.EntryKeys{}, labapi.NewValidationError("origen %q no está en el catálogo", tuple.Origin.Name)
	}
	return tuple.Keys(), nil
}

// Load implements Backend with POST /datos_laboratorio/entry.
func (b *GeneralBackend) Load(ctx context.Context, tuple selector.Tuple) (labapi.Record, error) {
	keys, err := b.keys(tuple)
	if err != nil {
		return nil, err
	}
	return b.API.GetOrCreateEntry(ctx, keys)
}

// Update implements Backend with PUT /datos_laboratorio/entry. The full key
// set always travels with the changed fields.
func (b *GeneralBackend) Update(ctx context.Context, tuple selector.Tuple, fields map[string]any) (labapi.Record, error) {
	keys, err := b.keys(tuple)
	if err != nil {
		return nil, err
	}
	return b.API.UpdateEntry(ctx, keys, fields)
}

// LedgerAPI is the stage-table part of the laboratory client.
type LedgerAPI interface {
	InitializePlaceholders(ctx context.Context, cycle string) (*labapi.PlaceholderResult, error)
	GetLedger(ctx context.Context, stage labapi.LedgerStage, cycle string) (labapi.Record, error)
	UpdateLedger(ctx context.Context, stage labapi.LedgerStage, cycle string, fields map[string]any) (labapi.Record, error)
}

// LedgerBackend stores records in the per-cycle stage tables, keyed by
// cycle name. Sample and origin travel as names in the body.
type LedgerBackend struct {
	API LedgerAPI
}

// NewLedgerBackend wraps api.
func NewLedgerBackend(api LedgerAPI) *LedgerBackend {
	return &LedgerBackend{API: api}
}

func ledgerStage(tuple selector.Tuple) (labapi.LedgerStage, error) {
	if tuple.Ledger == "" {
		return "", labapi.NewValidationError("la etapa %q no tiene tabla propia", tuple.StageKey)
	}
	if tuple.Cycle.Name == "" {
		return "", labapi.NewValidationError("cycle name is required")
	}
	return tuple.Ledger, nil
}

// Load implements Backend. A missing record triggers placeholder
// initialization for the cycle, then a second read.
func (b *LedgerBackend) Load(ctx context.Context, tuple selector.Tuple) (labapi.Record, error) {
	stage, err := ledgerStage(tuple)
	if err != nil {
		return nil, err
	}
	rec, err := b.API.GetLedger(ctx, stage, tuple.Cycle.Name)
	if err == nil {
		return rec, nil
	}
	if !labapi.IsNotFound(err) {
		return nil, err
	}
	if _, err := b.API.InitializePlaceholders(ctx, tuple.Cycle.Name); err != nil {
		return nil, fmt.Errorf("initialize cycle %q: %w", tuple.Cycle.Name, err)
	}
	return b.API.GetLedger(ctx, stage, tuple.Cycle.Name)
}

// Update implements Backend.
func (b *LedgerBackend) Update(ctx context.Context, tuple selector.Tuple, fields map[string]any) (labapi.Record, error) {
	stage, err := ledgerStage(tuple)
	if err != nil {
		return nil, err
	}
	body := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		body[k] = v
	}
	if tuple.Sample.Name != "" {
		body["muestra"] = tuple.Sample.Name
	}
	if tuple.Origin.Name != "" {
		body["origen"] = tuple.Origin.Name
	}
	return b.API.UpdateLedger(ctx, stage, tuple.Cycle.Name, body)
}

// BackendFor picks the backend and schema for a tuple: the stage table when
// the stage has one, the general-data table otherwise.
func BackendFor(tuple selector.Tuple, general GeneralAPI, ledger LedgerAPI) (Backend, Schema) {
	if tuple.Ledger != "" {
		if schema, ok := LedgerSchema(tuple.Ledger); ok {
			return NewLedgerBackend(ledger), schema
		}
	}
	return NewGeneralBackend(general), GeneralSchema
}
