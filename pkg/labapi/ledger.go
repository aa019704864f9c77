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
	"context"
	"net/http"
	"net/url"
	"strings"
)

// LedgerStage names a per-cycle stage table keyed by cycle name.
type LedgerStage string

const (
	LedgerMateriaPrima LedgerStage = "materia_prima"
	LedgerGubys        LedgerStage = "gubys"
	LedgerCenizas      LedgerStage = "cenizas"
	LedgerFormulacion  LedgerStage = "formulacion"
)

// LedgerStages lists every stage table.
var LedgerStages = []LedgerStage{LedgerMateriaPrima, LedgerGubys, LedgerCenizas, LedgerFormulacion}

// ParseLedgerStage validates a stage table name.
func ParseLedgerStage(s string) (LedgerStage, error) {
	for _, st := range LedgerStages {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", NewValidationError("unknown stage table %q", s)
}

// readPath and writePath differ because formulacion lives outside
// /laboratorio.
func (s LedgerStage) readPath(cycle string) (route, path string) {
	if s == LedgerFormulacion {
		return "/formulacion/ciclo/{ciclo}", "/formulacion/ciclo/" + url.PathEscape(cycle)
	}
	return "/laboratorio/" + string(s) + "/ciclo/{ciclo}", "/laboratorio/" + string(s) + "/ciclo/" + url.PathEscape(cycle)
}

func (s LedgerStage) writePath(cycle string) (route, path string) {
	if s == LedgerFormulacion {
		return "/formulacion/{ciclo}", "/formulacion/" + url.PathEscape(cycle)
	}
	return "/laboratorio/" + string(s) + "/{ciclo}", "/laboratorio/" + string(s) + "/" + url.PathEscape(cycle)
}

// InitializePlaceholders creates the cycle and an empty record in every
// stage table, reusing whatever already exists.
func (c *Client) InitializePlaceholders(ctx context.Context, cycle string) (*PlaceholderResult, error) {
	cycle = strings.TrimSpace(cycle)
	if cycle == "" {
		return nil, NewValidationError("cycle name is required")
	}
	var out PlaceholderResult
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/ciclos/{ciclo}/initialize_placeholders",
		path:   "/ciclos/" + url.PathEscape(cycle) + "/initialize_placeholders",
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DistinctCycles returns the cycle names that have stage data, newest
// first.
func (c *Client) DistinctCycles(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/ciclos/distinct",
		path:   "/ciclos/distinct",
		out:    &out,
	})
	return out, err
}

// GetLedger returns the stage record of a cycle.
func (c *Client) GetLedger(ctx context.Context, stage LedgerStage, cycle string) (Record, error) {
	route, path := stage.readPath(cycle)
	var out Record
	err := c.do(ctx, call{method: http.MethodGet, route: route, path: path, out: &out})
	return out, err
}

// UpdateLedger writes changed fields to the stage record of a cycle.
func (c *Client) UpdateLedger(ctx context.Context, stage LedgerStage, cycle string, fields map[string]any) (Record, error) {
	route, path := stage.writePath(cycle)
	var out Record
	err := c.do(ctx, call{method: http.MethodPut, route: route, path: path, body: fields, out: &out})
	return out, err
}
