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
	"fmt"
	"net/http"
)

// =============================================================================
// Cycles
// =============================================================================

// ListCycles returns the first catalog page of cycles.
func (c *Client) ListCycles(ctx context.Context) ([]Cycle, error) {
	var out []Cycle
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/catalogos/ciclos/",
		path:   "/catalogos/ciclos/",
		query:  c.listQuery(),
		out:    &out,
	})
	return out, err
}

// GetCycle returns one cycle by id.
func (c *Client) GetCycle(ctx context.Context, id int) (*Cycle, error) {
	var out Cycle
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/catalogos/ciclos/{id}",
		path:   fmt.Sprintf("/catalogos/ciclos/%d", id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCycle creates a cycle. A duplicate name is an HTTP 400.
func (c *Client) CreateCycle(ctx context.Context, in CycleInput) (*Cycle, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	var out Cycle
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/catalogos/ciclos/",
		path:   "/catalogos/ciclos/",
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCycle applies a partial update.
func (c *Client) UpdateCycle(ctx context.Context, id int, in CycleUpdate) (*Cycle, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	var out Cycle
	err := c.do(ctx, call{
		method: http.MethodPut,
		route:  "/catalogos/ciclos/{id}",
		path:   fmt.Sprintf("/catalogos/ciclos/%d", id),
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCycle removes a cycle. The backend refuses cycles still in use.
func (c *Client) DeleteCycle(ctx context.Context, id int) (*Message, error) {
	var out Message
	err := c.do(ctx, call{
		method: http.MethodDelete,
		route:  "/catalogos/ciclos/{id}",
		path:   fmt.Sprintf("/catalogos/ciclos/%d", id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// Stages, samples, origins
// =============================================================================

// ListCatalog returns the first page of a simple catalog.
func (c *Client) ListCatalog(ctx context.Context, kind CatalogKind) ([]CatalogEntry, error) {
	var out []CatalogEntry
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/catalogos/" + string(kind) + "/",
		path:   "/catalogos/" + string(kind) + "/",
		query:  c.listQuery(),
		out:    &out,
	})
	return out, err
}

// GetCatalogEntry returns one stage, sample, or origin.
func (c *Client) GetCatalogEntry(ctx context.Context, kind CatalogKind, id int) (*CatalogEntry, error) {
	var out CatalogEntry
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/catalogos/" + string(kind) + "/{id}",
		path:   fmt.Sprintf("/catalogos/%s/%d", kind, id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCatalogEntry adds a stage, sample, or origin.
func (c *Client) CreateCatalogEntry(ctx context.Context, kind CatalogKind, in CatalogInput) (*CatalogEntry, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	var out CatalogEntry
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  "/catalogos/" + string(kind) + "/",
		path:   "/catalogos/" + string(kind) + "/",
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCatalogEntry applies a partial update.
func (c *Client) UpdateCatalogEntry(ctx context.Context, kind CatalogKind, id int, in CatalogUpdate) (*CatalogEntry, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	var out CatalogEntry
	err := c.do(ctx, call{
		method: http.MethodPut,
		route:  "/catalogos/" + string(kind) + "/{id}",
		path:   fmt.Sprintf("/catalogos/%s/%d", kind, id),
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCatalogEntry removes a stage, sample, or origin.
func (c *Client) DeleteCatalogEntry(ctx context.Context, kind CatalogKind, id int) (*Message, error) {
	var out Message
	err := c.do(ctx, call{
		method: http.MethodDelete,
		route:  "/catalogos/" + string(kind) + "/{id}",
		path:   fmt.Sprintf("/catalogos/%s/%d", kind, id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
