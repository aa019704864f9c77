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

	"github.com/jinterlante1206/FunglusLab/pkg/validation"
)

const (
	batchRoute    = "/ciclos-procesamiento/"
	nitrogenRoute = "/registros-nitrogeno/"
	ashRoute      = "/registros-cenizas/"
)

// =============================================================================
// Batches
// =============================================================================

// CreateBatch creates a processing batch.
func (c *Client) CreateBatch(ctx context.Context, in BatchInput) (*Batch, error) {
	kind, err := validation.ValidateAnalysisType(in.Analysis)
	if err != nil {
		return nil, NewValidationError("%v", err)
	}
	in.Analysis = kind
	if err := check(in); err != nil {
		return nil, err
	}
	var out Batch
	if err := c.do(ctx, call{method: http.MethodPost, route: batchRoute, path: batchRoute, body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBatches returns the batches of one analysis type, newest first.
func (c *Client) ListBatches(ctx context.Context, analysis string) ([]Batch, error) {
	kind, err := validation.ValidateAnalysisType(analysis)
	if err != nil {
		return nil, NewValidationError("%v", err)
	}
	var out []Batch
	err = c.do(ctx, call{
		method: http.MethodGet,
		route:  batchRoute + "{tipo}/",
		path:   batchRoute + kind + "/",
		query:  c.listQuery(),
		out:    &out,
	})
	return out, err
}

// GetBatch returns one batch.
func (c *Client) GetBatch(ctx context.Context, id int) (*Batch, error) {
	var out Batch
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  batchRoute + "id/{id}/",
		path:   fmt.Sprintf("%sid/%d/", batchRoute, id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBatch applies a partial update.
func (c *Client) UpdateBatch(ctx context.Context, id int, in BatchUpdate) (*Batch, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	var out Batch
	err := c.do(ctx, call{
		method: http.MethodPut,
		route:  batchRoute + "{id}/",
		path:   fmt.Sprintf("%s%d/", batchRoute, id),
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBatch removes a batch and all its entries.
func (c *Client) DeleteBatch(ctx context.Context, id int) (*Message, error) {
	var out Message
	err := c.do(ctx, call{
		method: http.MethodDelete,
		route:  batchRoute + "{id}/",
		path:   fmt.Sprintf("%s%d/", batchRoute, id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// Nitrogen entries
// =============================================================================

// CreateNitrogenEntry records a nitrogen determination.
func (c *Client) CreateNitrogenEntry(ctx context.Context, in NitrogenInput) (*NitrogenEntry, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	var out NitrogenEntry
	if err := c.do(ctx, call{method: http.MethodPost, route: nitrogenRoute, path: nitrogenRoute, body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNitrogenEntries returns the entries of one batch.
func (c *Client) ListNitrogenEntries(ctx context.Context, batchID int) ([]NitrogenEntry, error) {
	var out []NitrogenEntry
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  nitrogenRoute + "lote/{id}/",
		path:   fmt.Sprintf("%slote/%d/", nitrogenRoute, batchID),
		query:  c.listQuery(),
		out:    &out,
	})
	return out, err
}

// GetNitrogenEntry returns one entry.
func (c *Client) GetNitrogenEntry(ctx context.Context, id int) (*NitrogenEntry, error) {
	var out NitrogenEntry
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  nitrogenRoute + "{id}/",
		path:   fmt.Sprintf("%s%d/", nitrogenRoute, id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateNitrogenEntry changes measured inputs; the backend recomputes.
func (c *Client) UpdateNitrogenEntry(ctx context.Context, id int, in NitrogenUpdate) (*NitrogenEntry, error) {
	var out NitrogenEntry
	err := c.do(ctx, call{
		method: http.MethodPut,
		route:  nitrogenRoute + "{id}/",
		path:   fmt.Sprintf("%s%d/", nitrogenRoute, id),
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteNitrogenEntry removes one entry.
func (c *Client) DeleteNitrogenEntry(ctx context.Context, id int) (*Message, error) {
	var out Message
	err := c.do(ctx, call{
		method: http.MethodDelete,
		route:  nitrogenRoute + "{id}/",
		path:   fmt.Sprintf("%s%d/", nitrogenRoute, id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AverageNitrogen pushes the averaged nitrogen results of a context into
// the general-data record. The backend answers with a message only; read
// the record back to see the results.
func (c *Client) AverageNitrogen(ctx context.Context, in AverageRequest) (*Message, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	var out Message
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  nitrogenRoute + "acciones/promediar-y-actualizar-general/",
		path:   nitrogenRoute + "acciones/promediar-y-actualizar-general/",
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// Ash entries
// =============================================================================

// CreateAshEntry records an ash determination. A second entry for the same
// context in one batch is an HTTP 409.
func (c *Client) CreateAshEntry(ctx context.Context, in AshInput) (*AshEntry, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	var out AshEntry
	if err := c.do(ctx, call{method: http.MethodPost, route: ashRoute, path: ashRoute, body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAshEntries returns the entries of one batch.
func (c *Client) ListAshEntries(ctx context.Context, batchID int) ([]AshEntry, error) {
	var out []AshEntry
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  ashRoute + "lote/{id}/",
		path:   fmt.Sprintf("%slote/%d/", ashRoute, batchID),
		query:  c.listQuery(),
		out:    &out,
	})
	return out, err
}

// GetAshEntry returns one entry.
func (c *Client) GetAshEntry(ctx context.Context, id int) (*AshEntry, error) {
	var out AshEntry
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  ashRoute + "{id}/",
		path:   fmt.Sprintf("%s%d/", ashRoute, id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAshEntry changes measured inputs; the backend recomputes.
func (c *Client) UpdateAshEntry(ctx context.Context, id int, in AshUpdate) (*AshEntry, error) {
	var out AshEntry
	err := c.do(ctx, call{
		method: http.MethodPut,
		route:  ashRoute + "{id}/",
		path:   fmt.Sprintf("%s%d/", ashRoute, id),
		body:   in,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAshEntry removes one entry.
func (c *Client) DeleteAshEntry(ctx context.Context, id int) (*Message, error) {
	var out Message
	err := c.do(ctx, call{
		method: http.MethodDelete,
		route:  ashRoute + "{id}/",
		path:   fmt.Sprintf("%s%d/", ashRoute, id),
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
