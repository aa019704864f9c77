// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package labapi

import (
	"context"
	"fmt"
	"net/http"
)

const entryRoute = "/datos_laboratorio/entry"

// GetOrCreateEntry returns the general-data record for keys, creating an
// empty one when none exists.
func (c *Client) GetOrCreateEntry(ctx context.Context, keys EntryKeys) (Record, error) {
	if err := check(keys); err != nil {
		return nil, err
	}
	var out Record
	err := c.do(ctx, call{
		method: http.MethodPost,
		route:  entryRoute,
		path:   entryRoute,
		body:   keys,
		out:    &out,
	})
	return out, err
}

// UpdateEntry sends keys plus changed fields and returns the stored record.
// A nil field value clears it on the backend.
func (c *Client) UpdateEntry(ctx context.Context, keys EntryKeys, fields map[string]any) (Record, error) {
	if err := check(keys); err != nil {
		return nil, err
	}
	body := keys.Map()
	for k, v := range fields {
		if _, isKey := body[k]; isKey {
			continue
		}
		body[k] = v
	}
	var out Record
	err := c.do(ctx, call{
		method: http.MethodPut,
		route:  entryRoute,
		path:   entryRoute,
		body:   body,
		out:    &out,
	})
	return out, err
}

// DeleteEntry removes the general-data record identified by keys.
func (c *Client) DeleteEntry(ctx context.Context, keys EntryKeys) (*Message, error) {
	if err := check(keys); err != nil {
		return nil, err
	}
	var out Message
	err := c.do(ctx, call{
		method: http.MethodDelete,
		route:  entryRoute,
		path:   entryRoute,
		body:   keys,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEntriesByCycle returns every general-data record of a cycle, ordered
// by stage, sample, origin.
func (c *Client) ListEntriesByCycle(ctx context.Context, cycleID int) ([]Record, error) {
	if cycleID <= 0 {
		return nil, NewValidationError("cycle id must be positive, got %d", cycleID)
	}
	var out []Record
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/datos_laboratorio/ciclo/{id}",
		path:   fmt.Sprintf("/datos_laboratorio/ciclo/%d", cycleID),
		out:    &out,
	})
	return out, err
}
