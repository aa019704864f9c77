// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"go.opentelemetry.io/otel/attribute"
)

// GetOrCreateEntry serves POST /datos_laboratorio/entry.
func (h *Handlers) GetOrCreateEntry(c *gin.Context) {
	var keys labapi.EntryKeys
	if !bind(c, &keys) {
		return
	}
	rec, created, err := h.store.GetOrCreateEntry(keys)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.count(c, loaded, "general", attribute.Bool("created", created))
	if created {
		h.logger.Info("general record created", "id", rec.Int("id"), "ciclo_id", keys.CycleID,
			"etapa_id", keys.StageID, "muestra_id", keys.SampleID, "origen_id", keys.OriginID)
	}
	c.JSON(http.StatusOK, rec)
}

// keysFromBody splits the key columns out of an update body. Missing
// sample or origin default to 0.
func keysFromBody(body labapi.Record) (labapi.EntryKeys, labapi.Record, error) {
	if _, ok := body.Float("ciclo_id"); !ok {
		return labapi.EntryKeys{}, nil, errors.New("ciclo_id is required")
	}
	if _, ok := body.Float("etapa_id"); !ok {
		return labapi.EntryKeys{}, nil, errors.New("etapa_id is required")
	}
	keys := labapi.EntryKeys{
		CycleID:  body.Int("ciclo_id"),
		StageID:  body.Int("etapa_id"),
		SampleID: body.Int("muestra_id"),
		OriginID: body.Int("origen_id"),
	}
	fields := make(labapi.Record, len(body))
	for k, v := range body {
		switch k {
		case "ciclo_id", "etapa_id", "muestra_id", "origen_id":
		default:
			fields[k] = v
		}
	}
	return keys, fields, nil
}

// UpdateEntry serves PUT /datos_laboratorio/entry.
func (h *Handlers) UpdateEntry(c *gin.Context) {
	var body labapi.Record
	if err := c.ShouldBindJSON(&body); err != nil {
		invalid(c, "body", err)
		return
	}
	keys, fields, err := keysFromBody(body)
	if err != nil {
		invalid(c, "body", err)
		return
	}
	rec, err := h.store.UpdateEntry(keys, fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.count(c, updated, "general")
	c.JSON(http.StatusOK, rec)
}

// DeleteEntry serves DELETE /datos_laboratorio/entry with the keys in the
// body.
func (h *Handlers) DeleteEntry(c *gin.Context) {
	var keys labapi.EntryKeys
	if !bind(c, &keys) {
		return
	}
	if err := h.store.DeleteEntry(keys); err != nil {
		h.fail(c, err)
		return
	}
	h.count(c, deleted, "general")
	h.logger.Info("general record deleted", "ciclo_id", keys.CycleID, "etapa_id", keys.StageID,
		"muestra_id", keys.SampleID, "origen_id", keys.OriginID)
	message(c, "Entrada de Datos Generales borrada exitosamente")
}

// ListEntriesByCycle serves GET /datos_laboratorio/ciclo/:id.
func (h *Handlers) ListEntriesByCycle(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	skip, limit := listWindow(c)
	c.JSON(http.StatusOK, h.store.ListEntriesByCycle(id, skip, limit))
}

// InitializePlaceholders serves POST /ciclos/:ciclo/initialize_placeholders.
func (h *Handlers) InitializePlaceholders(c *gin.Context) {
	res, err := h.store.InitializePlaceholders(c.Param("ciclo"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DistinctCycles serves GET /ciclos/distinct.
func (h *Handlers) DistinctCycles(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.DistinctCycles())
}

// GetLedger returns the handler reading one stage table.
func (h *Handlers) GetLedger(stage labapi.LedgerStage) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.store.GetLedger(stage, c.Param("ciclo"))
		if err != nil {
			h.fail(c, err)
			return
		}
		h.count(c, loaded, string(stage), attribute.Bool("created", false))
		c.JSON(http.StatusOK, rec)
	}
}

// UpdateLedger returns the handler writing one stage table.
func (h *Handlers) UpdateLedger(stage labapi.LedgerStage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body labapi.Record
		if err := c.ShouldBindJSON(&body); err != nil {
			invalid(c, "body", err)
			return
		}
		rec, err := h.store.UpdateLedger(stage, c.Param("ciclo"), body)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.count(c, updated, string(stage))
		c.JSON(http.StatusOK, rec)
	}
}
