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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/validation"
)

// CreateBatch serves POST /ciclos-procesamiento/.
func (h *Handlers) CreateBatch(c *gin.Context) {
	var in labapi.BatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		invalid(c, "body", err)
		return
	}
	kind, err := validation.ValidateAnalysisType(in.Analysis)
	if err != nil {
		invalid(c, "tipo_analisis", err)
		return
	}
	in.Analysis = kind
	if time.Time(in.At).IsZero() {
		invalid(c, "fecha_hora_lote", errors.New("field required"))
		return
	}
	if err := validate.Struct(in); err != nil {
		invalid(c, "body", err)
		return
	}
	b := h.store.CreateBatch(in)
	h.logger.Info("batch created", "id", b.ID, "label", b.Label, "analysis", b.Analysis)
	c.JSON(http.StatusCreated, b)
}

// ListBatches serves GET /ciclos-procesamiento/:tipo/.
func (h *Handlers) ListBatches(c *gin.Context) {
	kind, err := validation.ValidateAnalysisType(c.Param("tipo"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"detail": "Tipo de análisis no válido. Debe ser 'nitrogeno' o 'cenizas'.",
		})
		return
	}
	skip, limit := listWindow(c)
	c.JSON(http.StatusOK, h.store.ListBatches(kind, skip, limit))
}

// GetBatch serves GET /ciclos-procesamiento/id/:id/.
func (h *Handlers) GetBatch(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	b, err := h.store.GetBatch(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// UpdateBatch serves PUT /ciclos-procesamiento/:id/.
func (h *Handlers) UpdateBatch(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var in labapi.BatchUpdate
	if !bind(c, &in) {
		return
	}
	b, err := h.store.UpdateBatch(id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DeleteBatch serves DELETE /ciclos-procesamiento/:id/ and cascades to the
// batch's entries.
func (h *Handlers) DeleteBatch(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	removed, err := h.store.DeleteBatch(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.count(c, deleted, "ciclo_procesamiento")
	h.logger.Info("batch deleted", "id", id, "entries", removed)
	message(c, "Ciclo de procesamiento y sus registros asociados borrados exitosamente.")
}

// CreateNitrogen serves POST /registros-nitrogeno/.
func (h *Handlers) CreateNitrogen(c *gin.Context) {
	var in labapi.NitrogenInput
	if !bind(c, &in) {
		return
	}
	e, err := h.store.CreateNitrogen(in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// ListNitrogen serves GET /registros-nitrogeno/lote/:id/.
func (h *Handlers) ListNitrogen(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	skip, limit := listWindow(c)
	c.JSON(http.StatusOK, h.store.ListNitrogen(id, skip, limit))
}

// GetNitrogen serves GET /registros-nitrogeno/:id/.
func (h *Handlers) GetNitrogen(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	e, err := h.store.GetNitrogen(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// UpdateNitrogen serves PUT /registros-nitrogeno/:id/.
func (h *Handlers) UpdateNitrogen(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var in labapi.NitrogenUpdate
	if !bind(c, &in) {
		return
	}
	e, err := h.store.UpdateNitrogen(id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.count(c, updated, "nitrogeno")
	c.JSON(http.StatusOK, e)
}

// DeleteNitrogen serves DELETE /registros-nitrogeno/:id/.
func (h *Handlers) DeleteNitrogen(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteNitrogen(id); err != nil {
		h.fail(c, err)
		return
	}
	h.count(c, deleted, "nitrogeno")
	message(c, "Registro de análisis de nitrógeno borrado exitosamente.")
}

// AverageNitrogen serves POST
// /registros-nitrogeno/acciones/promediar-y-actualizar-general/.
func (h *Handlers) AverageNitrogen(c *gin.Context) {
	var req labapi.AverageRequest
	if !bind(c, &req) {
		return
	}
	if _, err := h.store.AverageNitrogen(req); err != nil {
		h.fail(c, err)
		return
	}
	h.count(c, averaged, "general")
	message(c, "Promedios de nitrógeno actualizados en la tabla general exitosamente.")
}

// CreateAsh serves POST /registros-cenizas/.
func (h *Handlers) CreateAsh(c *gin.Context) {
	var in labapi.AshInput
	if !bind(c, &in) {
		return
	}
	e, err := h.store.CreateAsh(in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// ListAsh serves GET /registros-cenizas/lote/:id/.
func (h *Handlers) ListAsh(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	skip, limit := listWindow(c)
	c.JSON(http.StatusOK, h.store.ListAsh(id, skip, limit))
}

// GetAsh serves GET /registros-cenizas/:id/.
func (h *Handlers) GetAsh(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	e, err := h.store.GetAsh(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// UpdateAsh serves PUT /registros-cenizas/:id/.
func (h *Handlers) UpdateAsh(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var in labapi.AshUpdate
	if !bind(c, &in) {
		return
	}
	e, err := h.store.UpdateAsh(id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.count(c, updated, "cenizas_lote")
	c.JSON(http.StatusOK, e)
}

// DeleteAsh serves DELETE /registros-cenizas/:id/.
func (h *Handlers) DeleteAsh(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteAsh(id); err != nil {
		h.fail(c, err)
		return
	}
	h.count(c, deleted, "cenizas_lote")
	message(c, "Registro de análisis de cenizas borrado exitosamente.")
}
