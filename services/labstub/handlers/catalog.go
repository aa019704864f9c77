// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/validation"
)

func (h *Handlers) CreateCycle(c *gin.Context) {
	var in labapi.CycleInput
	if !bind(c, &in) {
		return
	}
	name, err := validation.SanitizeCycleName(in.Name)
	if err != nil {
		invalid(c, "nombre_ciclo", err)
		return
	}
	in.Name = name
	cycle, err := h.store.CreateCycle(in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("cycle created", "id", cycle.ID, "name", cycle.Name)
	c.JSON(http.StatusCreated, cycle)
}

func (h *Handlers) ListCycles(c *gin.Context) {
	skip, limit := listWindow(c)
	c.JSON(http.StatusOK, h.store.ListCycles(skip, limit))
}

func (h *Handlers) GetCycle(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	cycle, err := h.store.GetCycle(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cycle)
}

func (h *Handlers) UpdateCycle(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var in labapi.CycleUpdate
	if !bind(c, &in) {
		return
	}
	cycle, err := h.store.UpdateCycle(id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cycle)
}

func (h *Handlers) DeleteCycle(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteCycle(id); err != nil {
		h.fail(c, err)
		return
	}
	message(c, "Ciclo borrado exitosamente")
}

// Catalog returns the CRUD handlers of one simple catalog.
func (h *Handlers) Catalog(kind labapi.CatalogKind) CatalogHandlers {
	return CatalogHandlers{h: h, kind: kind}
}

// CatalogHandlers serves /catalogos/{etapas|muestras|origenes}.
type CatalogHandlers struct {
	h    *Handlers
	kind labapi.CatalogKind
}

func (ch CatalogHandlers) Create(c *gin.Context) {
	var in labapi.CatalogInput
	if !bind(c, &in) {
		return
	}
	name, err := validation.SanitizeLabel(ch.kind.Label(), in.Name)
	if err != nil {
		invalid(c, "nombre", err)
		return
	}
	in.Name = name
	e, err := ch.h.store.CreateCatalogEntry(ch.kind, in)
	if err != nil {
		ch.h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (ch CatalogHandlers) List(c *gin.Context) {
	skip, limit := listWindow(c)
	entries, err := ch.h.store.ListCatalog(ch.kind, skip, limit)
	if err != nil {
		ch.h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (ch CatalogHandlers) Get(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	e, err := ch.h.store.GetCatalogEntry(ch.kind, id)
	if err != nil {
		ch.h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (ch CatalogHandlers) Update(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var in labapi.CatalogUpdate
	if !bind(c, &in) {
		return
	}
	e, err := ch.h.store.UpdateCatalogEntry(ch.kind, id, in)
	if err != nil {
		ch.h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (ch CatalogHandlers) Delete(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := ch.h.store.DeleteCatalogEntry(ch.kind, id); err != nil {
		ch.h.fail(c, err)
		return
	}
	message(c, ch.kind.Label()+" borrado exitosamente")
}
