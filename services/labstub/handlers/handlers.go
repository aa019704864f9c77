// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers holds the gin handlers of the reference laboratory
// backend. Errors answer {"detail": ...} and deletes {"message": ...}.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/logging"
	"github.com/jinterlante1206/FunglusLab/pkg/telemetry"
	"github.com/jinterlante1206/FunglusLab/services/labstub/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handlers serves the REST contract from a store.
type Handlers struct {
	store   *store.Store
	metrics *telemetry.LabMetrics
	logger  *logging.Logger
}

// New creates the handlers. metrics may be nil.
func New(st *store.Store, metrics *telemetry.LabMetrics, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handlers{store: st, metrics: metrics, logger: logger}
}

func (h *Handlers) count(c *gin.Context, counter func(*telemetry.LabMetrics) metric.Int64Counter, table string, attrs ...attribute.KeyValue) {
	if h.metrics == nil {
		return
	}
	attrs = append(attrs, attribute.String("table", table))
	counter(h.metrics).Add(c.Request.Context(), 1, metric.WithAttributes(attrs...))
}

func loaded(m *telemetry.LabMetrics) metric.Int64Counter   { return m.RecordsLoaded }
func updated(m *telemetry.LabMetrics) metric.Int64Counter  { return m.RecordsUpdated }
func deleted(m *telemetry.LabMetrics) metric.Int64Counter  { return m.RecordsDeleted }
func averaged(m *telemetry.LabMetrics) metric.Int64Counter { return m.AveragesPushed }

// fail answers err with its status and detail.
func (h *Handlers) fail(c *gin.Context, err error) {
	status := store.StatusOf(err)
	detail := err.Error()
	if se, ok := err.(*store.Error); ok {
		detail = se.Detail
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	} else {
		h.logger.Debug("request rejected", "path", c.FullPath(), "status", status, "detail", detail)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// invalid answers a 422 in the FastAPI validation shape.
func invalid(c *gin.Context, loc string, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"detail": []gin.H{{"loc": []string{"body", loc}, "msg": err.Error(), "type": "value_error"}},
	})
}

// bind decodes the JSON body into v and validates it.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		invalid(c, "body", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		loc := "body"
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			loc = verrs[0].Field()
		}
		invalid(c, loc, err)
		return false
	}
	return true
}

func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"detail": []gin.H{{"loc": []string{"path", name}, "msg": "value is not a valid integer", "type": "type_error.integer"}},
		})
		return 0, false
	}
	return id, true
}

// listWindow reads skip and limit. FastAPI defaults: 0 and 100.
func listWindow(c *gin.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		limit = 100
	}
	return skip, limit
}

func message(c *gin.Context, text string) {
	c.JSON(http.StatusOK, labapi.Message{Message: text})
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
