// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/logging"
	"github.com/jinterlante1206/FunglusLab/pkg/telemetry"
	"github.com/jinterlante1206/FunglusLab/services/labstub/handlers"
	"github.com/jinterlante1206/FunglusLab/services/labstub/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// APIPrefix is where the REST contract is mounted.
const APIPrefix = "/api/v1"

// Options wires the router's dependencies.
type Options struct {
	Store   *store.Store
	Metrics *telemetry.LabMetrics
	Logger  *logging.Logger

	// ServiceName names the otelgin spans. Empty disables tracing middleware.
	ServiceName string
}

// NewRouter builds a gin engine serving the laboratory API.
func NewRouter(opts Options) *gin.Engine {
	if opts.Store == nil {
		opts.Store = store.New(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if opts.ServiceName != "" {
		router.Use(otelgin.Middleware(opts.ServiceName))
	}
	router.Use(RequestLogger(opts.Logger))
	SetupRoutes(router, handlers.New(opts.Store, opts.Metrics, opts.Logger))
	return router
}

// SetupRoutes registers the health, metrics and API routes.
func SetupRoutes(router *gin.Engine, h *handlers.Handlers) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(metricsHandler()))

	v1 := router.Group(APIPrefix)
	{
		catalogos := v1.Group("/catalogos")
		{
			catalogos.POST("/ciclos/", h.CreateCycle)
			catalogos.GET("/ciclos/", h.ListCycles)
			catalogos.GET("/ciclos/:id", h.GetCycle)
			catalogos.PUT("/ciclos/:id", h.UpdateCycle)
			catalogos.DELETE("/ciclos/:id", h.DeleteCycle)
			for _, kind := range labapi.CatalogKinds {
				ch := h.Catalog(kind)
				base := "/" + string(kind)
				catalogos.POST(base+"/", ch.Create)
				catalogos.GET(base+"/", ch.List)
				catalogos.GET(base+"/:id", ch.Get)
				catalogos.PUT(base+"/:id", ch.Update)
				catalogos.DELETE(base+"/:id", ch.Delete)
			}
		}

		datos := v1.Group("/datos_laboratorio")
		{
			datos.POST("/entry", h.GetOrCreateEntry)
			datos.PUT("/entry", h.UpdateEntry)
			datos.DELETE("/entry", h.DeleteEntry)
			datos.GET("/ciclo/:id", h.ListEntriesByCycle)
		}

		ciclos := v1.Group("/ciclos")
		{
			ciclos.POST("/:ciclo/initialize_placeholders", h.InitializePlaceholders)
			ciclos.GET("/distinct", h.DistinctCycles)
		}

		for _, stage := range []labapi.LedgerStage{labapi.LedgerMateriaPrima, labapi.LedgerGubys, labapi.LedgerCenizas} {
			base := "/laboratorio/" + string(stage)
			v1.GET(base+"/ciclo/:ciclo", h.GetLedger(stage))
			v1.PUT(base+"/:ciclo", h.UpdateLedger(stage))
		}
		v1.GET("/formulacion/ciclo/:ciclo", h.GetLedger(labapi.LedgerFormulacion))
		v1.PUT("/formulacion/:ciclo", h.UpdateLedger(labapi.LedgerFormulacion))

		lotes := v1.Group("/ciclos-procesamiento")
		{
			lotes.POST("/", h.CreateBatch)
			lotes.GET("/:tipo/", h.ListBatches)
			lotes.GET("/id/:id/", h.GetBatch)
			lotes.PUT("/:id/", h.UpdateBatch)
			lotes.DELETE("/:id/", h.DeleteBatch)
		}

		nitrogeno := v1.Group("/registros-nitrogeno")
		{
			nitrogeno.POST("/", h.CreateNitrogen)
			nitrogeno.POST("/acciones/promediar-y-actualizar-general/", h.AverageNitrogen)
			nitrogeno.GET("/lote/:id/", h.ListNitrogen)
			nitrogeno.GET("/:id/", h.GetNitrogen)
			nitrogeno.PUT("/:id/", h.UpdateNitrogen)
			nitrogeno.DELETE("/:id/", h.DeleteNitrogen)
		}

		cenizas := v1.Group("/registros-cenizas")
		{
			cenizas.POST("/", h.CreateAsh)
			cenizas.GET("/lote/:id/", h.ListAsh)
			cenizas.GET("/:id/", h.GetAsh)
			cenizas.PUT("/:id/", h.UpdateAsh)
			cenizas.DELETE("/:id/", h.DeleteAsh)
		}
	}
}

// metricsHandler prefers the OTel prometheus exporter's handler and falls
// back to the default registry.
func metricsHandler() http.Handler {
	if h := telemetry.MetricsHandler(); h != nil {
		return h
	}
	return promhttp.Handler()
}
