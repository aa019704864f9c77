// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command labstub runs the in-memory laboratory backend for local
// development:
//
//	LABSTUB_PORT=8000 LABSTUB_SEED=1 go run ./services/labstub
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/FunglusLab/pkg/logging"
	"github.com/jinterlante1206/FunglusLab/pkg/telemetry"
	"github.com/jinterlante1206/FunglusLab/services/labstub/routes"
	"github.com/jinterlante1206/FunglusLab/services/labstub/store"
	"go.opentelemetry.io/otel"
)

const serviceName = "funglus-labstub"

func main() {
	port := os.Getenv("LABSTUB_PORT")
	if port == "" {
		port = "8000"
	}

	level, err := logging.ParseLevel(os.Getenv("LABSTUB_LOG_LEVEL"))
	if err != nil {
		level = logging.LevelInfo
	}
	logger := logging.New(logging.Config{Level: level, Service: serviceName, JSON: true, Output: os.Stdout})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := telemetry.DefaultConfig(serviceName)
	if os.Getenv("OTEL_METRICS_EXPORTER") == "" {
		cfg.MetricExporter = "prometheus"
	}
	shutdown, err := telemetry.Init(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Error("failed to shut down telemetry", "error", err)
		}
	}()

	metrics, err := telemetry.NewLabMetrics(otel.Meter(serviceName))
	if err != nil {
		logger.Error("failed to create lab metrics", "error", err)
		os.Exit(1)
	}

	st := store.New(nil)
	if os.Getenv("LABSTUB_SEED") != "" {
		store.SeedDefaults(st)
		logger.Info("seeded catalogs")
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(routes.Options{
		Store:       st,
		Metrics:     metrics,
		Logger:      logger,
		ServiceName: serviceName,
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("starting reference backend", "addr", srv.Addr, "prefix", routes.APIPrefix)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
