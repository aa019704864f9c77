// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package labapi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "funglus"
	clientSubsystem  = "client"
)

// Client metrics. Labels use the route template, never concrete ids.
var (
	clientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: clientSubsystem,
			Name:      "requests_total",
			Help:      "Backend requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	clientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: clientSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Backend request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

func observeRequest(method, route, status string, elapsed time.Duration) {
	clientRequestsTotal.WithLabelValues(method, route, status).Inc()
	clientRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
