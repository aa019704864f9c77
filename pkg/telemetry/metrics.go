// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// LabMetrics holds OTel instruments for laboratory record activity.
//
// Attribute conventions:
//   - "table": general, materia_prima, gubys, cenizas, formulacion,
//     nitrogeno, cenizas_lote
//   - "created": true when get-or-create produced a new placeholder
type LabMetrics struct {
	// RecordsLoaded counts get-or-create calls.
	RecordsLoaded metric.Int64Counter

	// RecordsUpdated counts successful updates.
	RecordsUpdated metric.Int64Counter

	// RecordsDeleted counts deletes, including batch cascades.
	RecordsDeleted metric.Int64Counter

	// AveragesPushed counts nitrogen averages written to the general table.
	AveragesPushed metric.Int64Counter
}

// NewLabMetrics registers the lab instruments on meter.
//
// Example:
//
//	m, err := telemetry.NewLabMetrics(otel.Meter("labstub"))
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
//	m.RecordsUpdated.Add(ctx, 1, metric.WithAttributes(attribute.String("table", "gubys")))
func NewLabMetrics(meter metric.Meter) (*LabMetrics, error) {
	m := &LabMetrics{}
	var err error

	m.RecordsLoaded, err = meter.Int64Counter(
		"funglus_records_loaded_total",
		metric.WithDescription("Get-or-create calls by table"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create records_loaded_total: %w", err)
	}

	m.RecordsUpdated, err = meter.Int64Counter(
		"funglus_records_updated_total",
		metric.WithDescription("Record updates by table"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create records_updated_total: %w", err)
	}

	m.RecordsDeleted, err = meter.Int64Counter(
		"funglus_records_deleted_total",
		metric.WithDescription("Record deletions by table"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create records_deleted_total: %w", err)
	}

	m.AveragesPushed, err = meter.Int64Counter(
		"funglus_nitrogen_averages_total",
		metric.WithDescription("Nitrogen averages pushed into the general table"),
	)
	if err != nil {
		return nil, fmt.Errorf("create nitrogen_averages_total: %w", err)
	}

	return m, nil
}
