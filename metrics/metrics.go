// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics implements the counters the tracer reports about itself:
// captured records, annotations, unmatched correlations and records the
// source dropped to buffer overflow.
package metrics // import "github.com/accelprof/devicetracer/metrics"

import (
	"context"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// ID identifies a tracer self-monitoring metric.
type ID int

const (
	// IDKernelRecords counts kernel execution records appended to the
	// record buffer.
	IDKernelRecords ID = iota
	// IDAnnotations counts correlation-id annotations registered by the
	// launch-entry callback.
	IDAnnotations
	// IDUnmatchedRecords counts records excluded from profiles because no
	// annotation was registered for their correlation id.
	IDUnmatchedRecords
	// IDDroppedRecords counts records the source reported lost to buffer
	// overflow.
	IDDroppedRecords
	// IDSessionsStarted counts successful Enable transitions.
	IDSessionsStarted

	idMax
)

type definition struct {
	name        string
	description string
}

var definitions = [idMax]definition{
	IDKernelRecords: {"devicetracer.kernel_records",
		"Kernel execution records appended to the record buffer"},
	IDAnnotations: {"devicetracer.annotations",
		"Correlation annotations registered at launch entry"},
	IDUnmatchedRecords: {"devicetracer.unmatched_records",
		"Kernel records with no matching correlation annotation"},
	IDDroppedRecords: {"devicetracer.dropped_records",
		"Activity records lost to source-side buffer overflow"},
	IDSessionsStarted: {"devicetracer.sessions_started",
		"Tracing sessions started"},
}

var (
	meter    = otel.Meter("github.com/accelprof/devicetracer")
	counters [idMax]metric.Int64Counter

	// totals mirror the counters in-process so callers can observe the
	// values without an OTel reader attached.
	totals [idMax]atomic.Int64
)

func init() {
	for id, def := range definitions {
		counter, err := meter.Int64Counter(def.name,
			metric.WithDescription(def.description))
		if err != nil {
			log.Errorf("Creating Int64Counter %s: %v", def.name, err)
			continue
		}
		counters[id] = counter
	}
}

// Add increments the metric by value. Safe for concurrent use; called from
// delivery and dispatch threads.
func Add(id ID, value int64) {
	if id < 0 || id >= idMax {
		log.Errorf("Ignoring unknown metric ID %d", id)
		return
	}
	totals[id].Add(value)
	if counter := counters[id]; counter != nil {
		counter.Add(context.Background(), value)
	}
}

// Value returns the accumulated in-process total for the metric.
func Value(id ID) int64 {
	if id < 0 || id >= idMax {
		return 0
	}
	return totals[id].Load()
}
