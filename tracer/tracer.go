// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracer correlates asynchronous device-side kernel executions with
// the host-side operations that launched them. A session is one Enable to
// Disable window; GenProfile joins the records captured in that window with
// the annotations registered at launch entry into a consolidated timeline.
package tracer // import "github.com/accelprof/devicetracer/tracer"

import (
	log "github.com/sirupsen/logrus"

	"github.com/accelprof/devicetracer/cupti"
	"github.com/accelprof/devicetracer/internal/xsync"
	"github.com/accelprof/devicetracer/profile"
)

// DeviceTracer observes device-side activity. Implementations never return
// errors across this boundary: operations succeed, no-op with a diagnostic,
// or terminate the process when the device-side tracing context is left in
// an undefined state.
type DeviceTracer interface {
	// AddAnnotation registers the operation name active when the launch
	// carrying correlation id was entered. A reused id overwrites the
	// previous entry.
	AddAnnotation(id uint32, anno string)

	// AddKernelRecords appends one completed kernel execution interval.
	// Records arrive in delivery order, which may differ from execution
	// order, and are never rejected or re-sorted.
	AddKernelRecords(start, end uint64, deviceID, streamID, correlationID uint32)

	// IsEnabled reports whether a session is active.
	IsEnabled() bool

	// Enable starts a session. Calling it on an enabled tracer reports
	// the mistake and changes nothing.
	Enable()

	// Disable stops the session after forcing the source to deliver every
	// buffered record, so no record delivered before Disable returns is
	// lost.
	Disable()

	// GenProfile builds a fresh profile from the current session data. It
	// never mutates session state and may be called at any time, though it
	// is only meaningful after at least one Enable/Disable cycle.
	GenProfile() *profile.Profile
}

// Config parameterizes a capturing tracer.
type Config struct {
	// Client is the device-side tracing facility.
	Client cupti.Client

	// CaptureKinds overrides the activity kinds enabled per session.
	// Defaults to cupti.CaptureKinds.
	CaptureKinds []cupti.ActivityKind
}

// New creates a capturing tracer backed by cfg.Client, or the no-op tracer
// if no client is given.
func New(cfg Config) DeviceTracer {
	if cfg.Client == nil {
		return noopTracer{}
	}
	kinds := cfg.CaptureKinds
	if kinds == nil {
		kinds = cupti.CaptureKinds
	}
	return &deviceTracer{
		client: cfg.Client,
		kinds:  kinds,
		state: xsync.NewRWMutex(traceState{
			correlations: map[uint32]string{},
		}),
	}
}

var instance xsync.Once[DeviceTracer]

// Get returns the process-wide tracer, constructing it on first use: a
// capturing tracer when the device tracing facility is present, otherwise
// the no-op tracer, which is indistinguishable from a session that never
// captures anything.
func Get() DeviceTracer {
	tracer, _ := instance.GetOrInit(func() (DeviceTracer, error) {
		if !cupti.Available() {
			return noopTracer{}, nil
		}
		client, err := cupti.DefaultClient()
		if err != nil {
			log.Warnf("Device tracing unavailable: %v", err)
			return noopTracer{}, nil
		}
		return New(Config{Client: client}), nil
	})
	return *tracer
}
