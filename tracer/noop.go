// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

package tracer // import "github.com/accelprof/devicetracer/tracer"

import "github.com/accelprof/devicetracer/profile"

// noopTracer is the degraded-capability variant used when the device tracing
// facility is unavailable at build or runtime. It behaves exactly like a
// tracer that never captures an event; it is never an error.
type noopTracer struct{}

var _ DeviceTracer = noopTracer{}

func (noopTracer) AddAnnotation(uint32, string) {}

func (noopTracer) AddKernelRecords(uint64, uint64, uint32, uint32, uint32) {}

func (noopTracer) IsEnabled() bool { return false }

func (noopTracer) Enable() {}

func (noopTracer) Disable() {}

func (noopTracer) GenProfile() *profile.Profile { return &profile.Profile{} }
