// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package cupti // import "github.com/accelprof/devicetracer/cupti"

// Available always reports false: the driver binding is linux-only, so on
// other platforms the process runs with the no-op tracer.
func Available() bool {
	return false
}
