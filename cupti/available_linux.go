// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package cupti // import "github.com/accelprof/devicetracer/cupti"

// Available reports whether the device tracing facility can exist in this
// process: a driver binding must have been linked in and registered.
func Available() bool {
	return driverRegistered()
}
