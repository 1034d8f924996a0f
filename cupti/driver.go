// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

package cupti // import "github.com/accelprof/devicetracer/cupti"

import "sync"

var (
	driverMu  sync.Mutex
	newDriver func() (Client, error)
)

// RegisterDriver installs the constructor for the concrete driver binding.
// The binding (a cgo package linking the vendor library) calls this from its
// package init; only one binding may be registered per process.
func RegisterDriver(constructor func() (Client, error)) {
	driverMu.Lock()
	defer driverMu.Unlock()
	if newDriver != nil {
		panic("cupti: driver already registered")
	}
	newDriver = constructor
}

// DefaultClient returns a Client backed by the registered driver binding, or
// ErrNotAvailable if no binding is present in this build.
func DefaultClient() (Client, error) {
	driverMu.Lock()
	constructor := newDriver
	driverMu.Unlock()

	if constructor == nil {
		return nil, ErrNotAvailable
	}
	return constructor()
}

func driverRegistered() bool {
	driverMu.Lock()
	defer driverMu.Unlock()
	return newDriver != nil
}
