// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package annotation // import "github.com/accelprof/devicetracer/annotation"

// The driver binding is linux-only, so no launch-entry callback ever reads
// the slot on other platforms. The slot degrades to a no-op there.

func setCurrent(string) {}

func clearCurrent() {}

func current() (string, bool) {
	return "", false
}
