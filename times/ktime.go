// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

// Package times provides the monotonic clock used for session timestamps.
package times // import "github.com/accelprof/devicetracer/times"

import (
	"time"
	_ "unsafe" // required to use //go:linkname for runtime.nanotime
)

// KTime stores a time value, retrieved from a monotonic clock, in nanoseconds.
type KTime int64

// GetKTime returns the current monotonic time in nanoseconds. This relies on
// runtime.nanotime to use CLOCK_MONOTONIC and is able to use the vDSO to query
// the time without a syscall.
//
//go:noescape
//go:linkname GetKTime runtime.nanotime
func GetKTime() KTime

// Duration converts the difference to an earlier kernel timestamp into a
// time.Duration.
func (t KTime) Duration(since KTime) time.Duration {
	return time.Duration(t - since)
}
