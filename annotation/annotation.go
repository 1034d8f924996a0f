// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

// Package annotation keeps the label of the operation the calling thread is
// currently dispatching. The slot is read back only by the launch-entry
// callback, which the source fires synchronously on the launching thread
// before the dispatch call returns, so reads never cross threads and the
// launch hot path needs no lock.
//
// Callers that set the slot with Set must keep the goroutine pinned to its
// OS thread (runtime.LockOSThread) until the dispatch call returns, or use
// Do which handles the pinning.
package annotation // import "github.com/accelprof/devicetracer/annotation"

import "runtime"

// Set stores label in the calling thread's slot, replacing any previous
// value.
func Set(label string) {
	setCurrent(label)
}

// Clear empties the calling thread's slot.
func Clear() {
	clearCurrent()
}

// Current returns the calling thread's slot content, if set.
func Current() (string, bool) {
	return current()
}

// Do runs fn with label set as the current annotation, pinning the goroutine
// to its OS thread for the duration so that launch-entry callbacks fired
// inside fn observe the label.
func Do(label string, fn func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	setCurrent(label)
	defer clearCurrent()

	fn()
}
