// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

// Package xsync provides lock-ownership primitives that tie protected data to
// the lock guarding it.
package xsync // import "github.com/accelprof/devicetracer/internal/xsync"

import "sync"

// RWMutex is a thin wrapper around sync.RWMutex that hides away the data it
// protects to ensure it is not accidentally accessed without actually holding
// the lock. There is no direct pointer to the guarded data: the only way to
// reach it is through RLock/WLock, and the unlock functions invalidate the
// borrowed pointer again.
type RWMutex[T any] struct {
	guarded T
	mutex   sync.RWMutex
}

// NewRWMutex creates a new read-write mutex protecting the given data.
func NewRWMutex[T any](guarded T) RWMutex[T] {
	return RWMutex[T]{
		guarded: guarded,
	}
}

// RLock locks the mutex for reading, returning a pointer to the protected
// data. The caller must not write through the returned pointer and must not
// let it escape the scope in which it was borrowed.
func (mtx *RWMutex[T]) RLock() *T {
	mtx.mutex.RLock()
	return &mtx.guarded
}

// RUnlock unlocks the mutex after previously being locked by RLock.
//
// Pass a reference to the pointer returned from RLock here to ensure it is
// invalidated.
func (mtx *RWMutex[T]) RUnlock(ref **T) {
	*ref = nil
	mtx.mutex.RUnlock()
}

// WLock locks the mutex for writing, returning a pointer to the protected
// data. The same escape rules as for RLock apply.
func (mtx *RWMutex[T]) WLock() *T {
	mtx.mutex.Lock()
	return &mtx.guarded
}

// WUnlock unlocks the mutex after previously being locked by WLock.
//
// Pass a reference to the pointer returned from WLock here to ensure it is
// invalidated.
func (mtx *RWMutex[T]) WUnlock(ref **T) {
	*ref = nil
	mtx.mutex.Unlock()
}
