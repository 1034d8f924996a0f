// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

// Package periodiccaller allows periodic calls of functions.
package periodiccaller // import "github.com/accelprof/devicetracer/internal/periodiccaller"

import (
	"context"
	"time"
)

// Start calls callback every interval until ctx is canceled. The returned
// function stops the timer early.
func Start(ctx context.Context, interval time.Duration, callback func()) func() {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				callback()
			case <-ctx.Done():
				return
			}
		}
	}()

	return ticker.Stop
}

// StartWithManualTrigger behaves like Start but additionally invokes the
// callback whenever the trigger channel fires, passing whether the call was
// manually triggered.
func StartWithManualTrigger(ctx context.Context, interval time.Duration,
	trigger <-chan bool, callback func(manualTrigger bool)) func() {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				callback(false)
			case <-trigger:
				callback(true)
			case <-ctx.Done():
				return
			}
		}
	}()

	return ticker.Stop
}
