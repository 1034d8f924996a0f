// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

package periodiccaller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	stop := Start(ctx, 10*time.Millisecond, func() {
		calls.Add(1)
	})
	defer stop()

	<-ctx.Done()
	assert.Greater(t, calls.Load(), int32(2))
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	Start(ctx, 5*time.Millisecond, func() {
		calls.Add(1)
	})
	cancel()

	time.Sleep(30 * time.Millisecond)
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestStartWithManualTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trigger := make(chan bool)
	manual := make(chan bool, 1)
	stop := StartWithManualTrigger(ctx, time.Hour, trigger,
		func(manualTrigger bool) {
			manual <- manualTrigger
		})
	defer stop()

	trigger <- true
	select {
	case wasManual := <-manual:
		assert.True(t, wasManual)
	case <-time.After(time.Second):
		t.Fatal("manual trigger did not fire")
	}
}
