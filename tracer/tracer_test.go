// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

package tracer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/accelprof/devicetracer/cupti"
	"github.com/accelprof/devicetracer/cupti/cuptitest"
	"github.com/accelprof/devicetracer/metrics"
	"github.com/accelprof/devicetracer/profile"
	"github.com/accelprof/devicetracer/tracer"
)

func newTracer(t *testing.T) (*cuptitest.Client, tracer.DeviceTracer) {
	t.Helper()
	fake := cuptitest.New()
	return fake, tracer.New(tracer.Config{Client: fake})
}

func TestMatchedRecord(t *testing.T) {
	fake, trc := newTracer(t)

	fake.SetTimestamp(50)
	trc.Enable()
	require.True(t, trc.IsEnabled())

	id := fake.Launch("_Z9matmul_opv")
	fake.CompleteKernel(id, 100, 150, 0, 1)
	fake.Deliver()

	fake.SetTimestamp(500)
	trc.Disable()
	require.False(t, trc.IsEnabled())

	p := trc.GenProfile()
	require.Len(t, p.Events, 1)
	assert.Equal(t, profile.Event{
		Name:     "matmul_op",
		StartNS:  100,
		EndNS:    150,
		DeviceID: 0,
		StreamID: 1,
	}, p.Events[0])
	assert.Zero(t, p.Unmatched)
	assert.Equal(t, uint64(50), p.StartNS)
	assert.Equal(t, uint64(500), p.EndNS)
}

func TestUnmatchedRecord(t *testing.T) {
	fake, trc := newTracer(t)

	trc.Enable()
	// Correlation id 43 was never registered: the record is excluded and
	// counted, not an error.
	fake.CompleteKernel(43, 100, 150, 0, 1)
	trc.Disable()

	p := trc.GenProfile()
	assert.Empty(t, p.Events)
	assert.Equal(t, 1, p.Unmatched)
}

func TestDoubleEnable(t *testing.T) {
	fake, trc := newTracer(t)

	fake.SetTimestamp(1000)
	trc.Enable()
	require.Equal(t, 1, fake.Subscribers())

	fake.SetTimestamp(2000)
	trc.Enable()
	assert.True(t, trc.IsEnabled())
	// The duplicate call must not re-subscribe or move the session start.
	assert.Equal(t, 1, fake.Subscribers())
	assert.Equal(t, uint64(1000), trc.GenProfile().StartNS)
}

func TestDisableFlushesPendingRecords(t *testing.T) {
	fake, trc := newTracer(t)

	trc.Enable()

	id := fake.Launch("_Z6conv2dv")
	fake.CompleteKernel(id, 10, 20, 0, 0)
	fake.CompleteKernel(id, 30, 45, 0, 0)
	// No Deliver: the records sit in the source's buffers until the
	// forced flush at Disable.
	trc.Disable()

	p := trc.GenProfile()
	assert.Len(t, p.Events, 2)
	assert.Equal(t, 1, fake.FlushCalls())
	assert.Equal(t, 1, fake.FinalizeCalls())
	assert.Zero(t, fake.Subscribers())
}

func TestEnableTogglesActivityKinds(t *testing.T) {
	fake, trc := newTracer(t)

	trc.Enable()
	for _, kind := range cupti.CaptureKinds {
		assert.True(t, fake.ActivityEnabled(kind), "kind %s", kind)
	}

	trc.Disable()
	for _, kind := range cupti.DisableKinds {
		assert.False(t, fake.ActivityEnabled(kind), "kind %s", kind)
	}
}

func TestGenProfileIdempotent(t *testing.T) {
	fake, trc := newTracer(t)

	trc.Enable()
	id := fake.Launch("_Z7softmaxv")
	fake.CompleteKernel(id, 5, 9, 1, 2)
	fake.CompleteKernel(99999, 1, 2, 0, 0)
	trc.Disable()

	first := trc.GenProfile()
	second := trc.GenProfile()
	assert.Equal(t, first, second)
}

func TestDirectAddCalls(t *testing.T) {
	// The registry and record buffer also work through the public API
	// without a session, the order of interleaving being irrelevant.
	_, trc := newTracer(t)

	trc.AddKernelRecords(100, 150, 0, 1, 7)
	trc.AddAnnotation(7, "matmul_op")
	trc.AddKernelRecords(200, 260, 0, 1, 8)

	p := trc.GenProfile()
	require.Len(t, p.Events, 1)
	assert.Equal(t, "matmul_op", p.Events[0].Name)
	assert.Equal(t, 1, p.Unmatched)
}

func TestAnnotationOverwrite(t *testing.T) {
	// Correlation-id reuse is last-write-wins, a documented race of the
	// source's id allocation, not something the registry guards.
	_, trc := newTracer(t)

	trc.AddAnnotation(7, "first_op")
	trc.AddAnnotation(7, "second_op")
	trc.AddKernelRecords(1, 2, 0, 0, 7)

	p := trc.GenProfile()
	require.Len(t, p.Events, 1)
	assert.Equal(t, "second_op", p.Events[0].Name)
}

func TestEnableResetsSession(t *testing.T) {
	fake, trc := newTracer(t)

	trc.Enable()
	id := fake.Launch("_Z5firstv")
	fake.CompleteKernel(id, 1, 2, 0, 0)
	trc.Disable()
	require.Len(t, trc.GenProfile().Events, 1)

	// The next session starts with an empty registry and record buffer.
	trc.Enable()
	assert.Empty(t, trc.GenProfile().Events)
	trc.Disable()
}

func TestRecordsKeepArrivalOrder(t *testing.T) {
	fake, trc := newTracer(t)

	trc.Enable()
	id := fake.Launch("_Z3addv")
	// Delivered out of execution order; the profile must not re-sort.
	fake.CompleteKernel(id, 300, 400, 0, 0)
	fake.CompleteKernel(id, 100, 200, 0, 0)
	trc.Disable()

	p := trc.GenProfile()
	require.Len(t, p.Events, 2)
	assert.Equal(t, uint64(300), p.Events[0].StartNS)
	assert.Equal(t, uint64(100), p.Events[1].StartNS)
}

func TestSubscriberLimitDegradesSession(t *testing.T) {
	fake, trc := newTracer(t)
	fake.SetSubscriberLimit(0)

	trc.Enable()
	// The session proceeds without the entry callback: records are
	// captured but cannot be related to a launch.
	require.True(t, trc.IsEnabled())
	assert.Zero(t, fake.Subscribers())

	id := fake.Launch("_Z4op_av")
	fake.CompleteKernel(id, 1, 2, 0, 0)
	trc.Disable()

	p := trc.GenProfile()
	assert.Empty(t, p.Events)
	assert.Equal(t, 1, p.Unmatched)
}

func TestDroppedRecordsCounted(t *testing.T) {
	fake, trc := newTracer(t)

	before := metrics.Value(metrics.IDDroppedRecords)
	trc.Enable()
	fake.DropRecords(3)
	fake.Deliver()
	trc.Disable()

	assert.Equal(t, before+3, metrics.Value(metrics.IDDroppedRecords))
}

func TestNonKernelRecordsSkipped(t *testing.T) {
	fake, trc := newTracer(t)

	trc.Enable()
	id := fake.Launch("_Z4op_bv")
	fake.Complete(cupti.ActivityRecord{
		Kind:          cupti.ActivityKindMemcpy,
		CorrelationID: id,
		Start:         1,
		End:           2,
	})
	fake.Complete(cupti.ActivityRecord{
		Kind:          cupti.ActivityKindConcurrentKernel,
		CorrelationID: id,
		Start:         10,
		End:           30,
	})
	trc.Disable()

	p := trc.GenProfile()
	require.Len(t, p.Events, 1)
	assert.Equal(t, uint64(10), p.Events[0].StartNS)
}

func TestConcurrentDispatchAndDelivery(t *testing.T) {
	fake, trc := newTracer(t)
	trc.Enable()

	const launchesPerWorker = 100
	var g errgroup.Group
	for n := 0; n < 4; n++ {
		g.Go(func() error {
			for k := 0; k < launchesPerWorker; k++ {
				id := fake.Launch("_Z6kernelv")
				fake.CompleteKernel(id, 100, 200, 0, 0)
			}
			return nil
		})
	}
	// A competing delivery thread drains buffers while launches are in
	// flight; Disable flushes the remainder.
	g.Go(func() error {
		for n := 0; n < 50; n++ {
			fake.Deliver()
		}
		return nil
	})
	require.NoError(t, g.Wait())

	trc.Disable()

	p := trc.GenProfile()
	assert.Equal(t, 4*launchesPerWorker, len(p.Events)+p.Unmatched)
	assert.Zero(t, p.Unmatched)
}

func TestNoopTracer(t *testing.T) {
	trc := tracer.New(tracer.Config{})

	trc.Enable()
	assert.False(t, trc.IsEnabled())

	trc.AddAnnotation(1, "ignored_op")
	trc.AddKernelRecords(1, 2, 0, 0, 1)
	trc.Disable()

	p := trc.GenProfile()
	require.NotNil(t, p)
	assert.Empty(t, p.Events)
	assert.Zero(t, p.Unmatched)
}

func TestGetIsStable(t *testing.T) {
	// Without a registered driver binding Get falls back to the no-op
	// tracer and always returns the same instance.
	first := tracer.Get()
	second := tracer.Get()
	assert.Equal(t, first, second)
	assert.False(t, first.IsEnabled())
}
