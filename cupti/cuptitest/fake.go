// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

// Package cuptitest provides an in-memory Client implementation that mimics
// the vendor activity source: correlation-id issuing at launch, buffered
// out-of-band record delivery, overflow drop accounting and forced flushes.
package cuptitest // import "github.com/accelprof/devicetracer/cupti/cuptitest"

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/accelprof/devicetracer/cupti"
	"github.com/accelprof/devicetracer/internal/periodiccaller"
	"github.com/accelprof/devicetracer/times"
)

// defaultSubscriberLimit bounds entry-callback subscriptions per fake, like
// the per-process limit of the real facility.
const defaultSubscriberLimit = 16

// Client is a fake cupti.Client. The zero value is not usable; construct
// with New.
type Client struct {
	mu sync.Mutex

	subscriberLimit int
	now             uint64
	nowSet          bool
	nextCorrelation uint32

	enabled map[cupti.ActivityKind]bool
	req     cupti.BufferRequestedFunc
	done    cupti.BufferCompletedFunc
	subs    map[*subscription]cupti.EntryCallback

	// pending holds completed records not yet delivered, mimicking the
	// source-side activity buffers.
	pending []cupti.ActivityRecord
	dropped uint64

	flushCalls    int
	finalizeCalls int
}

var _ cupti.Client = (*Client)(nil)

type subscription struct {
	owner *Client
}

func (s *subscription) Unsubscribe() error {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	if _, ok := s.owner.subs[s]; !ok {
		return errors.New("cuptitest: not subscribed")
	}
	delete(s.owner.subs, s)
	return nil
}

// New creates a fake activity source.
func New() *Client {
	return &Client{
		subscriberLimit: defaultSubscriberLimit,
		enabled:         map[cupti.ActivityKind]bool{},
		subs:            map[*subscription]cupti.EntryCallback{},
	}
}

// SetSubscriberLimit changes the maximum number of concurrent subscriptions.
func (c *Client) SetSubscriberLimit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriberLimit = n
}

func (c *Client) EnableActivity(kind cupti.ActivityKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[kind] = true
	return nil
}

func (c *Client) DisableActivity(kind cupti.ActivityKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.enabled, kind)
	return nil
}

// ActivityEnabled reports whether collection of kind is currently on.
func (c *Client) ActivityEnabled(kind cupti.ActivityKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled[kind]
}

func (c *Client) RegisterActivityCallbacks(req cupti.BufferRequestedFunc,
	done cupti.BufferCompletedFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req = req
	c.done = done
	return nil
}

func (c *Client) Subscribe(cb cupti.EntryCallback) (cupti.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) >= c.subscriberLimit {
		return nil, cupti.ErrMaxSubscribers
	}
	sub := &subscription{owner: c}
	c.subs[sub] = cb
	return sub, nil
}

// Subscribers returns the number of active entry-callback subscriptions.
func (c *Client) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Timestamp returns the value set with SetTimestamp, or the host monotonic
// clock while the fake clock is untouched.
func (c *Client) Timestamp() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.nowSet {
		return uint64(times.GetKTime())
	}
	return c.now
}

// SetTimestamp freezes the fake clock at ns.
func (c *Client) SetTimestamp(ns uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ns
	c.nowSet = true
}

// Launch simulates a device-work launch on the calling thread: a correlation
// id is issued and every subscribed entry callback fires synchronously before
// Launch returns, as the real facility guarantees.
func (c *Client) Launch(symbol string) uint32 {
	c.mu.Lock()
	c.nextCorrelation++
	id := c.nextCorrelation
	callbacks := make([]cupti.EntryCallback, 0, len(c.subs))
	for _, cb := range c.subs {
		callbacks = append(callbacks, cb)
	}
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb(cupti.CallbackInfo{CorrelationID: id, SymbolName: symbol})
	}
	return id
}

// CompleteKernel queues a finished kernel execution interval for delivery.
func (c *Client) CompleteKernel(correlationID uint32, start, end uint64,
	deviceID, streamID uint32) {
	c.Complete(cupti.ActivityRecord{
		Kind:          cupti.ActivityKindKernel,
		DeviceID:      deviceID,
		StreamID:      streamID,
		CorrelationID: correlationID,
		Start:         start,
		End:           end,
	})
}

// Complete queues an arbitrary activity record for delivery.
func (c *Client) Complete(rec cupti.ActivityRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, rec)
}

// DropRecords simulates n records lost to source-side buffer overflow. The
// count is reported with the next delivery.
func (c *Client) DropRecords(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped += n
}

// Deliver pushes all queued records through the registered buffer callbacks.
// Tests call it from a separate goroutine to model the source's background
// delivery thread.
func (c *Client) Deliver() {
	c.deliverPending()
}

// DeliverEvery delivers queued records every interval until ctx is canceled.
func (c *Client) DeliverEvery(ctx context.Context, interval time.Duration) {
	periodiccaller.Start(ctx, interval, c.deliverPending)
}

func (c *Client) FlushAll() error {
	c.mu.Lock()
	c.flushCalls++
	c.mu.Unlock()
	c.deliverPending()
	return nil
}

// FlushCalls returns how many times FlushAll has been invoked.
func (c *Client) FlushCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushCalls
}

func (c *Client) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalizeCalls++
	return nil
}

// FinalizeCalls returns how many times Finalize has been invoked.
func (c *Client) FinalizeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalizeCalls
}

// deliverPending encodes queued records into scratch buffers obtained from
// the registered request callback and hands them to the completion callback.
// Records stay queued while no callbacks are registered.
func (c *Client) deliverPending() {
	c.mu.Lock()
	req, done := c.req, c.done
	if done == nil {
		c.mu.Unlock()
		return
	}
	pending := c.pending
	dropped := c.dropped
	c.pending = nil
	c.dropped = 0
	c.mu.Unlock()

	if len(pending) == 0 {
		if dropped != 0 {
			done(req(), 0, dropped)
		}
		return
	}

	for len(pending) > 0 {
		scratch := req()
		out := scratch[:0]
		var ok bool
		for len(pending) > 0 {
			out, ok = cupti.AppendRecord(out, pending[0])
			if !ok {
				break
			}
			pending = pending[1:]
		}
		// Report the overflow count with the last buffer of the batch.
		batchDropped := uint64(0)
		if len(pending) == 0 {
			batchDropped = dropped
		}
		done(scratch, len(out), batchDropped)
	}
}
