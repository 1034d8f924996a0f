// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

package tracer // import "github.com/accelprof/devicetracer/tracer"

import (
	"errors"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/accelprof/devicetracer/annotation"
	"github.com/accelprof/devicetracer/cupti"
	"github.com/accelprof/devicetracer/internal/xsync"
	"github.com/accelprof/devicetracer/metrics"
	"github.com/accelprof/devicetracer/profile"
)

// kernelRecord is one completed kernel execution interval as delivered by
// the source, immutable once appended.
type kernelRecord struct {
	start         uint64
	end           uint64
	deviceID      uint32
	streamID      uint32
	correlationID uint32
}

// traceState is everything three kinds of threads mutate concurrently: the
// dispatch threads (entry callback), the source's delivery thread and the
// session control thread. One lock covers all of it.
type traceState struct {
	enabled bool
	startNS uint64
	endNS   uint64

	// records is append-only in arrival order and unbounded for the
	// session's duration. Known limitation, carried deliberately.
	records      []kernelRecord
	correlations map[uint32]string

	subscription cupti.Subscription
}

type deviceTracer struct {
	client cupti.Client
	kinds  []cupti.ActivityKind
	state  xsync.RWMutex[traceState]
}

var _ DeviceTracer = (*deviceTracer)(nil)

func (t *deviceTracer) AddAnnotation(id uint32, anno string) {
	state := t.state.WLock()
	defer t.state.WUnlock(&state)
	state.correlations[id] = anno
}

func (t *deviceTracer) AddKernelRecords(start, end uint64,
	deviceID, streamID, correlationID uint32) {
	state := t.state.WLock()
	defer t.state.WUnlock(&state)
	state.records = append(state.records, kernelRecord{
		start:         start,
		end:           end,
		deviceID:      deviceID,
		streamID:      streamID,
		correlationID: correlationID,
	})
}

func (t *deviceTracer) IsEnabled() bool {
	state := t.state.RLock()
	defer t.state.RUnlock(&state)
	return state.enabled
}

func (t *deviceTracer) Enable() {
	state := t.state.WLock()
	defer t.state.WUnlock(&state)

	if state.enabled {
		log.Errorf("Device tracer already enabled")
		return
	}

	// Previous session data is discarded now; the registry and record
	// buffer start every session empty.
	state.records = nil
	state.correlations = map[uint32]string{}

	// Device activity records are created as a side effect of activation,
	// so the kinds are enabled before anything else: the very next host
	// call must already be captured.
	for _, kind := range t.kinds {
		if err := t.client.EnableActivity(kind); err != nil {
			log.Fatalf("Failed to enable %s activity collection: %v", kind, err)
		}
	}

	if err := t.client.RegisterActivityCallbacks(t.requestBuffer, t.completeBuffer); err != nil {
		log.Fatalf("Failed to register activity buffer callbacks: %v", err)
	}

	// The entry callback closes over the tracer; losing it degrades the
	// session to unannotated records but does not end it.
	sub, err := t.client.Subscribe(t.launchEntered)
	switch {
	case errors.Is(err, cupti.ErrMaxSubscribers):
		log.Warnf("Subscriber limit reached, launches will not be annotated")
	case err != nil:
		log.Warnf("Failed to subscribe launch-entry callback: %v", err)
	default:
		state.subscription = sub
	}

	state.startNS = t.client.Timestamp()
	state.enabled = true
	metrics.Add(metrics.IDSessionsStarted, 1)
}

func (t *deviceTracer) Disable() {
	// The forced flush synchronously re-enters AddKernelRecords on this
	// thread, so it must happen before the lock is taken. It blocks until
	// all in-flight device activity has been drained and delivered.
	if err := t.client.FlushAll(); err != nil {
		log.Fatalf("Failed to flush activity records: %v", err)
	}

	state := t.state.WLock()
	defer t.state.WUnlock(&state)

	for _, kind := range cupti.DisableKinds {
		if err := t.client.DisableActivity(kind); err != nil {
			log.Fatalf("Failed to disable %s activity collection: %v", kind, err)
		}
	}

	if state.subscription != nil {
		if err := state.subscription.Unsubscribe(); err != nil {
			log.Errorf("Failed to unsubscribe launch-entry callback: %v", err)
		}
		state.subscription = nil
	}

	state.endNS = t.client.Timestamp()

	// A failing finalize leaves the device-side tracing context in an
	// undefined state; there is no local recovery from that.
	if err := t.client.Finalize(); err != nil {
		log.Fatalf("Failed to finalize device tracing: %v", err)
	}

	state.enabled = false
}

func (t *deviceTracer) GenProfile() *profile.Profile {
	state := t.state.RLock()
	defer t.state.RUnlock(&state)

	p := &profile.Profile{
		StartNS: state.startNS,
		EndNS:   state.endNS,
		Events:  make([]profile.Event, 0, len(state.records)),
	}
	for _, r := range state.records {
		name, ok := state.correlations[r.correlationID]
		if !ok {
			// Expected under load: the entry callback may never have
			// fired for this correlation id.
			p.Unmatched++
			continue
		}
		p.Events = append(p.Events, profile.Event{
			Name:     name,
			StartNS:  r.start,
			EndNS:    r.end,
			DeviceID: r.deviceID,
			StreamID: r.streamID,
		})
	}

	if p.Unmatched > 0 {
		log.Warnf("Cannot relate %d kernel activities to a launch", p.Unmatched)
		metrics.Add(metrics.IDUnmatchedRecords, int64(p.Unmatched))
	}

	stats := p.Summary()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := stats[name]
		log.Infof("%s: total %.6fms, %d kernel invocations",
			name, float64(s.TotalNS)/1e6, s.Count)
	}

	return p
}

// launchEntered runs synchronously on the launching thread at kernel-launch
// entry, before any delivery of that correlation id's completed record.
func (t *deviceTracer) launchEntered(info cupti.CallbackInfo) {
	t.AddAnnotation(info.CorrelationID, annotation.Resolve(info.SymbolName))
	metrics.Add(metrics.IDAnnotations, 1)
}

func (t *deviceTracer) requestBuffer() []byte {
	return cupti.NewActivityBuffer()
}

// completeBuffer runs on the source's delivery thread for each filled
// activity buffer. Only kernel execution intervals feed the record buffer;
// the remaining kinds are collected for the source's own bookkeeping and
// skipped here.
func (t *deviceTracer) completeBuffer(buf []byte, validSize int, dropped uint64) {
	if validSize > 0 {
		records, err := cupti.DecodeRecords(buf[:validSize])
		if err != nil {
			log.Fatalf("Failed to decode activity records: %v", err)
		}
		for _, r := range records {
			switch r.Kind {
			case cupti.ActivityKindKernel, cupti.ActivityKindConcurrentKernel:
				t.AddKernelRecords(r.Start, r.End, r.DeviceID, r.StreamID,
					r.CorrelationID)
				metrics.Add(metrics.IDKernelRecords, 1)
			}
		}
	}

	if dropped != 0 {
		log.Warnf("Dropped %d activity records", dropped)
		metrics.Add(metrics.IDDroppedRecords, int64(dropped))
	}
}
