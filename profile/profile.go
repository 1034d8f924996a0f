// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile defines the consolidated timeline a tracing session
// produces: named device-execution intervals joined from kernel records and
// launch annotations.
package profile // import "github.com/accelprof/devicetracer/profile"

import "sort"

// Event is one device-side execution interval attributed to the host-side
// operation that launched it. Timestamps are nanoseconds on the source clock.
type Event struct {
	Name     string
	StartNS  uint64
	EndNS    uint64
	DeviceID uint32
	StreamID uint32
}

// Profile is a read-only snapshot built at generation time. Events keep the
// arrival order of the underlying kernel records, which is not necessarily
// execution order. Unmatched counts the records excluded because their
// correlation id had no registered annotation.
type Profile struct {
	StartNS   uint64
	EndNS     uint64
	Events    []Event
	Unmatched int
}

// NameStats aggregates the events sharing one operation name.
type NameStats struct {
	TotalNS uint64
	Count   int
}

// Summary derives per-name duration totals and invocation counts from the
// profile's events.
func (p *Profile) Summary() map[string]NameStats {
	stats := make(map[string]NameStats)
	for _, ev := range p.Events {
		s := stats[ev.Name]
		s.TotalNS += ev.EndNS - ev.StartNS
		s.Count++
		stats[ev.Name] = s
	}
	return stats
}

// Names returns the operation names appearing in the profile, sorted.
func (p *Profile) Names() []string {
	seen := make(map[string]struct{})
	for _, ev := range p.Events {
		seen[ev.Name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
