// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

// Package reporter converts generated profiles into OTLP trace data for an
// external exporter. Transport and serialization stay outside this module;
// the conversion is pure.
package reporter // import "github.com/accelprof/devicetracer/reporter"

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/ptrace"

	"github.com/accelprof/devicetracer/profile"
)

const scopeName = "github.com/accelprof/devicetracer"

// Convert maps every profile event onto a span carrying the event's timing
// and device/stream location, under one resource annotated with the session
// bounds. Span order follows event order. IDs are derived deterministically
// from the profile content, so converting the same profile twice yields
// identical traces.
func Convert(p *profile.Profile) ptrace.Traces {
	td := ptrace.NewTraces()

	rs := td.ResourceSpans().AppendEmpty()
	resAttrs := rs.Resource().Attributes()
	resAttrs.PutStr("service.name", "devicetracer")
	resAttrs.PutInt("devicetracer.session.start_ns", int64(p.StartNS))
	resAttrs.PutInt("devicetracer.session.end_ns", int64(p.EndNS))

	ss := rs.ScopeSpans().AppendEmpty()
	ss.Scope().SetName(scopeName)

	traceID := sessionTraceID(p)
	for i, ev := range p.Events {
		span := ss.Spans().AppendEmpty()
		span.SetTraceID(traceID)
		span.SetSpanID(eventSpanID(i, ev))
		span.SetName(ev.Name)
		span.SetKind(ptrace.SpanKindInternal)
		span.SetStartTimestamp(pcommon.Timestamp(ev.StartNS))
		span.SetEndTimestamp(pcommon.Timestamp(ev.EndNS))

		attrs := span.Attributes()
		attrs.PutInt("device.id", int64(ev.DeviceID))
		attrs.PutInt("stream.id", int64(ev.StreamID))
	}

	return td
}

func sessionTraceID(p *profile.Profile) pcommon.TraceID {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], p.StartNS)
	binary.LittleEndian.PutUint64(buf[8:16], p.EndNS)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(p.Events)))
	return pcommon.TraceID(xxh3.Hash128(buf[:]).Bytes())
}

func eventSpanID(index int, ev profile.Event) pcommon.SpanID {
	buf := make([]byte, 0, len(ev.Name)+24)
	buf = append(buf, ev.Name...)
	buf = binary.LittleEndian.AppendUint64(buf, ev.StartNS)
	buf = binary.LittleEndian.AppendUint64(buf, ev.EndNS)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(index))

	var id pcommon.SpanID
	binary.BigEndian.PutUint64(id[:], xxh3.Hash(buf))
	return id
}
