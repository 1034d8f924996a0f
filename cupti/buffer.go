// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

package cupti // import "github.com/accelprof/devicetracer/cupti"

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

const (
	// BufferSize is the size of the scratch buffers handed to the source.
	// TODO: revisit the buffer size, 32 KiB is carried over unexamined.
	BufferSize = 32 * 1024

	// BufferAlign is the alignment the source requires for scratch buffers.
	BufferAlign = 8

	// recordSize is the packed on-wire size of one activity record:
	// kind, deviceID, streamID, correlationID (u32 each), start, end (u64).
	recordSize = 32
)

// NewActivityBuffer allocates a BufferSize scratch buffer whose first byte is
// aligned to BufferAlign, as required by the activity-buffer contract.
func NewActivityBuffer() []byte {
	buf := make([]byte, BufferSize+BufferAlign)
	off := 0
	if rem := uintptr(unsafe.Pointer(&buf[0])) & (BufferAlign - 1); rem != 0 {
		off = BufferAlign - int(rem)
	}
	return buf[off : off+BufferSize]
}

// AppendRecord encodes r into buf in the packed little-endian wire layout.
// It returns the extended buffer, or buf unchanged with ok=false if fewer
// than recordSize bytes of capacity remain.
func AppendRecord(buf []byte, r ActivityRecord) (out []byte, ok bool) {
	if cap(buf)-len(buf) < recordSize {
		return buf, false
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.Kind))
	buf = binary.LittleEndian.AppendUint32(buf, r.DeviceID)
	buf = binary.LittleEndian.AppendUint32(buf, r.StreamID)
	buf = binary.LittleEndian.AppendUint32(buf, r.CorrelationID)
	buf = binary.LittleEndian.AppendUint64(buf, r.Start)
	buf = binary.LittleEndian.AppendUint64(buf, r.End)
	return buf, true
}

// DecodeRecords walks the packed records in buf. The walk ends at a record of
// kind invalid (zeroed tail) or when fewer than recordSize bytes remain; both
// are normal end-of-buffer conditions, not errors. A record carrying an
// out-of-range kind means the buffer layout is not what we expect and is
// reported as an error.
func DecodeRecords(buf []byte) ([]ActivityRecord, error) {
	records := make([]ActivityRecord, 0, len(buf)/recordSize)
	for len(buf) >= recordSize {
		kind := ActivityKind(binary.LittleEndian.Uint32(buf[0:4]))
		if kind == ActivityKindInvalid {
			break
		}
		if kind >= activityKindMax {
			return records, fmt.Errorf("unknown activity record kind %d", uint32(kind))
		}
		records = append(records, ActivityRecord{
			Kind:          kind,
			DeviceID:      binary.LittleEndian.Uint32(buf[4:8]),
			StreamID:      binary.LittleEndian.Uint32(buf[8:12]),
			CorrelationID: binary.LittleEndian.Uint32(buf[12:16]),
			Start:         binary.LittleEndian.Uint64(buf[16:24]),
			End:           binary.LittleEndian.Uint64(buf[24:32]),
		})
		buf = buf[recordSize:]
	}
	return records, nil
}
