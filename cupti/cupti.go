// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

// Package cupti abstracts the vendor activity-tracing interface that delivers
// device-side execution records. The tracer only ever talks to the Client
// interface; the concrete driver binding registers itself at startup, and an
// in-memory fake is provided in cuptitest for tests.
package cupti // import "github.com/accelprof/devicetracer/cupti"

import "errors"

// ActivityKind identifies the type of an activity record.
type ActivityKind uint32

const (
	ActivityKindInvalid ActivityKind = iota
	ActivityKindMemcpy
	ActivityKindMemset
	ActivityKindKernel
	ActivityKindDevice
	ActivityKindContext
	ActivityKindDriver
	ActivityKindRuntime
	ActivityKindName
	ActivityKindMarker
	ActivityKindOverhead
	ActivityKindConcurrentKernel

	activityKindMax
)

var activityKindNames = [activityKindMax]string{
	"invalid", "memcpy", "memset", "kernel", "device", "context",
	"driver", "runtime", "name", "marker", "overhead", "concurrent_kernel",
}

func (k ActivityKind) String() string {
	if k >= activityKindMax {
		return "unknown"
	}
	return activityKindNames[k]
}

// CaptureKinds are the activity kinds enabled when a session starts.
// Device activity records are created when the device runtime initializes,
// so these are enabled before any other runtime call of the session.
var CaptureKinds = []ActivityKind{
	ActivityKindMemcpy,
	ActivityKindKernel,
	ActivityKindDevice,
	ActivityKindMemset,
	ActivityKindOverhead,
}

// DisableKinds are the activity kinds disabled when a session stops. The set
// is wider than CaptureKinds so that a session boundary also turns off kinds
// a different subscriber may have left behind.
var DisableKinds = []ActivityKind{
	ActivityKindMemcpy,
	ActivityKindKernel,
	ActivityKindDevice,
	ActivityKindContext,
	ActivityKindDriver,
	ActivityKindRuntime,
	ActivityKindMemset,
	ActivityKindName,
	ActivityKindMarker,
	ActivityKindOverhead,
}

// ActivityRecord is one decoded device-side activity interval. Start and End
// are nanosecond timestamps on the source's own clock.
type ActivityRecord struct {
	Kind          ActivityKind
	DeviceID      uint32
	StreamID      uint32
	CorrelationID uint32
	Start         uint64
	End           uint64
}

// CallbackInfo carries the launch-entry callback payload: the correlation
// identifier issued for the launch and the mangled symbol name of the kernel
// being launched.
type CallbackInfo struct {
	CorrelationID uint32
	SymbolName    string
}

// EntryCallback is fired synchronously on the launching thread when a
// device-work launch call is entered on the host.
type EntryCallback func(info CallbackInfo)

// BufferRequestedFunc supplies a scratch buffer for the source to fill with
// packed activity records. Implementations return NewActivityBuffer().
type BufferRequestedFunc func() []byte

// BufferCompletedFunc hands back a filled buffer. validSize is the number of
// leading bytes that contain records; dropped is the count of records the
// source lost to buffer overflow since the last delivery.
//
// Called from the source's background delivery thread, or synchronously from
// FlushAll on the flushing thread.
type BufferCompletedFunc func(buf []byte, validSize int, dropped uint64)

// Subscription represents a registered entry-callback subscription.
type Subscription interface {
	Unsubscribe() error
}

// Client is the device-side tracing facility. All methods may be called from
// the session control thread; Timestamp additionally from delivery callbacks.
type Client interface {
	// EnableActivity starts collection of the given activity record kind.
	EnableActivity(kind ActivityKind) error

	// DisableActivity stops collection of the given activity record kind.
	DisableActivity(kind ActivityKind) error

	// RegisterActivityCallbacks installs the buffer request/delivery pair
	// used to hand completed activity buffers back to the caller.
	RegisterActivityCallbacks(req BufferRequestedFunc, done BufferCompletedFunc) error

	// Subscribe installs cb as the launch-entry callback. At most a limited
	// number of subscribers may exist per process; ErrMaxSubscribers is
	// returned once the limit is reached.
	Subscribe(cb EntryCallback) (Subscription, error)

	// Timestamp returns the current value of the source's monotonic clock
	// in nanoseconds, comparable to ActivityRecord timestamps.
	Timestamp() uint64

	// FlushAll synchronously delivers every buffered-but-undelivered record
	// through the registered BufferCompletedFunc. Blocks until all in-flight
	// device activity has been drained.
	FlushAll() error

	// Finalize tears down the device-side tracing context.
	Finalize() error
}

var (
	// ErrMaxSubscribers is returned by Subscribe when the per-process
	// subscriber limit is reached. The caller may continue without an
	// entry callback; all other Client failures leave the device-side
	// context in an undefined state.
	ErrMaxSubscribers = errors.New("subscriber limit reached")

	// ErrNotAvailable is returned when no driver binding is present.
	ErrNotAvailable = errors.New("device tracing facility not available")
)
