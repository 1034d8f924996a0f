// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package annotation // import "github.com/accelprof/devicetracer/annotation"

import (
	"sync"

	"golang.org/x/sys/unix"
)

// slots maps an OS thread id to that thread's annotation. Each key is only
// ever written and read from its own thread; sync.Map keeps the disjoint
// accesses safe without a global lock on the launch path.
var slots sync.Map // tid -> string

func setCurrent(label string) {
	slots.Store(unix.Gettid(), label)
}

func clearCurrent() {
	slots.Delete(unix.Gettid())
}

func current() (string, bool) {
	v, ok := slots.Load(unix.Gettid())
	if !ok {
		return "", false
	}
	return v.(string), true
}
