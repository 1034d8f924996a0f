// Copyright The Device Tracer Authors
// SPDX-License-Identifier: Apache-2.0

package annotation // import "github.com/accelprof/devicetracer/annotation"

import (
	lru "github.com/elastic/go-freelru"
	"github.com/ianlancetaylor/demangle"
	"github.com/zeebo/xxh3"
)

// demangleCacheSize bounds the demangled-name cache. Kernels are launched
// repeatedly, so the same mangled symbols recur throughout a session.
const demangleCacheSize = 4096

// hashString is a helper function for LRUs that use string as a key.
func hashString(s string) uint32 {
	return uint32(xxh3.HashString(s))
}

var demangleCache, _ = lru.NewSynced[string, string](demangleCacheSize, hashString)

// Resolve returns the label to record for a launch: the calling thread's
// annotation if one is set, otherwise the demangled form of the symbol name
// the source reported for the launch.
func Resolve(symbol string) string {
	if label, ok := current(); ok {
		return label
	}
	return demangled(symbol)
}

func demangled(symbol string) string {
	if name, ok := demangleCache.Get(symbol); ok {
		return name
	}
	name := demangle.Filter(symbol, demangle.NoParams, demangle.NoTemplateParams)
	demangleCache.Add(symbol, name)
	return name
}
