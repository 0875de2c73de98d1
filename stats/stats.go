// Package stats provides optional, cheap instrumentation for the layered
// allocator's internal paths (bump vs. free-list reuse, packed-node
// churn). It follows the pattern of the teacher kernel's own stats
// package (biscuit/src/stats): a compile-time Enabled switch that, when
// false, makes every counter method free.
package stats

import "sync/atomic"

// Enabled gates whether counter updates do anything. Flip to true when
// profiling; leave false for production builds, matching the teacher's
// own `const Stats = false`.
const Enabled = false

// Counter_t is a statistical counter, safe for concurrent use.
type Counter_t int64

// Inc increments the counter by one.
func (c *Counter_t) Inc() {
	if Enabled {
		atomic.AddInt64((*int64)(c), 1)
	}
}

// Add adds delta to the counter.
func (c *Counter_t) Add(delta int64) {
	if Enabled {
		atomic.AddInt64((*int64)(c), delta)
	}
}

// Load returns the counter's current value.
func (c *Counter_t) Load() int64 {
	return atomic.LoadInt64((*int64)(c))
}

// Allocator accumulates allocator-wide counters. Every field is updated
// from the engine's getSlot/delSlot paths so profiling builds can tell a
// bump-heavy workload from a free-list-heavy one.
type Allocator struct {
	BumpAllocs   Counter_t
	UnpackedHits Counter_t
	PackedHits   Counter_t
	PackedNodesRetired Counter_t
	Frees        Counter_t
}

// Global is the counters attached to package lalloc's shared allocator
// instance.
var Global Allocator
