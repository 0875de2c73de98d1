package lalloc

import (
	"runtime"
	"sync/atomic"
)

// spinlock_t is the single process-wide serialization primitive guarding
// every mutation of the layer table and free lists (spec.md §5). There is
// no per-layer lock and no lock-free fast path — a deliberate
// simplification the spec calls out in its design notes.
//
// Unlike ls_lalloc.h's atomic_flag, which busy-spins with no scheduling
// hint at all, this yields the processor between attempts so a
// goroutine holding the lock across a blocking osmem syscall (spec.md §5,
// "suspension points") gets a chance to run on GOMAXPROCS=1.
type spinlock_t struct {
	held atomic.Bool
}

// Lock acquires the spinlock, blocking until it is free. Acquisition is
// unbounded — there is no timeout or cancellation (spec.md §5).
func (s *spinlock_t) Lock() {
	for !s.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// Unlock releases the spinlock.
func (s *spinlock_t) Unlock() {
	s.held.Store(false)
}
