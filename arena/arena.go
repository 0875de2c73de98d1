// Package arena implements the chunk arena: a fixed-size slab allocator
// over a caller-provided memory region, with a singly
// linked LIFO free stack threaded through freed chunks (spec.md §3.6,
// §4.6). It is the reusable free-list idea of the layered allocator in
// its simplest form, and has no dependency on package lalloc — any
// caller-supplied region works, including memory obtained from lalloc.
package arena

import "unsafe"

// Status reports the outcome of Acquire.
type Status int

const (
	// StatusSuccess means addr is a valid, exclusively-owned chunk.
	StatusSuccess Status = iota
	// StatusMemFull means every chunk in the arena is currently live.
	StatusMemFull
)

// CommitFunc backs a never-yet-handed-out chunk with physical memory
// before Acquire hands its address to the caller. For memory that is
// already fully backed (a plain Go byte slice, for instance) this is a
// no-op; for memory drawn from a lazily committed source (package lalloc
// is one valid supplier) it performs the commit.
type CommitFunc func(base unsafe.Pointer, offset, size uintptr)

// Arena is a fixed-size slab over [base, base+size). Its zero value is
// not ready for use — construct one with Init. Arena has no internal
// synchronization (spec.md §5): callers needing concurrent access must
// wrap it themselves.
type Arena struct {
	base         unsafe.Pointer
	chunkSize    uint64
	maxChunkCount uint64

	liveCount   uint64
	nextVirgin  uint64 // 1-based index of the next never-handed-out chunk
	freeHead    uint64 // 1-based index of the free stack's top, 0 == empty

	commit CommitFunc
}

// Init builds an Arena over [base, base+size). chunkSize must be a power
// of two and base a multiple of chunkSize; size must be a multiple of
// chunkSize. commit may be nil, in which case chunks are assumed already
// backed by physical memory.
func Init(base unsafe.Pointer, size, chunkSize uint64, commit CommitFunc) Arena {
	if commit == nil {
		commit = func(unsafe.Pointer, uintptr, uintptr) {}
	}
	return Arena{
		base:          base,
		chunkSize:     chunkSize,
		maxChunkCount: size / chunkSize,
		nextVirgin:    1,
		commit:        commit,
	}
}

func (a *Arena) indexToAddr(index uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(a.base) + uintptr(index*a.chunkSize))
}

func (a *Arena) addrToIndex(addr unsafe.Pointer) uint64 {
	return (uint64(uintptr(addr)) - uint64(uintptr(a.base))) / a.chunkSize
}

// LiveCount reports the number of currently outstanding chunks.
func (a *Arena) LiveCount() uint64 { return a.liveCount }

// MaxChunkCount reports the arena's total capacity in chunks.
func (a *Arena) MaxChunkCount() uint64 { return a.maxChunkCount }

// Acquire returns a chunk-sized, exclusively owned region, or
// (nil, StatusMemFull) if every chunk is live.
func (a *Arena) Acquire() (unsafe.Pointer, Status) {
	if a.liveCount == a.maxChunkCount {
		return nil, StatusMemFull
	}
	a.liveCount++

	if a.freeHead == 0 {
		addr := a.indexToAddr(a.nextVirgin - 1)
		a.commit(a.base, uintptr(a.nextVirgin-1)*uintptr(a.chunkSize), uintptr(a.chunkSize))
		a.nextVirgin++
		return addr, StatusSuccess
	}
	return a.reviveFreeHead(), StatusSuccess
}

func (a *Arena) reviveFreeHead() unsafe.Pointer {
	addr := a.indexToAddr(a.freeHead - 1)
	a.freeHead = *(*uint64)(addr)
	return addr
}

// Release returns a chunk obtained from Acquire to the free stack. addr
// must be a prior Acquire result; passing a foreign pointer or
// double-releasing is undefined behaviour, not detected (spec.md §7).
func (a *Arena) Release(addr unsafe.Pointer) {
	idx := a.addrToIndex(addr)
	*(*uint64)(addr) = a.freeHead
	a.freeHead = idx + 1
	a.liveCount--
}
