// Package lalloc implements a layered virtual-memory allocator: a single
// 35 TiB virtual-address reservation partitioned into 35 fixed-stride
// size-class layers, giving zero external fragmentation above page size
// and O(1) resizing above a tunable threshold via page remapping instead
// of copying.
//
// It is a ground-up rewrite, in the idiom of the Biscuit kernel
// (biscuit/src/mem, biscuit/src/vm), of the ls_lalloc single-process C
// allocator: same layering scheme, same two free-list shapes, same
// single-spinlock discipline, targeting Go's unsafe.Pointer/uintptr
// arithmetic and golang.org/x/sys/unix instead of raw mmap/mprotect calls.
package lalloc

import (
	"unsafe"

	"github.com/SeeleyLogan/ls-libs/internal/roundutil"
	"github.com/SeeleyLogan/ls-libs/osmem"
)

// Meta_t is the process-wide allocator state: the virtual window's base,
// the cached page size, the 35 layer headers, and the lock serializing
// every mutation of the above (spec.md §3.5). Its zero value is ready to
// use — initialization happens lazily, once, under the lock, on first
// entry to any public operation.
type Meta_t struct {
	lock spinlock_t

	initialized bool
	vspaceBase  osmem.Addr
	pageSize    uintptr
	headers     [LayerCount]layerHeader
}

// global is the one process-wide allocator instance. spec.md models this
// as a single shared structure; Meta_t is exported so a caller that wants
// an isolated instance (tests, primarily) is not forced through package
// globals.
var global = &Meta_t{}

// ensureInit performs spec.md §4.2's lazy initialization. Caller must hold
// m.lock. Idempotent: once m.initialized is true, every subsequent call is
// a no-op.
func (m *Meta_t) ensureInit() bool {
	if m.initialized {
		return true
	}
	base, err := osmem.Reserve(uintptr(VspaceSize))
	if err != nil {
		return false
	}
	m.vspaceBase = base
	for i := 0; i < LayerCount; i++ {
		bsz := blockSizeOf(i)
		m.headers[i] = layerHeader{
			base:      base + osmem.Addr(uint64(i)*LayerSize),
			blockSize: bsz,
			blockMax:  LayerSize / bsz,
		}
	}
	m.pageSize = osmem.PageSize()
	m.initialized = true
	return true
}

// Alloc returns a newly allocated block of at least size bytes, or nil on
// oversize request, reservation failure, or a pathologically full layer
// (spec.md §4.5, §7).
func (m *Meta_t) Alloc(size uint64) unsafe.Pointer {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.ensureInit() {
		return nil
	}
	if size > MaxBlock {
		return nil
	}

	i := layerOfSize(size)
	h := &m.headers[i]
	addr, err := getSlot(h, m.pageSize)
	if err != nil {
		return nil
	}
	if err := m.commitFootprint(addr, h.blockSize); err != nil {
		return nil
	}
	return unsafe.Pointer(uintptr(addr))
}

// Calloc is Alloc followed by zeroing the requested (not the rounded-up
// class) size.
func (m *Meta_t) Calloc(size uint64) unsafe.Pointer {
	p := m.Alloc(size)
	if p == nil {
		return nil
	}
	b := unsafe.Slice((*byte)(p), int(size))
	for i := range b {
		b[i] = 0
	}
	return p
}

// commitFootprint commits the page range covering a block of bsz bytes
// starting at addr. For sub-page classes this rounds down to the
// containing page and rounds the size up to one page so a single
// containing page is (re)committed; for page-or-larger classes addr is
// already page-aligned, so the rounding is a no-op (spec.md §4.5 step 6).
func (m *Meta_t) commitFootprint(addr osmem.Addr, bsz uint64) error {
	base := roundutil.Rounddown(uintptr(addr), m.pageSize)
	span := roundutil.Roundup(uintptr(bsz), m.pageSize)
	return osmem.Commit(osmem.Addr(base), span)
}

// Realloc resizes the block at addr to size bytes, preserving the first
// min(oldSize, size) bytes, and returns the new address or nil. addr == nil
// behaves as Alloc(size). Above MemcpyThreshold the resize is done with an
// O(1) page remap instead of a copy (spec.md §4.5).
func (m *Meta_t) Realloc(addr unsafe.Pointer, size uint64) unsafe.Pointer {
	if addr == nil {
		return m.Alloc(size)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.ensureInit() {
		return nil
	}
	if size > MaxBlock {
		return nil
	}

	old := osmem.Addr(uintptr(addr))
	oldI := layerOfAddr(m.vspaceBase, old)
	oldH := &m.headers[oldI]

	newI := layerOfSize(size)
	newH := &m.headers[newI]

	newAddr, err := getSlot(newH, m.pageSize)
	if err != nil {
		return nil
	}

	if newH.blockSize < MemcpyThreshold {
		if err := m.commitFootprint(newAddr, newH.blockSize); err != nil {
			return nil
		}
		n := oldH.blockSize
		if newH.blockSize < n {
			n = newH.blockSize
		}
		src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(old))), int(n))
		dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(newAddr))), int(n))
		copy(dst, src)
	} else {
		if err := osmem.Remap(old, uintptr(oldH.blockSize), newAddr); err != nil {
			// Platform (or this build) can't remap in place: the
			// MEMCPY_THRESHOLD loses its O(1) meaning but the resize is
			// still correct, just O(size) (spec.md §9).
			if err := m.commitFootprint(newAddr, newH.blockSize); err != nil {
				return nil
			}
			n := oldH.blockSize
			if newH.blockSize < n {
				n = newH.blockSize
			}
			src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(old))), int(n))
			dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(newAddr))), int(n))
			copy(dst, src)
		} else if newH.blockSize > oldH.blockSize {
			extra := newAddr + osmem.Addr(oldH.blockSize)
			if err := osmem.Commit(extra, uintptr(newH.blockSize-oldH.blockSize)); err != nil {
				return nil
			}
		}
		// The source's first page is recommitted so del_slot below may
		// write unpacked/packed free-list metadata into it.
		if err := osmem.Commit(old, m.pageSize); err != nil {
			return nil
		}
	}

	if err := delSlot(oldH, old, m.pageSize); err != nil {
		return nil
	}
	return unsafe.Pointer(uintptr(newAddr))
}

// Free returns the block at addr to its layer's free list. A nil addr is
// a no-op. Passing an address not returned by Alloc/Realloc/Calloc, or
// double-freeing, is undefined behaviour (spec.md §7) — not detected.
func (m *Meta_t) Free(addr unsafe.Pointer) {
	if addr == nil {
		return
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	a := osmem.Addr(uintptr(addr))
	i := layerOfAddr(m.vspaceBase, a)
	// Best effort; del_slot failures here would mean the OS refused a
	// decommit/protect call on memory this allocator itself committed,
	// which is not a condition the public contract can surface (Free
	// returns nothing per spec.md §6).
	_ = delSlot(&m.headers[i], a, m.pageSize)
}

// Alloc is the package-level entry point operating on the shared global
// allocator instance.
func Alloc(size uint64) unsafe.Pointer { return global.Alloc(size) }

// Calloc is the package-level, zero-initializing entry point.
func Calloc(size uint64) unsafe.Pointer { return global.Calloc(size) }

// Realloc is the package-level entry point operating on the shared global
// allocator instance.
func Realloc(addr unsafe.Pointer, size uint64) unsafe.Pointer {
	return global.Realloc(addr, size)
}

// Free is the package-level entry point operating on the shared global
// allocator instance.
func Free(addr unsafe.Pointer) { global.Free(addr) }
