// Package osmem is the OS memory façade consumed by the layered allocator
// and the chunk arena: reserve, commit, decommit, and (where the platform
// allows it) remap page ranges without copying bytes.
//
// None of the operations here understand size classes, free lists, or
// layers — they are a thin, typed wrapper over golang.org/x/sys/unix, kept
// separate so the allocation engine never imports a syscall package
// directly. Every address and size passed in must already be page-aligned;
// callers round using roundutil before calling in.
package osmem

import (
	"errors"
	"unsafe"
)

// Addr is a virtual address expressed as its ordinal value rather than a
// typed Go pointer. Free-list bookkeeping is threaded through the raw bytes
// of freed blocks (spec.md §3.4), which Go's pointer-aliasing rules do not
// permit through *T; Addr plus unsafe.Pointer conversions at the point of
// use is the escape hatch.
type Addr uintptr

// ErrRemapUnsupported is returned by Remap when the platform (or this
// build) cannot move physical pages in place. Callers must fall back to
// commit-the-destination-and-copy.
var ErrRemapUnsupported = errors.New("osmem: remap not supported on this platform")

// bytesAt builds a slice view over an arbitrary, possibly-reserved-only
// address range so the unix.* calls that take []byte (Mprotect, Madvise,
// Munmap) can operate on it. Constructing the slice header does not touch
// the underlying memory.
func bytesAt(addr Addr, size uintptr) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), int(size))
}

// PageSize reports the OS page size in bytes.
func PageSize() uintptr {
	return uintptr(getpagesize())
}
