//go:build linux || darwin

package osmem

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func getpagesize() int {
	return unix.Getpagesize()
}

// Reserve obtains a contiguous virtual range of size bytes with no access
// rights. The OS chooses the base address. Returns an error if the
// reservation could not be made (spec.md's ReservationFailure).
func Reserve(size uintptr) (Addr, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}
	return Addr(uintptr(unsafe.Pointer(&b[0]))), nil
}

// Unreserve releases a reservation obtained from Reserve.
func Unreserve(addr Addr, size uintptr) error {
	return unix.Munmap(bytesAt(addr, size))
}

// Commit transitions the page-aligned range from reserved to read/write.
// The reservation already owns the virtual address, so committing is a
// protection change rather than a fresh mapping.
func Commit(addr Addr, size uintptr) error {
	return unix.Mprotect(bytesAt(addr, size), unix.PROT_READ|unix.PROT_WRITE)
}

// Decommit hints that the physical pages backing the range may be
// reclaimed and transitions the range to no-access. A later Commit of the
// same range yields zero-filled pages.
func Decommit(addr Addr, size uintptr) error {
	b := bytesAt(addr, size)
	if err := unix.Madvise(b, unix.MADV_DONTNEED); err != nil {
		return err
	}
	return unix.Mprotect(b, unix.PROT_NONE)
}
