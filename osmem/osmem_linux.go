//go:build linux

package osmem

import (
	"golang.org/x/sys/unix"
)

// mremap(2) flags. golang.org/x/sys/unix does not wrap mremap (it is a
// Linux-only, non-POSIX call), so these mirror the kernel UAPI constants
// directly, the same way other_examples' userfaultfd driver issues
// unix.Syscall(unix.SYS_IOCTL, ...) for ioctls the package doesn't wrap.
const (
	mremapMaymove   = 0x1
	mremapFixed     = 0x2
	mremapDontunmap = 0x4
)

// Remap moves the physical pages backing [src, src+size) to
// [dst, dst+size) in O(1) — page-table manipulation only, no byte copy.
// The source range is left reserved-but-not-committed per spec.md §4.1.
func Remap(src Addr, size uintptr, dst Addr) error {
	_, _, errno := unix.Syscall6(unix.SYS_MREMAP,
		uintptr(src), size, size,
		mremapFixed|mremapMaymove|mremapDontunmap,
		uintptr(dst), 0)
	if errno != 0 {
		return errno
	}
	return nil
}
