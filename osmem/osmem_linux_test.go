//go:build linux

package osmem

import "testing"

// Remap moves committed pages from src to dst without a byte copy; dst
// must be its own reservation so the kernel has somewhere to attach the
// moved mapping.
func TestRemapPreservesContent(t *testing.T) {
	pageSize := PageSize()
	size := 2 * pageSize

	src, err := Reserve(size)
	if err != nil {
		t.Fatalf("Reserve(src): %v", err)
	}
	if err := Commit(src, size); err != nil {
		t.Fatalf("Commit(src): %v", err)
	}
	b := bytesAt(src, size)
	for i := range b {
		b[i] = byte(i)
	}

	dst, err := Reserve(size)
	if err != nil {
		t.Fatalf("Reserve(dst): %v", err)
	}
	if err := Unreserve(dst, size); err != nil {
		t.Fatalf("Unreserve(dst) to make room for the fixed remap target: %v", err)
	}

	if err := Remap(src, size, dst); err != nil {
		t.Fatalf("Remap: %v", err)
	}

	got := bytesAt(dst, size)
	for i := range got {
		if got[i] != byte(i) {
			t.Fatalf("byte %d after remap = %#x, want %#x", i, got[i], byte(i))
		}
	}
	Unreserve(dst, size)
}
