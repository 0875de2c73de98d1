//go:build linux || darwin

package osmem

import (
	"testing"
)

func TestReserveCommitDecommitRoundTrip(t *testing.T) {
	pageSize := PageSize()
	if pageSize == 0 {
		t.Fatal("PageSize returned 0")
	}

	size := 4 * pageSize
	addr, err := Reserve(size)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	defer Unreserve(addr, size)

	if err := Commit(addr, size); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	b := bytesAt(addr, size)
	for i := range b {
		b[i] = 0x42
	}
	for i, v := range b {
		if v != 0x42 {
			t.Fatalf("byte %d = %#x, want 0x42", i, v)
		}
	}

	if err := Decommit(addr, size); err != nil {
		t.Fatalf("Decommit: %v", err)
	}

	if err := Commit(addr, size); err != nil {
		t.Fatalf("re-Commit after Decommit: %v", err)
	}
	b = bytesAt(addr, size)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d = %#x after re-commit, want 0 (zero-fill on demand)", i, v)
		}
	}
}

func TestCommitSubrangeIndependently(t *testing.T) {
	pageSize := PageSize()
	size := 2 * pageSize

	addr, err := Reserve(size)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	defer Unreserve(addr, size)

	if err := Commit(addr, pageSize); err != nil {
		t.Fatalf("Commit first page: %v", err)
	}
	b := bytesAt(addr, pageSize)
	b[0] = 0xFF

	if err := Commit(addr+Addr(pageSize), pageSize); err != nil {
		t.Fatalf("Commit second page: %v", err)
	}
}
