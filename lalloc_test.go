package lalloc

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

var errAllocFailed = errors.New("alloc failed")

var errOverlap = errors.New("live blocks overlap")

// newTestMeta returns a private allocator instance so tests don't share
// virtual-address state with each other or with package-level Alloc/Free.
func newTestMeta() *Meta_t {
	return &Meta_t{}
}

func writeBytes(p unsafe.Pointer, n int, fill byte) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = fill
	}
}

func readBytes(p unsafe.Pointer, n int) []byte {
	b := unsafe.Slice((*byte)(p), n)
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Scenario 1 (spec.md §8): a small allocation's address is reused after
// free.
func TestSmallBlockReuseAfterFree(t *testing.T) {
	m := newTestMeta()

	p1 := m.Alloc(100)
	if p1 == nil {
		t.Fatal("Alloc(100) returned nil")
	}
	writeBytes(p1, 100, 0xAB)

	m.Free(p1)
	p2 := m.Alloc(100)
	if p2 != p1 {
		t.Fatalf("Alloc after Free returned %p, want reused %p", p2, p1)
	}
}

// Scenario 3: 1000 64-byte blocks allocated, freed in reverse order, then
// reallocated — the unpacked free list is LIFO, so the second batch must
// retrace the first batch's addresses in the order they were first
// allocated (the reverse of the order they were freed).
func TestUnpackedLIFOReuse(t *testing.T) {
	m := newTestMeta()
	const n = 1000

	first := make([]unsafe.Pointer, n)
	for i := 0; i < n; i++ {
		p := m.Alloc(64)
		if p == nil {
			t.Fatalf("Alloc(64) #%d returned nil", i)
		}
		first[i] = p
	}

	for i := n - 1; i >= 0; i-- {
		m.Free(first[i])
	}

	for i := 0; i < n; i++ {
		p := m.Alloc(64)
		if p != first[i] {
			t.Fatalf("reuse #%d = %p, want %p", i, p, first[i])
		}
	}
}

// Scenario 8 equivalent for the layered allocator's own free list: a
// sequence of two allocs, two frees (LIFO), then two more allocs returns
// the same two addresses in the same order, for both the unpacked and
// packed shapes.
func TestLIFOPairBothShapes(t *testing.T) {
	for _, size := range []uint64{64, 2 << 20} {
		m := newTestMeta()
		a := m.Alloc(size)
		b := m.Alloc(size)
		if a == nil || b == nil {
			t.Fatalf("size %d: alloc failed", size)
		}
		m.Free(b)
		m.Free(a)
		c := m.Alloc(size)
		d := m.Alloc(size)
		if c != a {
			t.Errorf("size %d: c = %p, want a = %p", size, c, a)
		}
		if d != b {
			t.Errorf("size %d: d = %p, want b = %p", size, d, b)
		}
	}
}

// Scenario 2: growing a 10 MiB block to 20 MiB crosses into the remap
// path (new class >= MemcpyThreshold); the payload must survive and the
// address must change (the old block is freed, not grown in place).
func TestReallocGrowAcrossRemapThreshold(t *testing.T) {
	m := newTestMeta()

	const oldSize = 10 << 20
	const newSize = 20 << 20

	p := m.Alloc(oldSize)
	if p == nil {
		t.Fatal("Alloc(10MiB) returned nil")
	}
	pattern := bytes.Repeat([]byte{0x5A}, oldSize)
	copy(unsafe.Slice((*byte)(p), oldSize), pattern)

	newI := layerOfSize(newSize)
	if blockSizeOf(newI) < MemcpyThreshold {
		t.Fatalf("test assumption broken: layer %d block size %d < threshold", newI, blockSizeOf(newI))
	}

	q := m.Realloc(p, newSize)
	if q == nil {
		t.Fatal("Realloc to 20MiB returned nil")
	}
	if q == p {
		t.Fatalf("Realloc to 20MiB returned the old address %p", p)
	}
	got := readBytes(q, oldSize)
	if !bytes.Equal(got, pattern) {
		t.Fatal("payload did not survive realloc across the remap threshold")
	}
}

// Scenario 4: freeing 1000 1 MiB blocks (a packed layer) leaves at most
// ceil(N/K) committed index pages reachable from free_head, i.e. the
// free-list depth tracked in words equals N while the node chain itself
// is short.
func TestPackedFreeListOverheadBound(t *testing.T) {
	m := newTestMeta()
	const n = 1000
	const size = 1 << 20

	i := layerOfSize(size)
	if blockSizeOf(i) < 4096 {
		t.Skip("layer for 1MiB unexpectedly sub-page on this build")
	}

	ptrs := make([]unsafe.Pointer, n)
	for j := 0; j < n; j++ {
		p := m.Alloc(size)
		if p == nil {
			t.Fatalf("Alloc(1MiB) #%d returned nil", j)
		}
		ptrs[j] = p
	}
	for _, p := range ptrs {
		m.Free(p)
	}

	h := &m.headers[i]
	if got := freeListDepth(h, m.pageSize); got != n {
		t.Fatalf("freeListDepth = %d, want %d", got, n)
	}

	k := packedCapacity(m.pageSize)
	nodes := uint64(0)
	for p := h.freeHead; p != 0; p = peekWord(p, 0) {
		nodes++
	}
	want := (uint64(n) + k - 1) / k
	if nodes != want {
		t.Fatalf("packed node chain length = %d, want ceil(%d/%d) = %d", nodes, n, k, want)
	}
}

// Scenario 5: a request above MaxBlock is rejected.
func TestAllocOversizeRejected(t *testing.T) {
	m := newTestMeta()
	if p := m.Alloc(2 * MaxBlock); p != nil {
		t.Fatalf("Alloc(2*MaxBlock) = %p, want nil", p)
	}
}

// Property 5 (spec.md §8): block_count == bump_index - free_list_depth,
// for every layer, after a mixed workload.
func TestBlockCountInvariant(t *testing.T) {
	m := newTestMeta()
	sizes := []uint64{64, 256, 4096, 1 << 20, 8 << 20}

	var live []unsafe.Pointer
	for round := 0; round < 50; round++ {
		for _, s := range sizes {
			p := m.Alloc(s)
			if p == nil {
				t.Fatalf("Alloc(%d) returned nil", s)
			}
			live = append(live, p)
		}
		if round%2 == 0 && len(live) > 0 {
			m.Free(live[len(live)-1])
			live = live[:len(live)-1]
		}
	}

	for i := range m.headers {
		h := &m.headers[i]
		depth := freeListDepth(h, m.pageSize)
		if h.blockCount != h.bumpIndex-depth {
			t.Fatalf("layer %d: block_count=%d bump_index=%d free_depth=%d",
				i, h.blockCount, h.bumpIndex, depth)
		}
	}
}

// Property 6: alloc then free returns a layer's block_count to its
// pre-alloc value.
func TestNoLeakageAcrossAllocFree(t *testing.T) {
	m := newTestMeta()
	i := layerOfSize(64)
	before := func() uint64 { return m.headers[i].blockCount }()

	p := m.Alloc(64)
	if p == nil {
		t.Fatal("Alloc(64) returned nil")
	}
	m.Free(p)

	if after := m.headers[i].blockCount; after != before {
		t.Fatalf("block_count after alloc+free = %d, want %d", after, before)
	}
}

// Concurrency: many goroutines hammering a shared Meta_t must never
// observe overlapping addresses live at the same time (property 1,
// disjointness), under the single-spinlock discipline of spec.md §5.
func TestConcurrentAllocDisjoint(t *testing.T) {
	m := newTestMeta()

	var g errgroup.Group
	const workers = 16
	const perWorker = 200

	for w := 0; w < workers; w++ {
		fill := byte(w + 1)
		g.Go(func() error {
			var live []unsafe.Pointer
			for i := 0; i < perWorker; i++ {
				p := m.Alloc(128)
				if p == nil {
					return errAllocFailed
				}
				writeBytes(p, 128, fill)
				live = append(live, p)
			}
			// Every block is still live here; a block shared with another
			// worker would carry that worker's fill byte.
			for _, p := range live {
				if !bytes.Equal(readBytes(p, 128), bytes.Repeat([]byte{fill}, 128)) {
					return errOverlap
				}
			}
			for _, p := range live {
				m.Free(p)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	i := layerOfSize(128)
	if got := m.headers[i].blockCount; got != 0 {
		t.Fatalf("layer %d block_count = %d after all workers freed everything, want 0", i, got)
	}
}
