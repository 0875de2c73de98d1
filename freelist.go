package lalloc

import (
	"errors"
	"unsafe"

	"github.com/SeeleyLogan/ls-libs/osmem"
	"github.com/SeeleyLogan/ls-libs/stats"
)

// wordSize is sizeof(void*) in the original C library — the unit both
// free-list representations use for threading pointers through freed
// blocks.
const wordSize = unsafe.Sizeof(uintptr(0))

// packedCapacity returns K, the number of block pointers a single packed
// node can hold: one page of index storage minus the two header words
// (next-node pointer, link count).
func packedCapacity(pageSize uintptr) uint64 {
	return uint64(pageSize)/uint64(wordSize) - 2
}

// peekWord and pokeWord read/write a single machine word at the given
// word-index offset from addr. Freed blocks are reinterpreted as arrays of
// words while on a free list and as opaque payload while live; the
// transition happens only under the allocator's lock (spec.md §9).
func peekWord(addr osmem.Addr, idx int) osmem.Addr {
	p := (*uintptr)(unsafe.Pointer(uintptr(addr) + uintptr(idx)*wordSize))
	return osmem.Addr(*p)
}

func pokeWord(addr osmem.Addr, idx int, v osmem.Addr) {
	p := (*uintptr)(unsafe.Pointer(uintptr(addr) + uintptr(idx)*wordSize))
	*p = uintptr(v)
}

// getSlot implements spec.md §4.4's get_slot: return a free block of
// layer i, preferring the free list over the bump pointer, and the
// unpacked or packed free-list shape depending on whether blocks in this
// layer are smaller than a page.
func getSlot(h *layerHeader, pageSize uintptr) (osmem.Addr, error) {
	if h.freeHead == 0 {
		if h.bumpIndex >= h.blockMax {
			return 0, errors.New("lalloc: layer full")
		}
		addr := h.base + osmem.Addr(h.bumpIndex*h.blockSize)
		h.bumpIndex++
		h.blockCount++
		stats.Global.BumpAllocs.Inc()
		return addr, nil
	}

	if h.blockSize < uint64(pageSize) {
		// Unpacked: a trivial LIFO threaded through freed blocks. Pages
		// stay committed across the block's free/live transitions —
		// reclaiming sub-page physical memory individually isn't
		// possible without risking neighbouring live blocks.
		addr := h.freeHead
		h.freeHead = peekWord(addr, 0)
		h.blockCount++
		stats.Global.UnpackedHits.Inc()
		return addr, nil
	}

	// Packed: free_head is a node whose first page indexes up to K freed
	// blocks. Pop the last-pushed address; if that empties the node,
	// unlink it and hand its one committed page back to the OS.
	head := h.freeHead
	linkCount := uint64(peekWord(head, 1))
	addr := peekWord(head, 2+int(linkCount)-1)
	linkCount--
	if linkCount == 0 {
		old := head
		h.freeHead = peekWord(old, 0)
		if err := osmem.Decommit(old, pageSize); err != nil {
			return 0, err
		}
		stats.Global.PackedNodesRetired.Inc()
	} else {
		pokeWord(head, 1, osmem.Addr(linkCount))
	}
	h.blockCount++
	stats.Global.PackedHits.Inc()
	return addr, nil
}

// delSlot implements spec.md §4.4's del_slot: return addr to layer i's
// free list. In a packed layer, a block that becomes a new index node has
// everything beyond its first page decommitted; a block recorded as an
// entry in an existing node keeps all of its pages committed.
func delSlot(h *layerHeader, addr osmem.Addr, pageSize uintptr) error {
	if h.blockSize < uint64(pageSize) {
		pokeWord(addr, 0, h.freeHead)
		h.freeHead = addr
		h.blockCount--
		stats.Global.Frees.Inc()
		return nil
	}

	k := packedCapacity(pageSize)
	if h.freeHead == 0 || uint64(peekWord(h.freeHead, 1)) == k {
		// Promote addr itself to a new head node. The freed block
		// contributes one page of index storage plus one index entry
		// that (below) ends up referencing itself.
		pokeWord(addr, 0, h.freeHead)
		pokeWord(addr, 1, 0)
		h.freeHead = addr
		if h.blockSize > uint64(pageSize) {
			rest := uintptr(h.blockSize) - pageSize
			if err := osmem.Decommit(addr+osmem.Addr(pageSize), rest); err != nil {
				return err
			}
		}
	}

	linkCount := uint64(peekWord(h.freeHead, 1))
	pokeWord(h.freeHead, 2+int(linkCount), addr)
	linkCount++
	pokeWord(h.freeHead, 1, osmem.Addr(linkCount))
	h.blockCount--
	stats.Global.Frees.Inc()
	return nil
}

// freeListDepth walks free_head and counts reachable nodes' worth of
// addresses: for an unpacked layer this is the list length, for a packed
// layer it is the sum of each node's link_count. Used by tests to check
// the §8 property-5 invariant; not on any allocation hot path.
func freeListDepth(h *layerHeader, pageSize uintptr) uint64 {
	var n uint64
	if h.blockSize < uint64(pageSize) {
		for p := h.freeHead; p != 0; p = peekWord(p, 0) {
			n++
		}
		return n
	}
	for p := h.freeHead; p != 0; p = peekWord(p, 0) {
		n += uint64(peekWord(p, 1))
	}
	return n
}
