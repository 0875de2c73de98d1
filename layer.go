package lalloc

import (
	"github.com/SeeleyLogan/ls-libs/internal/roundutil"
	"github.com/SeeleyLogan/ls-libs/osmem"
)

// Tunable constants from spec.md §6. These are calculated; do not change
// them independently of one another.
const (
	// VspaceSize is the size of the single huge virtual-address
	// reservation (35 TiB) backing every layer.
	VspaceSize uint64 = 35 << 40
	// MinBlock is the smallest block size handed out, layer 0.
	MinBlock uint64 = 64
	// MinBlockShift is log2(MinBlock).
	MinBlockShift uint = 6
	// MaxBlock is the largest block size, layer LayerCount-1 (1 TiB).
	MaxBlock uint64 = 1 << 40
	// LayerCount is the number of fixed-stride layers partitioning the
	// virtual window.
	LayerCount = 35
	// LayerSize is the size of a single layer (1 TiB == MaxBlock).
	LayerSize uint64 = MaxBlock
	// MemcpyThreshold is the block size at or above which realloc uses
	// remap instead of a byte copy. Must exceed the page size.
	MemcpyThreshold uint64 = 8 << 20
)

// layerHeader is the per-layer bookkeeping described in spec.md §3.3.
// block_count == bump_index - (block addresses reachable from free_head,
// as counted by freeListDepth) is the invariant every get/del-slot
// operation must preserve.
type layerHeader struct {
	base       osmem.Addr
	blockSize  uint64
	blockCount uint64
	blockMax   uint64
	bumpIndex  uint64
	freeHead   osmem.Addr // 0 (never a valid block address) means empty
}

// blockSizeOf returns B(i) = 64 * 2^i, the size of every block in layer i.
func blockSizeOf(i int) uint64 {
	return MinBlock << uint(i)
}

// layerOfSize maps a requested size to its layer index:
// i = ceil(log2(max(s, 64))) - 6. Callers must first reject s > MaxBlock.
func layerOfSize(s uint64) int {
	s = roundutil.Max(s, MinBlock)
	return int(roundutil.CeilLog2(s)) - int(MinBlockShift)
}

// layerOfAddr is the inverse mapping used by free/realloc: derive the
// owning layer purely from an address's offset into the virtual window.
// addr must lie within [vspaceBase, vspaceBase+VspaceSize) — callers never
// pass foreign pointers (spec.md §4.3, InvalidAddress is undefined
// behaviour).
func layerOfAddr(vspaceBase, addr osmem.Addr) int {
	return int((uint64(addr) - uint64(vspaceBase)) / LayerSize)
}
