package lalloc

// LayerSnapshot is a read-only view of one layer's bookkeeping, exposed
// for external reporting/profiling tools (package statsreport) without
// giving them access to the free-list pointers themselves.
type LayerSnapshot struct {
	Index         int
	BlockSize     uint64
	BlockCount    uint64
	BlockMax      uint64
	BumpIndex     uint64
	FreeListDepth uint64
}

// Snapshot takes a consistent, lock-protected snapshot of every layer's
// bookkeeping. It walks free lists to compute FreeListDepth, so it is
// meant for reporting and tests, not the allocation hot path.
func (m *Meta_t) Snapshot() []LayerSnapshot {
	m.lock.Lock()
	defer m.lock.Unlock()

	out := make([]LayerSnapshot, LayerCount)
	for i := range m.headers {
		h := &m.headers[i]
		out[i] = LayerSnapshot{
			Index:         i,
			BlockSize:     h.blockSize,
			BlockCount:    h.blockCount,
			BlockMax:      h.blockMax,
			BumpIndex:     h.bumpIndex,
			FreeListDepth: freeListDepth(h, m.pageSize),
		}
	}
	return out
}

// Snapshot reports the shared global allocator instance's per-layer state.
func Snapshot() []LayerSnapshot { return global.Snapshot() }
