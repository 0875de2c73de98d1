package arena

import "unsafe"

// GrowFunc supplies a fresh backing region of size bytes when a Pool's
// current arena fills up. It mirrors the region a caller would otherwise
// hand to Init directly.
type GrowFunc func(size uint64) (unsafe.Pointer, error)

// Pool stitches together however many fixed-size Arena values it takes to
// keep satisfying Acquire calls, by asking GrowFunc for a new backing
// region whenever every existing arena is full. Arena itself stays scoped
// to a single fixed region, so the growable behaviour lives here instead
// of inside Arena.
type Pool struct {
	chunkSize  uint64
	arenaSize  uint64
	grow       GrowFunc
	commit     CommitFunc
	arenas     []*Arena
	chunkOwner map[unsafe.Pointer]*Arena
}

// NewPool creates an empty Pool. Each backing region Init obtains from
// grow holds arenaSize/chunkSize chunks.
func NewPool(arenaSize, chunkSize uint64, grow GrowFunc, commit CommitFunc) *Pool {
	return &Pool{
		chunkSize:  chunkSize,
		arenaSize:  arenaSize,
		grow:       grow,
		commit:     commit,
		chunkOwner: make(map[unsafe.Pointer]*Arena),
	}
}

// Acquire returns a chunk from an existing arena with room, or grows the
// pool by one more arena if every existing one is full. Only a failure to
// grow (the GrowFunc erroring) surfaces as StatusMemFull.
func (p *Pool) Acquire() (unsafe.Pointer, Status) {
	for _, a := range p.arenas {
		if a.LiveCount() < a.MaxChunkCount() {
			addr, status := a.Acquire()
			if status == StatusSuccess {
				p.chunkOwner[addr] = a
			}
			return addr, status
		}
	}

	base, err := p.grow(p.arenaSize)
	if err != nil {
		return nil, StatusMemFull
	}
	a := Init(base, p.arenaSize, p.chunkSize, p.commit)
	p.arenas = append(p.arenas, &a)
	addr, status := a.Acquire()
	if status == StatusSuccess {
		p.chunkOwner[addr] = &a
	}
	return addr, status
}

// Release returns a chunk obtained from Acquire to its owning arena. addr
// must be a prior Acquire result.
func (p *Pool) Release(addr unsafe.Pointer) {
	a, ok := p.chunkOwner[addr]
	if !ok {
		panic("arena: release of unknown chunk")
	}
	a.Release(addr)
	delete(p.chunkOwner, addr)
}
