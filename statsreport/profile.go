// Package statsreport renders a layered allocator's per-layer occupancy
// (package lalloc's LayerSnapshot) two ways: a locale-aware human table,
// and a pprof profile so the same state can be browsed with
// `go tool pprof`.
package statsreport

import (
	"fmt"
	"io"
	"time"

	"github.com/google/pprof/profile"

	lalloc "github.com/SeeleyLogan/ls-libs"
)

// DumpProfile serializes snap as a pprof profile with one sample per
// non-empty layer: live block count and live byte count as the two
// sample values, the layer's block size encoded in the sample's function
// name. This gives `go tool pprof -top` a familiar view of where the
// allocator's virtual window is actually occupied.
func DumpProfile(w io.Writer, snap []lalloc.LayerSnapshot) error {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "live_blocks", Unit: "count"},
			{Type: "live_bytes", Unit: "bytes"},
		},
		TimeNanos: time.Now().UnixNano(),
	}

	var nextID uint64 = 1
	for _, s := range snap {
		if s.BlockCount == 0 {
			continue
		}
		fn := &profile.Function{
			ID:   nextID,
			Name: layerName(s),
		}
		loc := &profile.Location{
			ID:   nextID,
			Line: []profile.Line{{Function: fn}},
		}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value: []int64{
				int64(s.BlockCount),
				int64(s.BlockCount * s.BlockSize),
			},
		})
		nextID++
	}

	return p.Write(w)
}

func layerName(s lalloc.LayerSnapshot) string {
	return fmt.Sprintf("layer%02d[block=%d]", s.Index, s.BlockSize)
}
