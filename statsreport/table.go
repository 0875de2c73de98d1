package statsreport

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	lalloc "github.com/SeeleyLogan/ls-libs"
)

// WriteTable renders a human-readable occupancy table, one row per layer
// that has ever been touched (BumpIndex > 0), with locale-aware thousands
// separators on every numeric column.
func WriteTable(w io.Writer, snap []lalloc.LayerSnapshot) {
	p := message.NewPrinter(language.English)
	p.Fprintln(w, "layer  block_size        live       bumped  free_depth")
	for _, s := range snap {
		if s.BumpIndex == 0 {
			continue
		}
		p.Fprintf(w, "%5d  %10d  %10d   %10d  %10d\n",
			s.Index, s.BlockSize, s.BlockCount, s.BumpIndex, s.FreeListDepth)
	}
}
