// Command lalloc-bench drives the layered allocator with a configurable
// number of concurrent workers, each doing a mix of alloc/realloc/free,
// then prints an occupancy report and optionally dumps it as a pprof
// profile. It exists to exercise spec.md §5's "parallel threads are
// supported" claim under an actual scheduler, not just in a unit test.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"unsafe"

	"golang.org/x/sync/errgroup"

	lalloc "github.com/SeeleyLogan/ls-libs"
	"github.com/SeeleyLogan/ls-libs/statsreport"
)

func main() {
	workers := flag.Int("workers", 8, "concurrent allocator workers")
	rounds := flag.Int("rounds", 10000, "alloc/realloc/free rounds per worker")
	profilePath := flag.String("profile", "", "write a pprof occupancy profile to this path")
	flag.Parse()

	var g errgroup.Group
	for w := 0; w < *workers; w++ {
		g.Go(func() error {
			return runWorker(*rounds)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("lalloc-bench: %v", err)
	}

	snap := lalloc.Snapshot()
	statsreport.WriteTable(os.Stdout, snap)

	if *profilePath != "" {
		f, err := os.Create(*profilePath)
		if err != nil {
			log.Fatalf("lalloc-bench: %v", err)
		}
		defer f.Close()
		if err := statsreport.DumpProfile(f, snap); err != nil {
			log.Fatalf("lalloc-bench: writing profile: %v", err)
		}
		fmt.Fprintf(os.Stderr, "wrote occupancy profile to %s\n", *profilePath)
	}
}

// runWorker allocates, grows, and frees a private working set of
// blocks, touching both the unpacked (sub-page) and packed (page-or-
// larger) free-list shapes.
func runWorker(rounds int) error {
	const (
		small = 128         // layer 1, unpacked
		large = 2 << 20     // 2 MiB, packed
		grown = 4 << 20     // 4 MiB, still below MemcpyThreshold
	)

	live := make([]unsafe.Pointer, 0, 64)
	for i := 0; i < rounds; i++ {
		switch i % 3 {
		case 0:
			p := lalloc.Alloc(small)
			if p == nil {
				return fmt.Errorf("alloc(%d) failed", small)
			}
			live = append(live, p)
		case 1:
			p := lalloc.Alloc(large)
			if p == nil {
				return fmt.Errorf("alloc(%d) failed", large)
			}
			p = lalloc.Realloc(p, grown)
			if p == nil {
				return fmt.Errorf("realloc to %d failed", grown)
			}
			live = append(live, p)
		default:
			if len(live) == 0 {
				continue
			}
			p := live[len(live)-1]
			live = live[:len(live)-1]
			lalloc.Free(p)
		}
	}
	for _, p := range live {
		lalloc.Free(p)
	}
	return nil
}
