//go:build !linux

package osmem

// Remap is not supported outside Linux in this build: there is no portable
// in-place page-table move, so the layered allocator's realloc falls back
// to commit-and-copy (spec.md §4.1, "On platforms that cannot do this, the
// façade returns a 'not supported' sentinel").
func Remap(src Addr, size uintptr, dst Addr) error {
	return ErrRemapUnsupported
}
