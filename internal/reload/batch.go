package reload

import "strconv"

// Batch accumulates changed paths between two flushes of the reload
// debounce timer. It is spec.md §4.5's ReloadBatch: Invalidate only
// ever moves false→true for the life of a batch (monotonic — spec.md
// §8 invariant 2), and Paths only ever grows.
type Batch struct {
	Paths      []string
	Invalidate bool
}

func newBatch() *Batch {
	return &Batch{}
}

// append adds path to the batch and ORs in invalidate, preserving
// monotonicity: once true, Invalidate never reverts to false within
// this batch's lifetime.
func (b *Batch) append(path string, invalidate bool) {
	b.Paths = append(b.Paths, path)
	b.Invalidate = b.Invalidate || invalidate
}

func (b *Batch) empty() bool { return len(b.Paths) == 0 }

// summary renders the user-visible restart line from spec.md §4.5 step 1.
func (b *Batch) summary() string {
	if len(b.Paths) == 0 {
		return ""
	}
	first := b.Paths[0]
	n := len(b.Paths) - 1
	verb := "restarting"
	if b.Invalidate {
		verb = "reinitializing and restarting"
	}
	if n == 0 {
		return first + " changed, " + verb + "…"
	}
	if n == 1 {
		return first + " and 1 other changed, " + verb + "…"
	}
	return first + " and " + strconv.Itoa(n) + " others changed, " + verb + "…"
}
