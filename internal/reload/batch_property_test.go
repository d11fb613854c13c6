//go:build property

package reload

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBatchInvalidateMonotonic checks spec.md §8 invariant 2: across any
// sequence of appends within one batch, Invalidate transitions at most
// once, false→true, and never back.
func TestBatchInvalidateMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4321)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("invalidate flips at most once and never back to false", prop.ForAll(
		func(flags []bool) bool {
			b := newBatch()
			sawTrue := false
			for i, f := range flags {
				b.append("path", f)
				if b.Invalidate {
					sawTrue = true
				}
				if sawTrue && !b.Invalidate {
					return false
				}
				_ = i
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
