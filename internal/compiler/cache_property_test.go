//go:build property

package compiler

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBuildSetGroupUniqueness checks spec.md §8 invariant 1: at most one
// BuildGroup ever contains a given SourcePath, no matter how many times
// Put is called with conflicting GroupRoots for the same path.
func TestBuildSetGroupUniqueness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("a SourcePath belongs to at most one group after any sequence of Puts", prop.ForAll(
		func(rootIdxs []int, pathIdxs []int) bool {
			n := len(rootIdxs)
			if len(pathIdxs) < n {
				n = len(pathIdxs)
			}
			if n == 0 {
				return true
			}

			bs := NewBuildSet()
			for i := 0; i < n; i++ {
				root := fmt.Sprintf("/proj%d", rootIdxs[i]%5)
				path := fmt.Sprintf("/proj%d/f%d.ts", rootIdxs[i]%5, pathIdxs[i]%5)
				bs.Put(&CompiledFile{
					SourcePath: SourcePath(path),
					GroupRoot:  GroupRoot(root),
					CompiledAt: time.Now(),
				})
			}

			seen := map[SourcePath]int{}
			for _, group := range bs.groups {
				for path := range group.Files {
					seen[path]++
				}
			}
			for _, count := range seen {
				if count != 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100)),
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}
