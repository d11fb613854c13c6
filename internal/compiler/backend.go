package compiler

import "context"

// Backend is spec.md §4.1's transpiler backend contract. The group-build
// and per-file backends both satisfy it behind the same shape, so
// callers (Coordinator) never branch on which one is active — spec.md
// §9, "Two backends, one contract".
type Backend interface {
	// Compile ensures path and its group peers have current compiled
	// output available, returning the BuildGroup it now belongs to.
	Compile(ctx context.Context, path SourcePath) (*BuildGroup, error)

	// FileGroup returns the in-memory output bodies for every file of
	// the group containing path.
	FileGroup(ctx context.Context, path SourcePath) (map[SourcePath]string, error)

	// InvalidateBuildSet drops all cached groups.
	InvalidateBuildSet()

	// Rebuild re-runs compilation for every group currently in the
	// build set, producing fresh outputs.
	Rebuild(ctx context.Context) error
}
