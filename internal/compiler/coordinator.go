package compiler

import "context"

// Coordinator is spec.md §4.7's compile coordinator: a thin owner around
// whichever Backend was selected at boot. It exists so callers (the IPC
// server, the reload controller) depend on one type regardless of
// --swc, matching the teacher's own BuildPipeline-owns-TemplCompiler
// separation of "what drives compilation" from "how one file is
// compiled".
type Coordinator struct {
	backend Backend
}

// NewCoordinator wraps backend.
func NewCoordinator(backend Backend) *Coordinator {
	return &Coordinator{backend: backend}
}

// Compile resolves path to its group, ensures the group is built, and
// returns it.
func (c *Coordinator) Compile(ctx context.Context, path SourcePath) (*BuildGroup, error) {
	return c.backend.Compile(ctx, path)
}

// FileGroup returns the in-memory output bodies for every file of the
// group containing path.
func (c *Coordinator) FileGroup(ctx context.Context, path SourcePath) (map[SourcePath]string, error) {
	return c.backend.FileGroup(ctx, path)
}

// InvalidateBuildSet drops all cached groups.
func (c *Coordinator) InvalidateBuildSet() {
	c.backend.InvalidateBuildSet()
}

// Rebuild re-runs compilation for every group currently cached.
func (c *Coordinator) Rebuild(ctx context.Context) error {
	return c.backend.Rebuild(ctx)
}
