// Package session constructs the one process-wide object tsdev needs
// instead of ambient globals: the temp work directory, the staging
// directory compiled output is written to, the IPC endpoint path, and
// the path the generated child-side harness script is written to.
//
// See spec.md §9 ("Global mutable state") and §6 ("Persisted state").
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// idAlphabet avoids characters that need escaping in shell arguments or
// socket paths.
const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Session is owned by the reload controller and threaded explicitly into
// every component that needs a path, rather than read from a package
// global.
type Session struct {
	ID       string
	Dir      string // <tmp>/tsdev-<id>/
	StageDir string // Dir/out — compiled output staging tree
	Socket   string // Dir/ipc.sock, or the Windows named-pipe form
	Harness  string // Dir/harness.js — generated child-side loader hook
}

// New allocates a fresh temp work directory and returns the Session
// describing it. The directory and its subdirectories are created;
// nothing is written into them yet.
func New() (*Session, error) {
	id, err := gonanoid.Generate(idAlphabet, 10)
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	dir := filepath.Join(os.TempDir(), "tsdev-"+id)
	stage := filepath.Join(dir, "out")
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	return &Session{
		ID:       id,
		Dir:      dir,
		StageDir: stage,
		Socket:   socketPath(dir),
		Harness:  filepath.Join(dir, "harness.js"),
	}, nil
}

// socketPath returns the IPC endpoint path for the current platform.
//
// On Windows it returns the named-pipe form \\?\pipe\<workdir>\ipc.sock
// (spec.md §6); elsewhere it returns <workdir>/ipc.sock. tsdev's IPC
// server only listens with net.Listen("unix", ...) and has no
// named-pipe transport (see DESIGN.md, Open Question 3).
func socketPath(dir string) string {
	if runtime.GOOS == "windows" {
		return `\\?\pipe\` + dir + `\ipc.sock`
	}
	return filepath.Join(dir, "ipc.sock")
}

// StagedPath returns where compiled output for a relative path (relative
// to some GroupRoot) is written under the staging tree.
func (s *Session) StagedPath(groupRoot, sourcePath string) (string, error) {
	rel, err := filepath.Rel(groupRoot, sourcePath)
	if err != nil {
		return "", fmt.Errorf("computing staged path for %s: %w", sourcePath, err)
	}
	ext := filepath.Ext(rel)
	rel = rel[:len(rel)-len(ext)] + ".js"
	return filepath.Join(s.StageDir, rel), nil
}

// Cleanup best-effort removes the entire session directory. Errors are
// swallowed by design: shutdown must never fail because of stale temp
// files (spec.md §5, "on process shutdown all ongoing work is
// abandoned and cleanup callbacks run best-effort").
func (s *Session) Cleanup() {
	_ = os.RemoveAll(s.Dir)
}
