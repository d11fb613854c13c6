package compiler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	tsdeverrors "github.com/conneroisu/tsdev/internal/errors"
)

// PerFileBackend is spec.md §4.1's per-file backend (selected by --swc):
// it skips group enumeration entirely and transforms exactly the
// requested file into memory, recording it as a single-file group keyed
// by its own GroupRoot. Group growth is by accretion — every distinct
// file added extends the group's file set, but nothing is ever
// eagerly enumerated.
//
// Its compiled output is in-memory first and foremost (per spec.md
// §4.1), but is also mirrored, best-effort, to the session's staging
// tree via stagedPath, so both backends leave the same on-disk layout
// (DESIGN.md, Open Question 1).
type PerFileBackend struct {
	ignore     []string
	stagedPath StagedPathFunc
	buildSet   *BuildSet
}

// NewPerFileBackend constructs a per-file backend.
func NewPerFileBackend(ignore []string, stagedPath StagedPathFunc) *PerFileBackend {
	return &PerFileBackend{ignore: ignore, stagedPath: stagedPath, buildSet: NewBuildSet()}
}

// Compile implements Backend.
func (b *PerFileBackend) Compile(ctx context.Context, path SourcePath) (*BuildGroup, error) {
	root, err := GroupRootFor(path)
	if err != nil {
		return nil, tsdeverrors.OutsideProject(path)
	}

	ignores, err := NewIgnoreSet(root, b.ignore)
	if err != nil {
		return nil, fmt.Errorf("building ignore set for %s: %w", root, err)
	}
	if pattern, ignored := ignores.MatchedPattern(path); ignored {
		return nil, tsdeverrors.MissingDestination(path, pattern)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !b.buildSet.IsStale(path, info.ModTime()) {
		group, _ := b.buildSet.GroupFor(path)
		return group, nil
	}

	if err := b.compileOne(ctx, root, path); err != nil {
		return nil, err
	}
	group, _ := b.buildSet.GroupFor(path)
	return group, nil
}

// FileGroup implements Backend.
func (b *PerFileBackend) FileGroup(ctx context.Context, path SourcePath) (map[SourcePath]string, error) {
	if _, err := b.Compile(ctx, path); err != nil {
		return nil, err
	}
	bodies, _ := b.buildSet.FileGroupBodies(path)
	return bodies, nil
}

// InvalidateBuildSet implements Backend.
func (b *PerFileBackend) InvalidateBuildSet() { b.buildSet.Invalidate() }

// Rebuild implements Backend.
func (b *PerFileBackend) Rebuild(ctx context.Context) error {
	for _, group := range b.buildSet.Groups() {
		for path := range group.Files {
			if err := b.compileOne(ctx, group.Root, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *PerFileBackend) compileOne(ctx context.Context, root GroupRoot, path SourcePath) error {
	if err := validateArguments([]string{path}); err != nil {
		return fmt.Errorf("swc args: %w", err)
	}

	cmd := exec.CommandContext(ctx, "swc", "compile", path, "--source-maps", "inline")
	output, err := cmd.Output()
	if err != nil {
		return tsdeverrors.Compile(path, fmt.Errorf("swc failed: %w", err))
	}

	outPath := ""
	if b.stagedPath != nil {
		outPath, err = b.stagedPath(root, path)
		if err == nil {
			if mkErr := os.MkdirAll(filepath.Dir(outPath), 0o755); mkErr == nil {
				tmp := outPath + ".tmp"
				if writeErr := os.WriteFile(tmp, output, 0o644); writeErr == nil {
					_ = os.Rename(tmp, outPath)
				}
			}
		}
	}

	b.buildSet.Put(&CompiledFile{
		SourcePath: path,
		GroupRoot:  root,
		OutputPath: outPath,
		OutputCode: string(output),
		CompiledAt: time.Now(),
	})
	return nil
}
