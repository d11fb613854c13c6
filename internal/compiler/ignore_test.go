package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreSetHardIgnoresAlwaysApply(t *testing.T) {
	root := t.TempDir()
	is, err := NewIgnoreSet(root, nil)
	require.NoError(t, err)

	assert.True(t, is.Ignored(filepath.Join(root, "node_modules", "pkg", "index.ts")))
	assert.True(t, is.Ignored(filepath.Join(root, "src", "types.d.ts")))
	assert.False(t, is.Ignored(filepath.Join(root, "src", "index.ts")))
}

func TestIgnoreSetMatchedPatternNamesTheConfiguredPattern(t *testing.T) {
	root := t.TempDir()
	is, err := NewIgnoreSet(root, []string{"**/generated/**"})
	require.NoError(t, err)

	pattern, ignored := is.MatchedPattern(filepath.Join(root, "src", "generated", "schema.ts"))
	require.True(t, ignored)
	assert.Equal(t, "**/generated/**", pattern)
}

func TestIgnoreSetWithoutPatternRemovesOnlyThatRule(t *testing.T) {
	root := t.TempDir()
	is, err := NewIgnoreSet(root, []string{"**/generated/**"})
	require.NoError(t, err)

	generated := filepath.Join(root, "src", "generated", "schema.ts")
	require.True(t, is.Ignored(generated))

	// Removing the configured pattern must uncover the file, while the
	// hardcoded node_modules exclusion still governs other paths
	// (spec.md §8 invariant 5's "include-set minus G" comparison).
	without := is.WithoutPattern("**/generated/**")
	assert.False(t, without.Ignored(generated))
	assert.True(t, without.Ignored(filepath.Join(root, "node_modules", "x.ts")))
}

func TestIgnoreSetReadsWorkspaceGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("dist/\n# comment\n\nbuild/\n"), 0o644))

	is, err := NewIgnoreSet(root, nil)
	require.NoError(t, err)
	assert.True(t, is.Ignored(filepath.Join(root, "dist", "out.js")))
}
