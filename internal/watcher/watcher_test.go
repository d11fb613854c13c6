package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tsdev/internal/logging"
)

func TestEventTypeString(t *testing.T) {
	cases := []struct {
		ev       EventType
		expected string
	}{
		{EventChange, "change"},
		{EventAdd, "add"},
		{EventAddDir, "addDir"},
		{EventUnlink, "unlink"},
		{EventUnlinkDir, "unlinkDir"},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, c.ev.String())
	}
}

func TestEventTypeInvalidate(t *testing.T) {
	assert.False(t, EventChange.Invalidate())
	for _, ev := range []EventType{EventAdd, EventAddDir, EventUnlink, EventUnlinkDir} {
		assert.True(t, ev.Invalidate(), "%s must invalidate", ev)
	}
}

func newTestWatcher(t *testing.T) *FileWatcher {
	t.Helper()
	fw, err := New(logging.New(logging.DefaultConfig()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = fw.Close() })
	return fw
}

func TestFileWatcherDetectsWriteAsChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.ts")
	require.NoError(t, os.WriteFile(file, []byte("first"), 0o644))

	fw := newTestWatcher(t)
	require.NoError(t, fw.AddRecursive(dir))

	events := make(chan ChangeEvent, 8)
	fw.AddHandler(func(ev ChangeEvent) { events <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fw.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte("second"), 0o644))

	select {
	case ev := <-events:
		assert.Equal(t, EventChange, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestFileWatcherNewDirectoryIsWatchedAutomatically(t *testing.T) {
	dir := t.TempDir()

	fw := newTestWatcher(t)
	require.NoError(t, fw.AddRecursive(dir))

	events := make(chan ChangeEvent, 8)
	fw.AddHandler(func(ev ChangeEvent) { events <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fw.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))

	var sawAddDir bool
	deadline := time.After(2 * time.Second)
	for !sawAddDir {
		select {
		case ev := <-events:
			if ev.Type == EventAddDir {
				sawAddDir = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for addDir event")
		}
	}

	// A file created inside the newly reported directory must also be
	// observed, proving the directory was actually registered.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.ts"), []byte(""), 0o644))

	select {
	case ev := <-events:
		assert.Contains(t, ev.Path, "b.ts")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event inside new directory")
	}
}

func TestNoNodeModulesFilter(t *testing.T) {
	assert.False(t, NoNodeModules(filepath.Join("proj", "node_modules", "x.ts")))
	assert.True(t, NoNodeModules(filepath.Join("proj", "src", "x.ts")))
}

func TestExtensionFilter(t *testing.T) {
	f := ExtensionFilter([]string{".ts", ".tsx"})
	assert.True(t, f("a.ts"))
	assert.True(t, f("a.tsx"))
	assert.False(t, f("a.js"))
	assert.True(t, f("/project/src/components"), "extensionless paths (directories) must pass through")
}
