package reload

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tsdev/internal/logging"
)

type fakeCoordinator struct {
	mu               sync.Mutex
	invalidateCalls  int
	rebuildCalls     int
	rebuildBeforeInv bool
}

func (f *fakeCoordinator) InvalidateBuildSet() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidateCalls++
}

func (f *fakeCoordinator) Rebuild(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuildCalls++
	return nil
}

type fakeSupervisor struct {
	mu           sync.Mutex
	restartCalls int
}

func (f *fakeSupervisor) Restart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restartCalls++
	return nil
}

func (f *fakeSupervisor) Stop(ctx context.Context) error { return nil }

type fakeReporter struct {
	mu        sync.Mutex
	summaries []string
}

func (f *fakeReporter) Restarting(summary string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, summary)
}

func (f *fakeReporter) Error(err error) {}

func TestControllerDebouncesBurstsIntoOneRestart(t *testing.T) {
	coord := &fakeCoordinator{}
	sup := &fakeSupervisor{}
	rep := &fakeReporter{}
	c := New(coord, sup, rep, logging.New(logging.DefaultConfig()))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		c.EnqueueReload(ctx, "a.ts", false)
	}

	require.Eventually(t, func() bool {
		sup.mu.Lock()
		defer sup.mu.Unlock()
		return sup.restartCalls == 1
	}, time.Second, 5*time.Millisecond)

	coord.mu.Lock()
	defer coord.mu.Unlock()
	assert.Equal(t, 0, coord.invalidateCalls, "no event in the burst set invalidate=true")
	assert.Equal(t, 1, coord.rebuildCalls)
}

func TestControllerInvalidatesWhenAnyEventRequiresIt(t *testing.T) {
	coord := &fakeCoordinator{}
	sup := &fakeSupervisor{}
	rep := &fakeReporter{}
	c := New(coord, sup, rep, logging.New(logging.DefaultConfig()))

	ctx := context.Background()
	c.EnqueueReload(ctx, "a.ts", false)
	c.EnqueueReload(ctx, "b.ts", true)

	require.Eventually(t, func() bool {
		sup.mu.Lock()
		defer sup.mu.Unlock()
		return sup.restartCalls == 1
	}, time.Second, 5*time.Millisecond)

	coord.mu.Lock()
	defer coord.mu.Unlock()
	assert.Equal(t, 1, coord.invalidateCalls)
}

func TestControllerShutdownRunsCleanupInOrder(t *testing.T) {
	coord := &fakeCoordinator{}
	sup := &fakeSupervisor{}
	rep := &fakeReporter{}
	c := New(coord, sup, rep, logging.New(logging.DefaultConfig()))

	var order []int
	c.OnCleanup(func() { order = append(order, 1) })
	c.OnCleanup(func() { order = append(order, 2) })

	c.Shutdown(context.Background())
	assert.Equal(t, []int{1, 2}, order)
}
