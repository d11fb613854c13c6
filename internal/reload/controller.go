// Package reload implements spec.md §4.5's reload controller: the
// single place that turns a burst of filesystem events into one
// invalidate→rebuild→restart cycle.
package reload

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/tsdev/internal/logging"
)

// debounceDelay is spec.md §4.5's fixed 15ms trailing-edge debounce.
const debounceDelay = 15 * time.Millisecond

// Coordinator is the subset of internal/compiler.Coordinator the
// controller depends on, declared locally so this package never
// imports internal/compiler back (avoids the import cycle that would
// exist if compiler also depended on reload).
type Coordinator interface {
	InvalidateBuildSet()
	Rebuild(ctx context.Context) error
}

// Supervisor is the subset of internal/supervisor.Supervisor the
// controller depends on.
type Supervisor interface {
	Restart(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Reporter receives user-visible status lines. Satisfied by
// internal/console.Reporter.
type Reporter interface {
	Restarting(summary string)
	Error(err error)
}

// Controller owns the current Batch and drives the debounce timer.
// Grounded on the teacher's watcher.Debouncer time.AfterFunc pattern,
// generalized: here the accumulated state is the ReloadBatch (path list
// + monotonic invalidate flag) rather than a raw event slice, and
// flushing drives compilation and the supervisor rather than just
// delivering events to a handler.
type Controller struct {
	coordinator Coordinator
	supervisor  Supervisor
	report      Reporter
	log         logging.Logger

	mu      sync.Mutex
	batch   *Batch
	timer   *time.Timer
	cleanup []func()
}

// New constructs a Controller.
func New(coordinator Coordinator, supervisor Supervisor, report Reporter, log logging.Logger) *Controller {
	return &Controller{
		coordinator: coordinator,
		supervisor:  supervisor,
		report:      report,
		log:         log.WithComponent("reload"),
		batch:       newBatch(),
	}
}

// OnCleanup registers a callback run, in registration order, during
// Shutdown.
func (c *Controller) OnCleanup(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanup = append(c.cleanup, fn)
}

// EnqueueReload appends path to the pending batch, ORs in invalidate,
// and (re)schedules the trailing debounce. Implements spec.md §4.5's
// enqueueReload.
func (c *Controller) EnqueueReload(ctx context.Context, path string, invalidate bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch.append(path, invalidate)

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(debounceDelay, func() { c.reloadNow(ctx) })
}

// reloadNow implements spec.md §4.5's five-step reloadNow. It is only
// ever invoked from the debounce timer, so it takes the lock itself for
// the snapshot-then-clear step and releases it before the (potentially
// slow) rebuild and restart calls — enqueueReload must remain free to
// accept new events while a rebuild is in flight.
func (c *Controller) reloadNow(ctx context.Context) {
	c.mu.Lock()
	snapshot := c.batch
	c.batch = newBatch()
	c.mu.Unlock()

	if snapshot.empty() {
		return
	}

	c.report.Restarting(snapshot.summary())
	c.apply(ctx, snapshot.Invalidate)
}

// InvalidateBuildSetAndReload runs steps 3–5 of reloadNow
// unconditionally, used for initial boot and the stdin "rs" command.
func (c *Controller) InvalidateBuildSetAndReload(ctx context.Context) {
	c.apply(ctx, true)
}

func (c *Controller) apply(ctx context.Context, invalidate bool) {
	if invalidate {
		c.coordinator.InvalidateBuildSet()
	}
	if err := c.coordinator.Rebuild(ctx); err != nil {
		c.report.Error(err)
		return
	}
	if err := c.supervisor.Restart(ctx); err != nil {
		c.report.Error(err)
	}
}

// Shutdown stops the supervisor and runs every registered cleanup
// callback in registration order. It does not exit; the caller chooses
// the exit code and terminates the process after this returns.
func (c *Controller) Shutdown(ctx context.Context) {
	_ = c.supervisor.Stop(ctx)

	c.mu.Lock()
	cleanup := c.cleanup
	c.mu.Unlock()

	for _, fn := range cleanup {
		fn()
	}
}
