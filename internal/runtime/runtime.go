// Package runtime implements the shared async I/O runtime spec §4.6 step 1
// describes: an executor with a work-guard so it never exits idle, and a
// fixed pool of worker goroutines plugins post network I/O onto instead of
// blocking their own dedicated OS thread.
//
// Grounded on the teacher's internal/engine.Engine goroutine/WaitGroup
// bookkeeping, generalized into a standalone pool and built on
// golang.org/x/sync/errgroup the way DimaJoyti-ai-agentic-crypto-browser's
// go.mod pulls in golang.org/x/sync for its own worker pools.
package runtime

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Runtime is the shared async executor. Plugins post work with Go; the
// Kernel calls Shutdown once during stop sequencing, after every plugin
// has been told to stop (spec §4.6 step 4: "release the runtime
// work-guard; stop the executor; join executor threads").
type Runtime struct {
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	work chan func(context.Context)

	guardOnce sync.Once
	guardDone chan struct{}
}

// New builds a Runtime with max(1, hardware_concurrency) workers, per spec
// §4.6 step 1. workers <= 0 means "use GOMAXPROCS".
func New(workers int) *Runtime {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	r := &Runtime{
		group:     group,
		ctx:       gctx,
		cancel:    cancel,
		work:      make(chan func(context.Context)),
		guardDone: make(chan struct{}),
	}

	// The work-guard: a goroutine that blocks on guardDone keeps the
	// errgroup from ever observing "no work in flight" and returning,
	// even during a lull between plugin-submitted tasks.
	group.Go(func() error {
		<-r.guardDone
		return nil
	})

	for i := 0; i < workers; i++ {
		group.Go(r.workerLoop)
	}

	return r
}

func (r *Runtime) workerLoop() error {
	for {
		select {
		case <-r.ctx.Done():
			return nil
		case fn, ok := <-r.work:
			if !ok {
				return nil
			}
			fn(r.ctx)
		}
	}
}

// Go posts fn to the worker pool. fn runs on whichever worker goroutine
// picks it up, with the Runtime's context, which is cancelled on Shutdown.
// Go does not block the caller beyond handing fn to a worker; if the
// Runtime has already begun shutting down, fn is dropped.
func (r *Runtime) Go(fn func(context.Context)) {
	select {
	case r.work <- fn:
	case <-r.ctx.Done():
	}
}

// Shutdown releases the work-guard, cancels the executor context, and
// waits for every worker goroutine to return.
func (r *Runtime) Shutdown() {
	r.guardOnce.Do(func() { close(r.guardDone) })
	r.cancel()
	_ = r.group.Wait()
}
