package runtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRuntime_GoRunsSubmittedWork(t *testing.T) {
	r := New(2)
	defer r.Shutdown()

	var ran int32
	done := make(chan struct{})
	r.Go(func(ctx context.Context) {
		atomic.StoreInt32(&ran, 1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted work did not run within 1s")
	}

	if atomic.LoadInt32(&ran) != 1 {
		t.Fatalf("ran = %d, want 1", ran)
	}
}

func TestRuntime_ShutdownReturnsPromptly(t *testing.T) {
	r := New(1)
	done := make(chan struct{})
	go func() {
		r.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return within 1s")
	}
}

func TestRuntime_DefaultsToAtLeastOneWorker(t *testing.T) {
	r := New(0)
	defer r.Shutdown()

	done := make(chan struct{})
	r.Go(func(ctx context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("work did not run with default worker count")
	}
}
