// Package queue implements the four bounded, lock-free MPMC queues the
// Kernel wires between plugins: the L2 snapshot queue, the metrics queue,
// the order-request queue, and the fill queue.
//
// The lock-free core is code.hybscloud.com/lfq's MPMC[T] (an SCQ queue,
// Nikolaev DISC 2019): push and pop are both wait-free against a fixed peer
// count and never block. This package adds the one thing lfq does not
// provide — a choice of full-queue policy — plus a Prometheus counter so
// the Kernel can report how often each queue has dropped a value.
package queue

import (
	"errors"

	"code.hybscloud.com/lfq"

	"numeri/internal/metrics"
)

// DropPolicy selects what a Queue does when Push finds the queue full.
type DropPolicy int

const (
	// DropNewest discards the value the caller just tried to push. This is
	// the policy for the order, fill, and metrics queues (spec §4.1/§7).
	DropNewest DropPolicy = iota
	// DropOldest pops the oldest resident value to make room, then pushes.
	// Only the L2 snapshot queue uses this policy: a stale snapshot is
	// worthless once a newer one exists, so the queue always carries the
	// freshest available view.
	DropOldest
)

// PushResult is the outcome of a non-blocking Push.
type PushResult int

const (
	Accepted PushResult = iota
	Full
)

// PopResult is the outcome of a non-blocking Pop.
type PopResult int

const (
	Some PopResult = iota
	Empty
)

// Queue is a fixed-capacity MPMC queue of T, chosen at construction. Queue
// never blocks: Push returns Full instead of waiting for room, Pop returns
// Empty instead of waiting for a value. Ordering is FIFO per producer; there
// is no total order across producers. Visibility of a pushed value to
// consumers is established by lfq's internal release/acquire discipline.
type Queue[T any] struct {
	inner  *lfq.MPMC[T]
	policy DropPolicy
	name   string
	full   metrics.Counter
}

// New creates a queue of the given capacity (rounded up to a power of two
// by lfq) and full-queue policy. name identifies the queue in the
// "queue full" Prometheus counter (spec §7).
func New[T any](name string, capacity int, policy DropPolicy) *Queue[T] {
	return &Queue[T]{
		inner:  lfq.NewMPMC[T](capacity),
		policy: policy,
		name:   name,
		full:   metrics.QueueFullCounter(name),
	}
}

// Cap returns the usable capacity of the queue.
func (q *Queue[T]) Cap() int { return q.inner.Cap() }

// Push attempts to enqueue value. On a full queue it applies the
// configured DropPolicy: DropNewest simply reports Full and leaves
// ownership with the caller (spec §4.1: "failure to push leaves ownership
// with the caller"); DropOldest pops one resident value to make room before
// retrying, so the newly pushed value always lands.
func (q *Queue[T]) Push(value T) PushResult {
	if err := q.inner.Enqueue(&value); err == nil {
		return Accepted
	}

	if q.policy == DropNewest {
		q.full.Inc()
		return Full
	}

	// DropOldest: evict one value and retry once. Under concurrent
	// producers another push may win the freed slot first; in that case we
	// report Full rather than spin, since spec §4.1 only requires push to
	// be non-blocking, not to guarantee eventual success under contention.
	if _, err := q.inner.Dequeue(); err != nil {
		q.full.Inc()
		return Full
	}
	if err := q.inner.Enqueue(&value); err != nil {
		q.full.Inc()
		return Full
	}
	return Accepted
}

// Pop attempts to dequeue a value. It never blocks.
func (q *Queue[T]) Pop() (T, PopResult) {
	v, err := q.inner.Dequeue()
	if err != nil {
		if !errors.Is(err, lfq.ErrWouldBlock) {
			// lfq's only non-nil Dequeue error is ErrWouldBlock; treat
			// anything else the same way rather than propagating a
			// failure mode the queue contract says does not exist.
			var zero T
			return zero, Empty
		}
		var zero T
		return zero, Empty
	}
	return v, Some
}

// Drain marks the queue as no longer receiving pushes, letting Pop consume
// every resident value without contending against the producer-liveness
// threshold lfq enforces internally. The Kernel calls this during stop
// sequencing once a queue's sole producer role (ingestor, algorithm, or
// execution engine) has been told to stop.
func (q *Queue[T]) Drain() {
	q.inner.Drain()
}
