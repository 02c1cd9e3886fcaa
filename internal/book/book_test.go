package book

import (
	"testing"

	"numeri/internal/model"
)

func TestOrderBook_EmptyBookReportsZeroSentinelPrices(t *testing.T) {
	b := newBook("BTC-USD", 10)
	if got := b.BestBid(); got != 0.0 {
		t.Fatalf("BestBid on empty book = %v, want 0.0", got)
	}
	if got := b.BestAsk(); got != 0.0 {
		t.Fatalf("BestAsk on empty book = %v, want 0.0", got)
	}
}

// TestOrderBook_RoundTripEmpty inserts levels on both sides, then deletes
// every one of them (quantity <= 0 is a delete instruction per spec §4.2),
// and asserts the book returns to the same empty state it started in.
func TestOrderBook_RoundTripEmpty(t *testing.T) {
	b := newBook("BTC-USD", 10)

	prices := []float64{95, 96, 97}
	for _, p := range prices {
		mustApply(t, b, model.Buy, p, 1)
	}
	for _, p := range []float64{101, 102, 103} {
		mustApply(t, b, model.Sell, p, 1)
	}
	if len(b.Bids()) != 3 || len(b.Asks()) != 3 {
		t.Fatalf("after inserts: bids=%v asks=%v, want 3 and 3", b.Bids(), b.Asks())
	}

	for _, p := range prices {
		mustApply(t, b, model.Buy, p, 0) // delete
	}
	for _, p := range []float64{101, 102, 103} {
		mustApply(t, b, model.Sell, p, 0) // delete
	}

	if len(b.Bids()) != 0 || len(b.Asks()) != 0 {
		t.Fatalf("after deleting every inserted level: bids=%v asks=%v, want both empty", b.Bids(), b.Asks())
	}
	if b.BestBid() != 0.0 || b.BestAsk() != 0.0 {
		t.Fatalf("BestBid/BestAsk after round trip = %v/%v, want 0.0/0.0", b.BestBid(), b.BestAsk())
	}
}

func TestOrderBook_SequenceStrictlyIncreasing(t *testing.T) {
	b := newBook("BTC-USD", 10)
	var last uint64
	for i := 0; i < 5; i++ {
		if err := b.apply(model.Buy, float64(100+i), 1, int64(i)); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if b.Sequence() <= last {
			t.Fatalf("sequence did not strictly increase: %d <= %d", b.Sequence(), last)
		}
		last = b.Sequence()
	}
}

func TestOrderBook_BestBidLessThanBestAsk(t *testing.T) {
	b := newBook("BTC-USD", 10)
	mustApply(t, b, model.Buy, 99, 1)
	mustApply(t, b, model.Sell, 101, 1)

	if b.BestBid() >= b.BestAsk() {
		t.Fatalf("best bid %v >= best ask %v", b.BestBid(), b.BestAsk())
	}
}

func TestOrderBook_CrossedBookReturnsError(t *testing.T) {
	b := newBook("BTC-USD", 10)
	mustApply(t, b, model.Buy, 99, 1)
	mustApply(t, b, model.Sell, 101, 1)

	if err := b.apply(model.Buy, 102, 1, 3); err != ErrCrossedBook {
		t.Fatalf("apply crossing update: got %v, want ErrCrossedBook", err)
	}
}

func TestOrderBook_DeleteIdempotent(t *testing.T) {
	b := newBook("BTC-USD", 10)
	mustApply(t, b, model.Buy, 99, 1)
	mustApply(t, b, model.Buy, 99, 0) // delete
	if len(b.Bids()) != 0 {
		t.Fatalf("expected bid level removed, got %v", b.Bids())
	}
	// deleting an already-absent level must not error or resurrect it.
	mustApply(t, b, model.Buy, 99, 0)
	if len(b.Bids()) != 0 {
		t.Fatalf("expected bid ladder still empty after redundant delete, got %v", b.Bids())
	}
}

func TestOrderBook_MaxDepthRespected(t *testing.T) {
	b := newBook("BTC-USD", 3)
	for i := 0; i < 10; i++ {
		mustApply(t, b, model.Buy, float64(100-i), 1) // each a new worst bid
	}
	if len(b.Bids()) != 3 {
		t.Fatalf("depth = %d, want 3", len(b.Bids()))
	}
	if b.BestBid() != 100 {
		t.Fatalf("best bid = %v, want 100 (highest price; the deeper levels are trimmed)", b.BestBid())
	}
}

func TestOrderBook_SingleSidedBook(t *testing.T) {
	b := newBook("BTC-USD", 10)
	mustApply(t, b, model.Buy, 99, 1)
	if b.BestAsk() != 0.0 {
		t.Fatalf("BestAsk on ask-less book = %v, want 0.0", b.BestAsk())
	}
	if b.BestBid() != 99 {
		t.Fatalf("BestBid = %v, want 99", b.BestBid())
	}
}

func mustApply(t *testing.T, b *Book, side model.Side, price, qty float64) {
	t.Helper()
	if err := b.apply(side, price, qty, 0); err != nil && err != ErrCrossedBook {
		t.Fatalf("apply: %v", err)
	}
}
