// Package book implements the versioned, double-buffered level-2 order book
// and its snapshot publication protocol (spec §4.2/§4.3).
//
// A Book is the data an Ingestor owns and mutates in place; it is never
// shared directly with consumers. Publisher pairs two Books (active,
// inactive) for a single symbol and is the only thing that ever swaps which
// one is "active" or stores a new view into the process-wide Registry.
// Readers only ever see a Snapshot or a Registry lookup, never a Book they
// could mutate.
package book

import (
	"fmt"
	"sort"

	"code.hybscloud.com/atomix"

	"numeri/internal/model"
)

const defaultMaxDepth = 100

// ErrCrossedBook is returned by Apply when an update would leave the best
// bid at or above the best ask. Spec §3 invariant (a) makes this a fatal,
// process-ending condition for the caller — see kernel.FatalInvariant.
var ErrCrossedBook = fmt.Errorf("book: best bid >= best ask")

// Book is one buffer of a symbol's order book: a bid ladder, an ask ladder,
// and the bookkeeping spec §3 requires (sequence, version, last-update
// time). Only the owning Publisher ever calls apply/publish on a Book;
// nothing else should reach into this type directly.
type Book struct {
	symbol   string
	bids     []model.PriceLevel // descending by price, best bid first
	asks     []model.PriceLevel // ascending by price, best ask first
	sequence uint64             // producer-only; strictly increasing
	version  atomix.Uint64      // written by the owning Publisher, read by any consumer
	lastNS   int64
	maxDepth int
}

func newBook(symbol string, maxDepth int) *Book {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &Book{symbol: symbol, maxDepth: maxDepth}
}

// Symbol returns the book's symbol.
func (b *Book) Symbol() string { return b.symbol }

// Sequence returns the number of updates applied so far. Only meaningful
// when read from the owning Publisher's goroutine.
func (b *Book) Sequence() uint64 { return b.sequence }

// Version returns the version most recently stored by Publish, with
// acquire semantics so a consumer's read is ordered after the producer's
// release-store in Publish.
func (b *Book) Version() uint64 { return b.version.LoadAcquire() }

// LastUpdateNS returns the timestamp of the most recent applied update.
func (b *Book) LastUpdateNS() int64 { return b.lastNS }

// BestBid returns the highest bid price, or 0.0 if the bid side is empty
// (spec §4.2: "0.0 sentinel for no level").
func (b *Book) BestBid() float64 {
	if len(b.bids) == 0 {
		return 0.0
	}
	return b.bids[0].Price
}

// BestAsk returns the lowest ask price, or 0.0 if the ask side is empty.
func (b *Book) BestAsk() float64 {
	if len(b.asks) == 0 {
		return 0.0
	}
	return b.asks[0].Price
}

// Bids returns the bid ladder, best first. The returned slice must not be
// mutated by the caller.
func (b *Book) Bids() []model.PriceLevel { return b.bids }

// Asks returns the ask ladder, best first. The returned slice must not be
// mutated by the caller.
func (b *Book) Asks() []model.PriceLevel { return b.asks }

// apply implements spec §4.2's update semantics for a single (side, price,
// new_qty) update: delete on qty<=0, else insert-or-replace, trim to
// maxDepth, bump sequence. Returns ErrCrossedBook if the update would
// violate invariant (a); the update is still applied (sequence still
// advances) so the caller can decide how to react — spec §7 calls this an
// "invariant violation", fatal for the process, not a rejected update.
func (b *Book) apply(side model.Side, price, qty float64, nowNS int64) error {
	switch side {
	case model.Buy:
		b.bids = upsertLevel(b.bids, price, qty, true)
		b.bids = trim(b.bids, b.maxDepth)
	case model.Sell:
		b.asks = upsertLevel(b.asks, price, qty, false)
		b.asks = trim(b.asks, b.maxDepth)
	}
	b.sequence++
	b.lastNS = nowNS

	if len(b.bids) > 0 && len(b.asks) > 0 && b.bids[0].Price >= b.asks[0].Price {
		return ErrCrossedBook
	}
	return nil
}

// upsertLevel removes the level at price if qty<=0, else inserts or
// replaces it, keeping the ladder sorted (descending for bids, ascending
// for asks).
func upsertLevel(levels []model.PriceLevel, price, qty float64, descending bool) []model.PriceLevel {
	idx := sort.Search(len(levels), func(i int) bool {
		if descending {
			return levels[i].Price <= price
		}
		return levels[i].Price >= price
	})

	found := idx < len(levels) && levels[idx].Price == price

	if qty <= 0 {
		if found {
			levels = append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}

	if found {
		levels[idx].Quantity = qty
		return levels
	}

	levels = append(levels, model.PriceLevel{})
	copy(levels[idx+1:], levels[idx:])
	levels[idx] = model.PriceLevel{Price: price, Quantity: qty}
	return levels
}

// trim evicts levels past maxDepth. Levels are kept sorted best-first, so
// the levels farthest from the top are always at the tail.
func trim(levels []model.PriceLevel, maxDepth int) []model.PriceLevel {
	if len(levels) <= maxDepth {
		return levels
	}
	return levels[:maxDepth]
}
