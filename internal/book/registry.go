package book

import (
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"

	"numeri/internal/metrics"
	"numeri/internal/model"
)

// Snapshot is the fast-path view a consumer pulls off the L2 snapshot
// queue. Book is whichever buffer was active at the moment of publication;
// Version pins the version that was true at that moment, so a consumer can
// detect whether the buffer has cycled back to being the producer's
// inactive side by comparing against Book.Version() (spec §4.3).
type Snapshot struct {
	Symbol      string
	Book        *Book
	Version     uint64
	TimestampNS int64
}

// Valid reports whether the buffer referenced by s.Book still holds the
// state it held at publication time. false means the producer has since
// cycled this buffer back into service and overwritten it; the consumer
// must fall back to the slow path (Registry.Current) instead of trusting
// s.Book's contents.
func (s Snapshot) Valid() bool {
	return s.Book.Version() == s.Version
}

// Publisher owns the two buffers backing one symbol's order book. Exactly
// one ingestor holds a Publisher for a given symbol at a time — Registry
// enforces that at Register.
type Publisher struct {
	symbol   string
	active   *Book
	inactive *Book
	reg      *Registry
}

// Apply applies a single level update to the buffer currently not visible
// to consumers. It does not publish; call Publish to make the update
// visible. Returns ErrCrossedBook if the update leaves the book crossed —
// the caller (an Ingestor) must treat that as the fatal invariant violation
// spec §7 describes, not as a recoverable error.
func (p *Publisher) Apply(side model.Side, price, qty float64) error {
	// The working buffer still holds the state from its own last publish;
	// bring it up to the currently published state before this batch's
	// first update, so no update is lost and versions keep increasing.
	if in, act := p.inactive, p.active; in.sequence < act.sequence {
		in.bids = append(in.bids[:0], act.bids...)
		in.asks = append(in.asks[:0], act.asks...)
		in.sequence = act.sequence
	}
	return p.inactive.apply(side, price, qty, model.NowNS())
}

// Publish runs the five-step protocol from spec §4.3: bump the
// now-current-contents buffer's version, swap which buffer is active,
// store the new active buffer into the Registry with release ordering so
// consumers' acquire-loads see a fully updated Book, and return the
// Snapshot a consumer would fast-path read.
func (p *Publisher) Publish() Snapshot {
	p.inactive.version.StoreRelease(p.inactive.sequence)

	p.active, p.inactive = p.inactive, p.active

	p.reg.store(p.symbol, p.active)
	metrics.SetBookVersion(p.symbol, p.active.Version())

	return Snapshot{
		Symbol:      p.symbol,
		Book:        p.active,
		Version:     p.active.Version(),
		TimestampNS: p.active.lastNS,
	}
}

// Registry is the process-wide map from symbol to the currently-published
// Book for that symbol. Consumers that missed or distrust a Snapshot use
// Registry.Current as the slow path (spec §4.3).
type Registry struct {
	mu      sync.RWMutex
	current map[string]*atomix.Pointer[Book]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{current: make(map[string]*atomix.Pointer[Book])}
}

// Register creates a fresh double-buffered book for symbol and returns the
// Publisher that owns it. It errors if symbol is already registered — spec
// §4.6's Open Question on multiple ingestors per symbol is resolved as one
// publisher per symbol (see DESIGN.md).
func (r *Registry) Register(symbol string, maxDepth int) (*Publisher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.current[symbol]; exists {
		return nil, fmt.Errorf("book: symbol %q already has a registered publisher", symbol)
	}

	active := newBook(symbol, maxDepth)
	inactive := newBook(symbol, maxDepth)

	ptr := &atomix.Pointer[Book]{}
	ptr.StoreRelease(active)
	r.current[symbol] = ptr

	return &Publisher{symbol: symbol, active: active, inactive: inactive, reg: r}, nil
}

// Unregister removes symbol from the registry. Called during Kernel stop
// sequencing once the owning ingestor has stopped.
func (r *Registry) Unregister(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.current, symbol)
}

// Current returns the Book most recently published for symbol — the slow
// path a consumer falls back to when it has no Snapshot, or when
// Snapshot.Valid() returns false.
func (r *Registry) Current(symbol string) (*Book, bool) {
	r.mu.RLock()
	ptr, ok := r.current[symbol]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ptr.LoadAcquire(), true
}

// Symbols returns the set of currently registered symbols, for admin
// introspection.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.current))
	for s := range r.current {
		out = append(out, s)
	}
	return out
}

func (r *Registry) store(symbol string, b *Book) {
	r.mu.RLock()
	ptr, ok := r.current[symbol]
	r.mu.RUnlock()
	if !ok {
		return
	}
	ptr.StoreRelease(b)
}
