// Package ingestor is the reference Ingestor plugin: it subscribes to a
// venue's public WebSocket book feed, applies every level update to an
// internal/book.Publisher, and pushes a Snapshot onto the L2 queue after
// each batch (spec §4.2/§4.3's producer side).
//
// Grounded on the teacher's internal/market.Book update plumbing and
// internal/exchange.WSFeed's market channel, generalized from Polymarket's
// YES/NO token pair into a single-symbol feed (one Ingestor instance per
// symbol, per the Open Question decision in DESIGN.md).
package ingestor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"numeri/internal/book"
	"numeri/internal/kernel"
	"numeri/internal/model"
	"numeri/internal/netclient"
	"numeri/internal/pluginapi"
)

const defaultMaxDepth = 100

// wireLevel is one bid/ask entry as the venue's WS feed sends it.
type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// wireBookEvent is the only message shape this reference plugin
// understands: a list of bid and ask levels, decomposed into per-level
// applies (spec §4.2's apply-one-level-at-a-time semantics; a size <= 0
// deletes the level). It is not a full book replacement: levels the
// message does not list stay in the book as they were.
type wireBookEvent struct {
	Symbol string      `json:"symbol"`
	Bids   []wireLevel `json:"bids"`
	Asks   []wireLevel `json:"asks"`
}

// Ingestor is the reference httpvenue Ingestor plugin.
type Ingestor struct {
	name   string
	symbol string
	wsURL  string

	pub *book.Publisher
	cfg pluginapi.PluginConfig

	ws *netclient.WSClient

	running atomic.Bool
	stopped chan struct{}

	log *slog.Logger
}

// New constructs an uninitialized Ingestor. The plugin ABI factory
// (CreatePlugin) calls this with no arguments, per spec §4.4; the stable
// name comes from config and is only known once Init runs.
func New() *Ingestor {
	return &Ingestor{name: "unnamed", log: slog.New(slog.NewTextHandler(os.Stderr, nil))}
}

// Name implements pluginapi.PluginHandle.
func (p *Ingestor) Name() string { return p.name }

// Init implements pluginapi.PluginHandle. Idempotent: once Init has
// succeeded, later calls return nil without re-reading params or
// registering the symbol again.
func (p *Ingestor) Init(cfg pluginapi.PluginConfig) error {
	if p.pub != nil {
		return nil
	}
	p.name = cfg.Name
	p.log = p.log.With("plugin", cfg.Name)

	symbol, _ := cfg.Params["symbol"].(string)
	if symbol == "" {
		return pluginapi.NewInitError(pluginapi.ErrKindConfig, "params.symbol is required")
	}
	wsURL, _ := cfg.Params["ws_url"].(string)
	if wsURL == "" {
		return pluginapi.NewInitError(pluginapi.ErrKindConfig, "params.ws_url is required")
	}
	maxDepth := defaultMaxDepth
	if v, ok := cfg.Params["max_depth"].(float64); ok && v > 0 {
		maxDepth = int(v)
	}

	if cfg.Registry == nil || cfg.L2Out == nil {
		return pluginapi.NewInitError(pluginapi.ErrKindConfig, "ingestor requires Registry and L2Out wiring")
	}

	pub, err := cfg.Registry.Register(symbol, maxDepth)
	if err != nil {
		return pluginapi.NewInitError(pluginapi.ErrKindInvariant, "%v", err)
	}

	p.symbol = symbol
	p.wsURL = wsURL
	p.pub = pub
	p.cfg = cfg
	p.stopped = make(chan struct{})
	p.ws = netclient.NewWSClient(wsURL, p.log, cfg.TLS, p.subscribe, p.onMessage)

	return nil
}

func (p *Ingestor) subscribe(conn *websocket.Conn) error {
	return conn.WriteJSON(map[string]any{"type": "subscribe", "symbol": p.symbol})
}

// Execute implements pluginapi.PluginHandle. It runs the WS client until
// Stop is observed. Blocking is bounded by netclient.WSClient's own fixed
// read/write deadlines and reconnect loop; no plugin-declared timeout is
// passed to the WS client.
func (p *Ingestor) Execute(ctx context.Context) {
	p.running.Store(true)
	defer close(p.stopped)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-p.stopWatch(ctx)
		cancel()
	}()

	p.ws.Run(runCtx)
}

// stopWatch returns a channel that closes once Execute should wind down:
// either the Kernel's context is cancelled, or Stop has been called.
func (p *Ingestor) stopWatch(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
				if !p.running.Load() {
					return
				}
			}
		}
	}()
	return out
}

// Stop implements pluginapi.PluginHandle. Safe to call from any goroutine,
// idempotent.
func (p *Ingestor) Stop() {
	p.running.Store(false)
	if p.ws != nil {
		_ = p.ws.Close()
	}
}

func (p *Ingestor) onMessage(raw []byte) {
	var evt wireBookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		p.log.Error("ingestor: malformed book event", "error", err)
		return
	}
	if evt.Symbol != "" && evt.Symbol != p.symbol {
		return
	}

	for _, lvl := range evt.Bids {
		if err := p.applyLevel(model.Buy, lvl); err != nil {
			return
		}
	}
	for _, lvl := range evt.Asks {
		if err := p.applyLevel(model.Sell, lvl); err != nil {
			return
		}
	}

	snap := p.pub.Publish()
	p.cfg.L2Out.Push(snap)
}

func (p *Ingestor) applyLevel(side model.Side, lvl wireLevel) error {
	price, err := parseFloat(lvl.Price)
	if err != nil {
		p.log.Error("ingestor: bad price", "error", err)
		return err
	}
	qty, err := parseFloat(lvl.Size)
	if err != nil {
		p.log.Error("ingestor: bad size", "error", err)
		return err
	}

	if err := p.pub.Apply(side, price, qty); err != nil {
		kernel.FatalInvariant(p.log, fmt.Sprintf("ingestor.%s", p.symbol), err)
		return err
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%f", &f)
	return f, err
}
