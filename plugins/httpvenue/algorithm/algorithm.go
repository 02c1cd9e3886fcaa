// Package algorithm is the reference Algorithm plugin: a trimmed-down
// Avellaneda-Stoikov quoting loop, grounded on the teacher's
// internal/strategy.Maker. It pops Snapshots, computes a reservation
// price and a spread, pushes OrderRequests, and pops Fills to update its
// inventory skew — the spec §4.4 wiring an Algorithm gets (L2Out pop,
// MetricsOut push, OrderOut push, FillIn pop).
package algorithm

import (
	"context"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"time"

	"numeri/internal/model"
	"numeri/internal/pluginapi"
	"numeri/internal/queue"
)

const defaultRefreshInterval = time.Second

// Algorithm is the reference httpvenue Algorithm plugin.
type Algorithm struct {
	name string

	gamma, sigma, k, horizonYears float64
	orderSize                     float64
	refresh                       time.Duration

	inventory atomic.Int64 // fixed-point: units of 1e-6

	cfg pluginapi.PluginConfig

	running atomic.Bool
	stopped chan struct{}

	log *slog.Logger
}

// New constructs an uninitialized Algorithm. The stable name comes from
// config and is only known once Init runs.
func New() *Algorithm {
	return &Algorithm{name: "unnamed", log: slog.New(slog.NewTextHandler(os.Stderr, nil))}
}

// Name implements pluginapi.PluginHandle.
func (a *Algorithm) Name() string { return a.name }

// Init implements pluginapi.PluginHandle.
func (a *Algorithm) Init(cfg pluginapi.PluginConfig) error {
	a.name = cfg.Name
	a.log = a.log.With("plugin", cfg.Name)

	if cfg.L2Out == nil || cfg.OrderOut == nil || cfg.FillIn == nil {
		return pluginapi.NewInitError(pluginapi.ErrKindConfig, "algorithm requires L2Out, OrderOut, and FillIn wiring")
	}

	a.gamma = floatParam(cfg.Params, "gamma", 0.1)
	a.sigma = floatParam(cfg.Params, "sigma", 0.02)
	a.k = floatParam(cfg.Params, "k", 1.5)
	a.horizonYears = floatParam(cfg.Params, "horizon_years", 1.0)
	a.orderSize = floatParam(cfg.Params, "order_size", 1.0)
	a.refresh = defaultRefreshInterval
	if ms := floatParam(cfg.Params, "refresh_interval_ms", 0); ms > 0 {
		a.refresh = time.Duration(ms) * time.Millisecond
	}

	if a.gamma <= 0 {
		return pluginapi.NewInitError(pluginapi.ErrKindConfig, "params.gamma must be > 0")
	}

	a.cfg = cfg
	a.stopped = make(chan struct{})
	return nil
}

func floatParam(params map[string]any, key string, def float64) float64 {
	if v, ok := params[key].(float64); ok {
		return v
	}
	return def
}

// Execute implements pluginapi.PluginHandle. Per spec §4.5, it checks the
// running flag each iteration and yields cooperatively when there is no
// work.
func (a *Algorithm) Execute(ctx context.Context) {
	a.running.Store(true)
	defer close(a.stopped)

	ticker := time.NewTicker(a.refresh)
	defer ticker.Stop()

	var lastMid float64
	var lastSymbol string

	for a.running.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		drained := false
		for {
			fill, res := a.cfg.FillIn.Pop()
			if res != queue.Some {
				break
			}
			a.applyFill(fill)
			drained = true
		}

		if snap, res := a.cfg.L2Out.Pop(); res == queue.Some {
			if snap.Valid() {
				lastMid = midPrice(snap.Book.BestBid(), snap.Book.BestAsk())
				lastSymbol = snap.Symbol
			}
			drained = true
		}

		select {
		case <-ticker.C:
			if lastMid > 0 {
				a.quote(lastSymbol, lastMid)
			}
		default:
		}

		if !drained {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Millisecond):
			}
		}
	}
}

func midPrice(bid, ask float64) float64 {
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// quote computes the Avellaneda-Stoikov reservation price and spread
// (teacher's internal/strategy.Maker, trimmed to a single symbol and a
// fixed order size) and pushes both sides as OrderRequests.
func (a *Algorithm) quote(symbol string, mid float64) {
	q := float64(a.inventory.Load()) / 1e6

	reservation := mid - q*a.gamma*a.sigma*a.sigma*a.horizonYears
	spread := a.gamma*a.sigma*a.sigma*a.horizonYears + (2/a.gamma)*math.Log(1+a.gamma/a.k)

	bid := reservation - spread/2
	ask := reservation + spread/2

	now := model.NowNS()
	a.cfg.OrderOut.Push(model.OrderRequest{
		Symbol: symbol, Side: model.Buy, Price: bid, Quantity: a.orderSize,
		ClientOrderID: clientOrderID(now, model.Buy), TimestampNS: now,
	})
	a.cfg.OrderOut.Push(model.OrderRequest{
		Symbol: symbol, Side: model.Sell, Price: ask, Quantity: a.orderSize,
		ClientOrderID: clientOrderID(now, model.Sell), TimestampNS: now,
	})
}

func clientOrderID(nowNS int64, side model.Side) string {
	return side.String() + "-" + itoa64(nowNS)
}

func itoa64(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (a *Algorithm) applyFill(f model.Fill) {
	if f.Status != model.Filled {
		return
	}
	delta := int64(f.FilledQuantity * 1e6)
	a.inventory.Add(delta)
}

// Stop implements pluginapi.PluginHandle.
func (a *Algorithm) Stop() {
	a.running.Store(false)
}
