// Package execution is the reference Execution Engine plugin: it drains
// the order queue, submits each OrderRequest to a venue's REST API using
// fixed-point decimal math for amounts, and pushes a Fill back for the
// Algorithm to observe (spec §4.4's execution-engine wiring: OrderOut
// pop, FillIn push, plus the shared runtime).
//
// Grounded on the teacher's internal/exchange.Client order-submission
// path, with big.Float amount conversion swapped for
// github.com/shopspring/decimal, which the pack's other repos use for
// exact fixed-point money math instead of floating point.
package execution

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"numeri/internal/model"
	"numeri/internal/netclient"
	"numeri/internal/pluginapi"
	"numeri/internal/queue"
	"numeri/plugins/httpvenue/auth"
)

// Engine is the reference httpvenue Execution Engine plugin.
type Engine struct {
	name string

	http *netclient.HTTPClient
	auth *auth.Auth

	cfg pluginapi.PluginConfig

	running atomic.Bool
	stopped chan struct{}

	log *slog.Logger
}

// New constructs an uninitialized Engine. The stable name comes from
// config and is only known once Init runs.
func New() *Engine {
	return &Engine{name: "unnamed", log: slog.New(slog.NewTextHandler(os.Stderr, nil))}
}

// Name implements pluginapi.PluginHandle.
func (e *Engine) Name() string { return e.name }

// Init implements pluginapi.PluginHandle.
func (e *Engine) Init(cfg pluginapi.PluginConfig) error {
	e.name = cfg.Name
	e.log = e.log.With("plugin", cfg.Name)

	if cfg.OrderOut == nil || cfg.FillIn == nil {
		return pluginapi.NewInitError(pluginapi.ErrKindConfig, "execution engine requires OrderOut and FillIn wiring")
	}

	baseURL, _ := cfg.Params["base_url"].(string)
	if baseURL == "" {
		return pluginapi.NewInitError(pluginapi.ErrKindConfig, "params.base_url is required")
	}
	privateKey, _ := cfg.Params["private_key"].(string)
	if privateKey == "" {
		return pluginapi.NewInitError(pluginapi.ErrKindConfig, "params.private_key is required")
	}
	chainID := int64(0)
	if v, ok := cfg.Params["chain_id"].(float64); ok {
		chainID = int64(v)
	}

	timeout := time.Duration(cfg.IOTimeoutMS) * time.Millisecond

	a, err := auth.New(privateKey, chainID)
	if err != nil {
		return pluginapi.NewInitError(pluginapi.ErrKindConfig, "%v", err)
	}

	e.http = netclient.NewHTTPClient(baseURL, timeout, cfg.TLS)
	e.auth = a
	e.cfg = cfg
	e.stopped = make(chan struct{})
	return nil
}

// Execute implements pluginapi.PluginHandle.
func (e *Engine) Execute(ctx context.Context) {
	e.running.Store(true)
	defer close(e.stopped)

	for e.running.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		order, res := e.cfg.OrderOut.Pop()
		if res != queue.Some {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Millisecond):
			}
			continue
		}

		e.submit(ctx, order)
	}
}

// orderPayload is the wire shape submitted to the venue's REST API.
// Amounts are sent as decimal strings, never floats, so the venue's own
// parser controls rounding.
type orderPayload struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	ClientID string `json:"client_order_id"`
}

type orderResponse struct {
	ExchangeOrderID string `json:"exchange_order_id"`
	Status          string `json:"status"`
	FilledQuantity  string `json:"filled_quantity"`
	FilledPrice     string `json:"filled_price"`
}

func (e *Engine) submit(ctx context.Context, order model.OrderRequest) {
	price := decimal.NewFromFloat(order.Price)
	qty := decimal.NewFromFloat(order.Quantity)

	payload := orderPayload{
		Symbol:   order.Symbol,
		Side:     order.Side.String(),
		Price:    price.String(),
		Quantity: qty.String(),
		ClientID: order.ClientOrderID,
	}

	var resp orderResponse
	if err := e.http.Post(ctx, "/orders", payload, &resp); err != nil {
		e.log.Error("execution: order submission failed", "client_order_id", order.ClientOrderID, "error", err)
		e.cfg.FillIn.Push(model.Fill{
			ClientOrderID: order.ClientOrderID,
			Status:        model.Reject,
			TimestampNS:   model.NowNS(),
		})
		return
	}

	filledQty, _ := decimal.NewFromString(resp.FilledQuantity)
	filledPrice, _ := decimal.NewFromString(resp.FilledPrice)

	e.cfg.FillIn.Push(model.Fill{
		ClientOrderID:   order.ClientOrderID,
		ExchangeOrderID: resp.ExchangeOrderID,
		Status:          statusFromWire(resp.Status),
		FilledQuantity:  filledQty.InexactFloat64(),
		FilledPrice:     filledPrice.InexactFloat64(),
		TimestampNS:     model.NowNS(),
	})
}

func statusFromWire(s string) model.Status {
	switch s {
	case "filled":
		return model.Filled
	case "rejected":
		return model.Reject
	case "cancelled", "canceled":
		return model.Cancel
	default:
		return model.Ack
	}
}

// Stop implements pluginapi.PluginHandle.
func (e *Engine) Stop() {
	e.running.Store(false)
}
