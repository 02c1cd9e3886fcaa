package execution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"numeri/internal/model"
	"numeri/internal/pluginapi"
	"numeri/internal/queue"
)

const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testConfig(baseURL string) pluginapi.PluginConfig {
	return pluginapi.PluginConfig{
		Name:     "test-execution",
		OrderOut: queue.New[model.OrderRequest]("orders", 16, queue.DropNewest),
		FillIn:   queue.New[model.Fill]("fills", 16, queue.DropNewest),
		Params: map[string]any{
			"base_url":    baseURL,
			"private_key": testPrivateKey,
			"chain_id":    float64(137),
		},
	}
}

func TestInit_RequiresBaseURLAndPrivateKey(t *testing.T) {
	e := New()
	if err := e.Init(pluginapi.PluginConfig{
		Name:     "x",
		OrderOut: queue.New[model.OrderRequest]("o", 2, queue.DropNewest),
		FillIn:   queue.New[model.Fill]("f", 2, queue.DropNewest),
	}); err == nil {
		t.Fatal("Init() with no base_url/private_key = nil error, want error")
	}
}

func TestSubmit_SuccessProducesFilledFill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"exchange_order_id": "ex-1",
			"status":            "filled",
			"filled_quantity":   "1.5",
			"filled_price":      "100.25",
		})
	}))
	defer srv.Close()

	e := New()
	cfg := testConfig(srv.URL)
	if err := e.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	e.submit(context.Background(), model.OrderRequest{
		Symbol: "BTC-USD", Side: model.Buy, Price: 100, Quantity: 1.5, ClientOrderID: "abc",
	})

	fill, res := cfg.FillIn.Pop()
	if res != queue.Some {
		t.Fatal("expected a Fill to be pushed")
	}
	if fill.Status != model.Filled {
		t.Fatalf("fill.Status = %v, want Filled", fill.Status)
	}
	if fill.ExchangeOrderID != "ex-1" {
		t.Fatalf("fill.ExchangeOrderID = %q, want ex-1", fill.ExchangeOrderID)
	}
	if fill.FilledQuantity != 1.5 || fill.FilledPrice != 100.25 {
		t.Fatalf("fill quantities = %v/%v, want 1.5/100.25", fill.FilledQuantity, fill.FilledPrice)
	}
}

func TestSubmit_HTTPErrorProducesRejectFill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := New()
	cfg := testConfig(srv.URL)
	cfg.IOTimeoutMS = 100
	if err := e.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	e.submit(context.Background(), model.OrderRequest{
		Symbol: "BTC-USD", Side: model.Sell, Price: 100, Quantity: 1, ClientOrderID: "xyz",
	})

	fill, res := cfg.FillIn.Pop()
	if res != queue.Some {
		t.Fatal("expected a Fill to be pushed even on HTTP error")
	}
	if fill.Status != model.Reject {
		t.Fatalf("fill.Status = %v, want Reject", fill.Status)
	}
	if fill.ClientOrderID != "xyz" {
		t.Fatalf("fill.ClientOrderID = %q, want xyz", fill.ClientOrderID)
	}
}

func TestStatusFromWire(t *testing.T) {
	cases := map[string]model.Status{
		"filled":    model.Filled,
		"rejected":  model.Reject,
		"cancelled": model.Cancel,
		"canceled":  model.Cancel,
		"unknown":   model.Ack,
		"":          model.Ack,
	}
	for wire, want := range cases {
		if got := statusFromWire(wire); got != want {
			t.Fatalf("statusFromWire(%q) = %v, want %v", wire, got, want)
		}
	}
}
