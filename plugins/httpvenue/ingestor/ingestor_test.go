package ingestor

import (
	"testing"

	"numeri/internal/book"
	"numeri/internal/pluginapi"
	"numeri/internal/queue"
)

func testConfig(t *testing.T, params map[string]any) pluginapi.PluginConfig {
	t.Helper()
	return pluginapi.PluginConfig{
		Name:     "test-ingestor",
		Registry: book.NewRegistry(),
		L2Out:    queue.New[book.Snapshot]("l2", 16, queue.DropOldest),
		Params:   params,
	}
}

func TestInit_RequiresSymbol(t *testing.T) {
	p := New()
	err := p.Init(testConfig(t, map[string]any{"ws_url": "wss://example.com"}))
	if err == nil {
		t.Fatal("Init() with no symbol = nil error, want error")
	}
}

func TestInit_RequiresWSURL(t *testing.T) {
	p := New()
	err := p.Init(testConfig(t, map[string]any{"symbol": "BTC-USD"}))
	if err == nil {
		t.Fatal("Init() with no ws_url = nil error, want error")
	}
}

func TestInit_SucceedsAndRegistersSymbol(t *testing.T) {
	p := New()
	cfg := testConfig(t, map[string]any{"symbol": "BTC-USD", "ws_url": "wss://example.com"})
	if err := p.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if p.Name() != "test-ingestor" {
		t.Fatalf("Name() = %q, want test-ingestor", p.Name())
	}
	if _, ok := cfg.Registry.Current("BTC-USD"); !ok {
		t.Fatal("expected symbol BTC-USD to be registered after Init")
	}
}

func TestOnMessage_AppliesLevelsAndPushesSnapshot(t *testing.T) {
	p := New()
	cfg := testConfig(t, map[string]any{"symbol": "BTC-USD", "ws_url": "wss://example.com"})
	if err := p.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	p.onMessage([]byte(`{"symbol":"BTC-USD","bids":[{"price":"100.0","size":"1.0"}],"asks":[{"price":"101.0","size":"1.0"}]}`))

	snap, res := cfg.L2Out.Pop()
	if res != queue.Some {
		t.Fatal("expected a snapshot on L2Out after onMessage")
	}
	if snap.Book.BestBid() != 100.0 || snap.Book.BestAsk() != 101.0 {
		t.Fatalf("snapshot book = bid %v ask %v, want 100/101", snap.Book.BestBid(), snap.Book.BestAsk())
	}
}

func TestOnMessage_IgnoresOtherSymbols(t *testing.T) {
	p := New()
	cfg := testConfig(t, map[string]any{"symbol": "BTC-USD", "ws_url": "wss://example.com"})
	if err := p.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	p.onMessage([]byte(`{"symbol":"ETH-USD","bids":[{"price":"100.0","size":"1.0"}],"asks":[]}`))

	if _, res := cfg.L2Out.Pop(); res != queue.Empty {
		t.Fatal("expected no snapshot pushed for a non-matching symbol")
	}
}

func TestStop_IsSafeBeforeExecute(t *testing.T) {
	p := New()
	cfg := testConfig(t, map[string]any{"symbol": "BTC-USD", "ws_url": "wss://example.com"})
	if err := p.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	p.Stop()
}

func TestParseFloat_RejectsNonNumeric(t *testing.T) {
	if _, err := parseFloat("not-a-number"); err == nil {
		t.Fatal("parseFloat(\"not-a-number\") = nil error, want error")
	}
	f, err := parseFloat("12.5")
	if err != nil {
		t.Fatalf("parseFloat(\"12.5\") error = %v", err)
	}
	if f != 12.5 {
		t.Fatalf("parseFloat(\"12.5\") = %v, want 12.5", f)
	}
}
