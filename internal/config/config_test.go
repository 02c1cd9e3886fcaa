package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `{
  "metadata": {
    "l2_broadcast_buffer": 1024,
    "metrics_buffer": 1024,
    "order_buffer": 256,
    "fill_buffer": 256
  },
  "data_sources": [
    {"name": "btc-usd", "file": "ingestor.so", "params": {"symbol": "BTC-USD"}}
  ],
  "algorithms": [
    {"name": "maker", "file": "algorithm.so", "params": {}}
  ],
  "execution_engines": [
    {"name": "exec", "file": "execution.so", "params": {}}
  ]
}`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_ParsesMetadataAndPluginSpecs(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Metadata.L2BroadcastBuffer != 1024 {
		t.Fatalf("L2BroadcastBuffer = %d, want 1024", cfg.Metadata.L2BroadcastBuffer)
	}
	if len(cfg.DataSources) != 1 || cfg.DataSources[0].Name != "btc-usd" {
		t.Fatalf("DataSources = %+v", cfg.DataSources)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_RejectsZeroCapacity(t *testing.T) {
	cfg := &Config{Metadata: Metadata{MetricsBuffer: 2, OrderBuffer: 2, FillBuffer: 2}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate: want error for zero l2_broadcast_buffer, got nil")
	}
}

func TestValidate_RejectsCapacityOfOne(t *testing.T) {
	// lfq.NewMPMC panics below capacity 2; Validate must reject capacity 1
	// rather than let Kernel.Start panic on config it already accepted.
	cfg := &Config{Metadata: Metadata{L2BroadcastBuffer: 1, MetricsBuffer: 2, OrderBuffer: 2, FillBuffer: 2}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate: want error for l2_broadcast_buffer = 1, got nil")
	}
}

func TestValidate_RejectsPluginSpecMissingFile(t *testing.T) {
	cfg := &Config{
		Metadata:    Metadata{L2BroadcastBuffer: 2, MetricsBuffer: 2, OrderBuffer: 2, FillBuffer: 2},
		DataSources: []PluginSpec{{Name: "btc-usd"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate: want error for missing file, got nil")
	}
}

func TestWatcher_ReloadsOnNewerMtime(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w, err := NewWatcher(path, initial, log)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	// rewrite with a different buffer size and force mtime forward, since
	// some filesystems have coarse mtime resolution.
	var updated map[string]any
	_ = json.Unmarshal([]byte(sampleConfig), &updated)
	updated["metadata"].(map[string]any)["metrics_buffer"] = float64(2048)
	b, _ := json.Marshal(updated)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	w.poll()

	if got := w.Current().Metadata.MetricsBuffer; got != 2048 {
		t.Fatalf("MetricsBuffer after reload = %d, want 2048", got)
	}
}

func TestWatcher_RetainsPreviousConfigOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w, err := NewWatcher(path, initial, log)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("corrupt config: %v", err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	w.poll()

	if got := w.Current().Metadata.L2BroadcastBuffer; got != 1024 {
		t.Fatalf("config should be retained on parse failure; L2BroadcastBuffer = %d", got)
	}
}
