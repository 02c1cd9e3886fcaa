package config

import (
	"context"
	"log/slog"
	"os"
	"time"

	"code.hybscloud.com/atomix"
)

// pollInterval is the spec §4.7 polling period. Fixed, not configurable —
// the spec names 3s as part of the hot-reload contract itself.
const pollInterval = 3 * time.Second

// Watcher polls a config file's mtime and atomically republishes a freshly
// parsed Config whenever the file changes. Per spec §4.7, a reload affects
// only future plugin starts and explicit config re-reads; it never touches
// an already-running plugin.
type Watcher struct {
	path    string
	log     *slog.Logger
	current atomix.Pointer[Config]
	modTime time.Time
}

// NewWatcher creates a Watcher already holding initial, the config Load
// produced at Kernel start.
func NewWatcher(path string, initial *Config, log *slog.Logger) (*Watcher, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, log: log, modTime: info.ModTime()}
	w.current.StoreRelease(initial)
	return w, nil
}

// Current returns the most recently published Config.
func (w *Watcher) Current() *Config {
	return w.current.LoadAcquire()
}

// Run polls every 3s until ctx is cancelled. Intended to be run on its own
// goroutine, spawned at Kernel start sequence step 5.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.log.Error("config watch: stat failed", "path", w.path, "error", err)
		return
	}
	if !info.ModTime().After(w.modTime) {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		w.log.Error("config watch: reparse failed, retaining previous config", "path", w.path, "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.log.Error("config watch: reparsed config failed validation, retaining previous config", "path", w.path, "error", err)
		return
	}

	w.modTime = info.ModTime()
	w.current.StoreRelease(cfg)
	w.log.Info("config updated", "path", w.path)
}
