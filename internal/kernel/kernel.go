// Package kernel implements the orchestrator spec §4.6 describes: it reads
// config, builds the async runtime and the four queues, loads plugins role
// by role, spawns one worker goroutine per plugin, spawns the config
// watcher, and on Stop unwinds all of it in the order the spec requires.
//
// Grounded on the teacher's internal/engine.Engine — New/Start/Stop with a
// context+WaitGroup for goroutine lifecycle — and
// original_source/numeri/src/kernel.cpp for the role-ordered stop sequence.
package kernel

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	goruntime "runtime"
	"strings"
	"sync"

	"numeri/internal/book"
	"numeri/internal/config"
	"numeri/internal/metrics"
	"numeri/internal/model"
	"numeri/internal/netclient"
	"numeri/internal/pluginapi"
	"numeri/internal/queue"
	"numeri/internal/runtime"
)

// Kernel is the top-level process orchestrator.
type Kernel struct {
	log *slog.Logger

	cfgPath string
	cfg     *config.Config
	watcher *config.Watcher

	rt        *runtime.Runtime
	loader    *pluginapi.Loader
	registry  *book.Registry
	tlsConfig *tls.Config

	l2Out      *queue.Queue[book.Snapshot]
	metricsOut *queue.Queue[model.Metric]
	orderOut   *queue.Queue[model.OrderRequest]
	fillIn     *queue.Queue[model.Fill]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads and validates the config at path and wires (but does not
// start) a Kernel.
func New(path string, log *slog.Logger) (*Kernel, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("kernel: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kernel: invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Kernel{
		log:      log,
		cfgPath:  path,
		cfg:      cfg,
		loader:   pluginapi.NewLoader(log),
		registry: book.NewRegistry(),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start runs spec §4.6's start sequence: build the runtime, create the
// four queues, load plugins per role, spawn one worker goroutine per
// loaded plugin, and spawn the config watcher.
func (k *Kernel) Start() error {
	k.rt = runtime.New(0)
	k.tlsConfig = netclient.DefaultTLSConfig()

	k.l2Out = queue.New[book.Snapshot]("l2_out", k.cfg.Metadata.L2BroadcastBuffer, queue.DropOldest)
	k.metricsOut = queue.New[model.Metric]("metrics_out", k.cfg.Metadata.MetricsBuffer, queue.DropNewest)
	k.orderOut = queue.New[model.OrderRequest]("order_out", k.cfg.Metadata.OrderBuffer, queue.DropNewest)
	k.fillIn = queue.New[model.Fill]("fill_in", k.cfg.Metadata.FillBuffer, queue.DropNewest)

	var failedRequired []string
	failedRequired = append(failedRequired, k.loadRole(pluginapi.RoleIngestor, k.cfg.DataSources)...)
	failedRequired = append(failedRequired, k.loadRole(pluginapi.RoleAlgorithm, k.cfg.Algorithms)...)
	failedRequired = append(failedRequired, k.loadRole(pluginapi.RoleExecutionEngine, k.cfg.ExecutionEngines)...)
	if len(failedRequired) > 0 {
		return fmt.Errorf("kernel: required plugin(s) failed to load: %s", strings.Join(failedRequired, ", "))
	}

	for _, role := range []pluginapi.Role{pluginapi.RoleIngestor, pluginapi.RoleAlgorithm, pluginapi.RoleExecutionEngine} {
		for _, h := range k.loader.Handles(role) {
			k.spawnWorker(h)
		}
	}

	watcher, err := config.NewWatcher(k.cfgPath, k.cfg, k.log)
	if err != nil {
		return fmt.Errorf("kernel: start config watcher: %w", err)
	}
	k.watcher = watcher
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		k.watcher.Run(k.ctx)
	}()

	k.log.Info("kernel started",
		"ingestors", len(k.loader.Handles(pluginapi.RoleIngestor)),
		"algorithms", len(k.loader.Handles(pluginapi.RoleAlgorithm)),
		"execution_engines", len(k.loader.Handles(pluginapi.RoleExecutionEngine)),
	)
	return nil
}

// loadRole loads every spec for role and returns "role/name" for each
// Required spec whose Load failed (spec §6: "≥ 1 required plugin failed to
// load" is the only thing that makes a plugin load failure fatal; every
// other failure is still logged and skipped per spec §4.4/§7).
func (k *Kernel) loadRole(role pluginapi.Role, specs []config.PluginSpec) []string {
	var failed []string
	for _, s := range specs {
		spec := pluginapi.Spec{Name: s.Name, File: s.File, Role: role, Params: s.Params}
		cfg := k.pluginConfigFor(role)
		if h := k.loader.Load(spec, cfg); h == nil && s.Required {
			failed = append(failed, role.String()+"/"+s.Name)
		}
	}
	return failed
}

// pluginConfigFor returns the queue/runtime wiring for a role, per spec
// §4.4's role-typed wiring table. Fields irrelevant to the role are left
// nil.
func (k *Kernel) pluginConfigFor(role pluginapi.Role) pluginapi.PluginConfig {
	switch role {
	case pluginapi.RoleIngestor:
		return pluginapi.PluginConfig{
			L2Out:      k.l2Out,
			MetricsOut: k.metricsOut,
			Registry:   k.registry,
			Runtime:    k.rt,
			TLS:        k.tlsConfig,
		}
	case pluginapi.RoleAlgorithm:
		return pluginapi.PluginConfig{
			L2Out:      k.l2Out,
			MetricsOut: k.metricsOut,
			OrderOut:   k.orderOut,
			FillIn:     k.fillIn,
			Registry:   k.registry,
		}
	case pluginapi.RoleExecutionEngine:
		return pluginapi.PluginConfig{
			OrderOut: k.orderOut,
			FillIn:   k.fillIn,
			Runtime:  k.rt,
			TLS:      k.tlsConfig,
		}
	default:
		return pluginapi.PluginConfig{}
	}
}

func (k *Kernel) spawnWorker(h pluginapi.PluginHandle) {
	k.wg.Add(1)
	go func() {
		// Each plugin's Execute runs on an OS thread of its own.
		goruntime.LockOSThread()
		defer k.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				k.log.Error("plugin execute panicked", "plugin", h.Name(), "panic", r)
			}
		}()
		h.Execute(k.ctx)
	}()
}

// Stop runs spec §4.6's stop sequence: set the running flag, stop plugins
// ingestors-then-algorithms-then-execution-engines, join worker
// goroutines, clear the book registry, release the runtime, drop queues.
func (k *Kernel) Stop() {
	k.log.Info("kernel stopping")
	k.cancel()

	for _, role := range []pluginapi.Role{pluginapi.RoleIngestor, pluginapi.RoleAlgorithm, pluginapi.RoleExecutionEngine} {
		for _, h := range k.loader.Handles(role) {
			h.Stop()
		}
	}

	k.wg.Wait()

	k.loader.Unload()

	for _, symbol := range k.registry.Symbols() {
		k.registry.Unregister(symbol)
	}

	if k.rt != nil {
		k.rt.Shutdown()
	}

	for _, q := range []interface{ Drain() }{k.l2Out, k.metricsOut, k.orderOut, k.fillIn} {
		q.Drain()
	}

	k.log.Info("kernel stopped")
}

// ExitInvariantViolation is the process exit code spec §6 reserves for a
// fatal invariant violation (os.Exit(0) normal, (1) config error, (2)
// fatal plugin load error, (3) runtime crash/invariant violation).
const ExitInvariantViolation = 3

// Handles exposes the loaded plugin handles for a role, for the admin
// introspection server.
func (k *Kernel) Handles(role pluginapi.Role) []pluginapi.PluginHandle {
	return k.loader.Handles(role)
}

// Registry exposes the book registry, for the admin introspection server.
func (k *Kernel) Registry() *book.Registry {
	return k.registry
}

// Config returns the most recently loaded config, reflecting any hot
// reload the watcher has applied (spec §4.7). Valid only after Start.
func (k *Kernel) Config() *config.Config {
	return k.watcher.Current()
}

// FatalInvariant logs component's invariant violation, records the kill
// switch metric, and terminates the process (spec §7: invariant
// violations are fatal, not recoverable). Plugins call this through their
// own logger rather than importing os directly, keeping the "how does the
// process die" policy in one place.
func FatalInvariant(log *slog.Logger, component string, err error) {
	metrics.RecordKillSwitch(component)
	log.Error("fatal invariant violation, terminating", "component", component, "error", err)
	osExit(ExitInvariantViolation)
}

// osExit is a var so tests can stub it instead of actually exiting the
// test binary.
var osExit = os.Exit
