package pluginapi

import (
	"fmt"
	"log/slog"
	"plugin"
	"sync"

	"numeri/internal/metrics"
)

const (
	createSymbol  = "CreatePlugin"
	destroySymbol = "DestroyPlugin"
)

// Spec is one entry from config's data_sources/algorithms/execution_engines
// array (spec §4.6): {name, file, params}. Role is supplied by which array
// the entry came from, not by the entry itself.
type Spec struct {
	Name   string
	File   string
	Role   Role
	Params map[string]any
}

// loaded pairs a live handle with the destructor the Kernel calls at
// unload time.
type loaded struct {
	handle  PluginHandle
	destroy Destructor
}

// Loader opens plugin shared objects, resolves the ABI symbols, and keeps
// role-typed registries of the handles it successfully initialized (spec
// §4.4: "register the instance under role -> {name -> instance}").
type Loader struct {
	log *slog.Logger

	mu     sync.Mutex
	byRole map[Role]map[string]*loaded
}

// NewLoader creates a Loader that logs to log.
func NewLoader(log *slog.Logger) *Loader {
	return &Loader{
		log:    log,
		byRole: make(map[Role]map[string]*loaded),
	}
}

// Load opens spec.File, resolves CreatePlugin/DestroyPlugin, calls the
// factory, and calls Init with cfg (IOTimeoutMS taken from
// params.io_timeout_ms when that is a positive number). A failure at any step is logged and
// the plugin is skipped — it is never fatal for the Kernel (spec §4.4).
// Load returns the handle only on full success; callers should treat a nil
// return as "this plugin did not start" and move on to the next spec.
func (l *Loader) Load(spec Spec, cfg PluginConfig) PluginHandle {
	p, err := plugin.Open(spec.File)
	if err != nil {
		l.fail(spec, "open", err)
		return nil
	}

	createSym, err := p.Lookup(createSymbol)
	if err != nil {
		l.fail(spec, "lookup", err)
		return nil
	}
	create, ok := createSym.(func() PluginHandle)
	if !ok {
		l.fail(spec, "lookup", fmt.Errorf("%s has the wrong signature for Factory", createSymbol))
		return nil
	}

	destroySym, err := p.Lookup(destroySymbol)
	if err != nil {
		l.fail(spec, "lookup", err)
		return nil
	}
	destroy, ok := destroySym.(func(PluginHandle))
	if !ok {
		l.fail(spec, "lookup", fmt.Errorf("%s has the wrong signature for Destructor", destroySymbol))
		return nil
	}

	handle := create()
	if handle == nil {
		l.fail(spec, "create", fmt.Errorf("%s returned a nil handle", createSymbol))
		return nil
	}

	cfg.Role = spec.Role
	cfg.Name = spec.Name
	cfg.Params = spec.Params
	if ms, ok := spec.Params["io_timeout_ms"].(float64); ok && ms > 0 {
		cfg.IOTimeoutMS = int(ms)
	}

	if err := handle.Init(cfg); err != nil {
		l.fail(spec, "init", err)
		return nil
	}

	l.mu.Lock()
	if l.byRole[spec.Role] == nil {
		l.byRole[spec.Role] = make(map[string]*loaded)
	}
	l.byRole[spec.Role][spec.Name] = &loaded{handle: handle, destroy: destroy}
	l.mu.Unlock()

	metrics.RecordPluginInitSuccess(spec.Role.String(), spec.Name)
	l.log.Info("plugin initialized", "role", spec.Role.String(), "name", spec.Name, "file", spec.File)
	return handle
}

// Handles returns every successfully loaded handle for a role, in no
// particular order. The Kernel uses this to spawn worker goroutines and to
// drive the stop sequence role by role.
func (l *Loader) Handles(role Role) []PluginHandle {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]PluginHandle, 0, len(l.byRole[role]))
	for _, e := range l.byRole[role] {
		out = append(out, e.handle)
	}
	return out
}

// Unload calls each loaded plugin's DestroyPlugin symbol and forgets it.
// The Kernel calls this during stop sequencing, after every plugin's Stop
// has returned and its worker goroutine has been joined.
func (l *Loader) Unload() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for role, byName := range l.byRole {
		for name, e := range byName {
			func() {
				defer func() {
					if r := recover(); r != nil {
						l.log.Error("plugin destroy panicked", "role", role.String(), "name", name, "panic", r)
					}
				}()
				e.destroy(e.handle)
			}()
		}
	}
	l.byRole = make(map[Role]map[string]*loaded)
}

func (l *Loader) fail(spec Spec, stage string, err error) {
	metrics.RecordPluginLoadFailure(spec.Role.String(), spec.Name, stage)
	l.log.Error("plugin load failed, skipping", "role", spec.Role.String(), "name", spec.Name, "file", spec.File, "stage", stage, "error", err)
}
