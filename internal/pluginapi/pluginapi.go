// Package pluginapi defines the plugin ABI boundary (spec §4.4/§4.5) and the
// loader that turns a config.PluginSpec into a running PluginHandle.
//
// The spec's ABI is a C-style shared-object contract: two exported factory
// symbols, `create_plugin`/`destroy_plugin`, producing a polymorphic handle.
// Go has no dlopen-equivalent outside the standard library — no third-party
// module in the ecosystem loads .so files, so this package uses the stdlib
// `plugin` package exactly the way C++ dlopen is used in
// original_source/numeri/include/plugin_interface.hpp: a plugin build is a
// `go build -buildmode=plugin` shared object exporting two functions,
// `CreatePlugin` and `DestroyPlugin` (Go's exported-symbol-lookup only
// resolves identifiers, not arbitrary C names, so the spec's lower_snake
// names become this capitalized pair — see SPEC_FULL.md's ABI note).
package pluginapi

import (
	"context"
	"crypto/tls"
	"fmt"

	"numeri/internal/book"
	"numeri/internal/model"
	"numeri/internal/queue"
	"numeri/internal/runtime"
)

// Role identifies which of the three plugin roles a spec entry loads into,
// and therefore which queue handles PluginConfig wires for it (spec §4.4's
// "role-typed wiring").
type Role int

const (
	RoleIngestor Role = iota
	RoleAlgorithm
	RoleExecutionEngine
)

func (r Role) String() string {
	switch r {
	case RoleIngestor:
		return "ingestor"
	case RoleAlgorithm:
		return "algorithm"
	case RoleExecutionEngine:
		return "execution_engine"
	default:
		return "unknown"
	}
}

// ErrKind classifies an Init failure (SPEC_FULL.md's error taxonomy,
// supplementing spec §7 with the distinction original_source/numeri's
// plugin_interface.hpp draws between a bad config and a failed I/O probe).
type ErrKind int

const (
	ErrKindConfig ErrKind = iota
	ErrKindIO
	ErrKindInvariant
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConfig:
		return "config"
	case ErrKindIO:
		return "io"
	case ErrKindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// InitError is the structured failure a PluginHandle's Init may return. The
// Loader logs Kind and Message and treats any non-nil error the same way:
// skip this plugin, keep the Kernel running (spec §4.4).
type InitError struct {
	Kind    ErrKind
	Message string
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewInitError constructs an InitError.
func NewInitError(kind ErrKind, format string, args ...any) *InitError {
	return &InitError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// PluginConfig is what the Kernel hands to Init. Only the fields relevant
// to the plugin's Role are populated; the rest are left nil so a plugin
// that reaches for the wrong handle panics immediately on a nil pointer
// rather than silently doing the wrong thing. See spec §4.4's wiring table:
//
//	ingestor:         L2Out (push), MetricsOut (push), Runtime, TLS
//	algorithm:        L2Out (pop),  MetricsOut (push), OrderOut (push), FillIn (pop)
//	execution engine: OrderOut (pop), FillIn (push), Runtime, TLS
type PluginConfig struct {
	Role Role
	Name string

	L2Out      *queue.Queue[book.Snapshot]
	MetricsOut *queue.Queue[model.Metric]
	OrderOut   *queue.Queue[model.OrderRequest]
	FillIn     *queue.Queue[model.Fill]

	Registry *book.Registry
	Runtime  *runtime.Runtime

	// TLS is the shared TLS context handle spec §3/§4.6 hands to every
	// plugin that talks to the network (spec.md:58, "a TLS context
	// handle"): TLS 1.2+, system trust store, shared across every
	// netclient.HTTPClient/WSClient the plugin builds so certificate
	// verification policy is Kernel-owned, not per-plugin.
	TLS *tls.Config

	// IOTimeoutMS is the plugin-declared timeout spec §4.5 requires
	// ("never block on external I/O longer than a plugin-declared
	// timeout"). 0 means the plugin did not declare one and must fall
	// back to its own default.
	IOTimeoutMS int

	Params map[string]any
}

// PluginHandle is the capability set every plugin exposes (spec §4.4).
// Init is called exactly once, before the Kernel spawns the worker thread
// that calls Execute. Stop must be safe to call from a goroutine other
// than the one running Execute, and idempotent.
type PluginHandle interface {
	Name() string
	Init(cfg PluginConfig) error
	Execute(ctx context.Context)
	Stop()
}

// Factory is the shape of a loaded plugin's exported CreatePlugin symbol.
type Factory func() PluginHandle

// Destructor is the shape of a loaded plugin's exported DestroyPlugin
// symbol. Go's garbage collector reclaims a PluginHandle's memory on its
// own, but the Loader still calls Destructor at unload time so a plugin
// that holds non-Go resources (file descriptors, C memory via cgo) gets a
// deterministic release point, matching the ABI contract's symmetry.
type Destructor func(PluginHandle)
