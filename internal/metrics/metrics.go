// Package metrics holds the Kernel's internal Prometheus instrumentation:
// queue-drop counters, plugin-load failures, and published book versions.
// This is pure operational observability and is unrelated to the model.Metric
// application type that flows over the metrics queue — see
// SPEC_FULL.md §2's ambient-stack note for why the two must not be
// conflated.
//
// Styled after osmosis-labs-sqs's orderbook/telemetry package: named
// counters/gauges registered once at package init, looked up by name where a
// call site needs a label variant.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Counter is the subset of prometheus.Counter this package's callers need.
type Counter interface {
	Inc()
}

var (
	queueFullTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "numeri_queue_full_total",
			Help: "number of Push calls that found a queue at capacity",
		},
		[]string{"queue"},
	)

	pluginLoadFailureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "numeri_plugin_load_failure_total",
			Help: "number of plugin load/init attempts that failed and were skipped",
		},
		[]string{"role", "name", "stage"},
	)

	pluginInitSuccessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "numeri_plugin_init_success_total",
			Help: "number of plugins that loaded and initialized successfully",
		},
		[]string{"role", "name"},
	)

	bookVersion = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "numeri_book_version",
			Help: "most recently published version of a symbol's order book",
		},
		[]string{"symbol"},
	)

	killSwitchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "numeri_kill_switch_total",
			Help: "number of times a fatal invariant violation terminated the process",
		},
		[]string{"component"},
	)
)

func init() {
	prometheus.MustRegister(queueFullTotal, pluginLoadFailureTotal, pluginInitSuccessTotal, bookVersion, killSwitchTotal)
}

// QueueFullCounter returns the "queue full" counter for the named queue.
func QueueFullCounter(queue string) Counter {
	return queueFullTotal.WithLabelValues(queue)
}

// RecordPluginLoadFailure increments the load-failure counter for a plugin
// that was skipped at the given stage ("open", "lookup", "create", "init").
func RecordPluginLoadFailure(role, name, stage string) {
	pluginLoadFailureTotal.WithLabelValues(role, name, stage).Inc()
}

// RecordPluginInitSuccess increments the init-success counter.
func RecordPluginInitSuccess(role, name string) {
	pluginInitSuccessTotal.WithLabelValues(role, name).Inc()
}

// SetBookVersion records the version most recently published for a symbol.
func SetBookVersion(symbol string, version uint64) {
	bookVersion.WithLabelValues(symbol).Set(float64(version))
}

// RecordKillSwitch increments the fatal-invariant-violation counter.
func RecordKillSwitch(component string) {
	killSwitchTotal.WithLabelValues(component).Inc()
}
