// Package model defines the data vocabulary shared by every component of the
// Kernel: order-book primitives, the four queue payload types, and the
// PluginConfig handed to a plugin at Init. Nothing here depends on any other
// internal package, so it can be imported from the Kernel, any plugin, or
// the plugin ABI boundary without creating cycles.
package model

import "time"

// Side is the direction of a resting or taken order.
type Side int

const (
	Buy Side = iota
	Sell
)

// String renders Side for logging.
func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Status is the lifecycle state of an order as reported by an execution
// engine.
type Status int

const (
	Ack Status = iota
	Filled
	Reject
	Cancel
)

func (s Status) String() string {
	switch s {
	case Ack:
		return "ack"
	case Filled:
		return "filled"
	case Reject:
		return "reject"
	case Cancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// MetricKind identifies what a Metric value represents.
type MetricKind int

const (
	MidPrice MetricKind = iota
	Imbalance
	VWAP
	Depth10
)

func (k MetricKind) String() string {
	switch k {
	case MidPrice:
		return "mid_price"
	case Imbalance:
		return "imbalance"
	case VWAP:
		return "vwap"
	case Depth10:
		return "depth10"
	default:
		return "unknown"
	}
}

// PriceLevel is a single price/quantity pair in an order book. A level with
// Quantity <= 0 is a deletion instruction when applied to an OrderBook.
type PriceLevel struct {
	Price    float64
	Quantity float64
}

// OrderRequest is produced by an Algorithm and consumed by an Execution
// Engine. It is an owning handle: ownership transfers to the order queue on
// a successful push and to the dequeuing execution engine on a successful
// pop.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Price         float64
	Quantity      float64
	ClientOrderID string
	TimestampNS   int64
}

// Fill is produced by an Execution Engine and consumed by an Algorithm. Like
// OrderRequest, it is an owning handle.
type Fill struct {
	ClientOrderID   string
	ExchangeOrderID string
	Status          Status
	FilledQuantity  float64
	FilledPrice     float64
	TimestampNS     int64
}

// Metric is an application-level observation (not to be confused with the
// Kernel's own Prometheus instrumentation in internal/metrics) produced by
// an Algorithm for anyone monitoring the metrics queue.
type Metric struct {
	Symbol      string
	Kind        MetricKind
	Value       float64
	TimestampNS int64
}

// NowNS returns the current time as nanoseconds since the Unix epoch, the
// representation every TimestampNS field in this package uses.
func NowNS() int64 {
	return time.Now().UnixNano()
}
