// Package metrics provides Prometheus metrics for the strand router and
// daemon: tick throughput, mailbox depth, derivation counts, and per-table
// membership size.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Router ─────────────────────────────────────────────────────────────────

// TicksTotal counts completed router ticks (one mailbox receive plus the
// pending-queue fixpoint it drives).
var TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "strand",
	Name:      "router_ticks_total",
	Help:      "Total router ticks processed.",
})

// TickDuration tracks wall time spent draining the pending queue to a
// fixpoint within one tick.
var TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "strand",
	Name:      "router_tick_duration_seconds",
	Help:      "Duration of one router tick's fixpoint drain.",
	Buckets:   prometheus.DefBuckets,
})

// MailboxDepth tracks the number of work items currently queued in the
// cross-goroutine mailbox channel.
var MailboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "strand",
	Name:      "router_mailbox_depth",
	Help:      "Current number of work items queued in the mailbox.",
})

// PendingDepth tracks the per-tick deferred queue length at its peak within
// the most recently completed tick.
var PendingDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "strand",
	Name:      "router_pending_depth",
	Help:      "Peak deferred-queue length during the most recent tick.",
})

// ─── Derivation ─────────────────────────────────────────────────────────────

// WorkItemsProcessed counts work items dequeued from pending, by polarity.
var WorkItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "strand",
	Name:      "work_items_processed_total",
	Help:      "Total work items processed, by polarity.",
}, []string{"polarity"})

// ChainFires counts operator-chain activations, by chain name.
var ChainFires = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "strand",
	Name:      "chain_fires_total",
	Help:      "Total operator chain activations, by rule name.",
}, []string{"chain"})

// ─── Tables ─────────────────────────────────────────────────────────────────

// TableSize tracks current distinct-member count, by table name.
var TableSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "strand",
	Name:      "table_size",
	Help:      "Current number of distinct members, by table.",
}, []string{"table"})

// ─── Network ────────────────────────────────────────────────────────────────

// EnvelopesSent counts outbound tuple envelopes dispatched to remote peers.
var EnvelopesSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "strand",
	Name:      "envelopes_sent_total",
	Help:      "Total envelopes sent to remote peers, by outcome.",
}, []string{"outcome"})

// EnvelopesReceived counts inbound envelopes decoded by a listener.
var EnvelopesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "strand",
	Name:      "envelopes_received_total",
	Help:      "Total envelopes received from remote peers, by outcome.",
}, []string{"outcome"})
