// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bilancio"

// HTTPRequests counts API requests by route pattern, method and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by route, method and status.",
}, []string{"route", "method", "status"})

// HTTPDuration tracks request latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// SnapshotBuildDuration tracks how long a dashboard recompute takes.
var SnapshotBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "dashboard",
	Name:      "build_duration_seconds",
	Help:      "Time to load data and run every engine for one snapshot.",
	Buckets:   prometheus.DefBuckets,
})

// SnapshotCacheHits counts dashboard snapshots served from cache.
var SnapshotCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "dashboard",
	Name:      "cache_hits_total",
	Help:      "Dashboard snapshots served from cache.",
})

// OverrideWrites counts budget override writes by outcome.
var OverrideWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "budget",
	Name:      "override_writes_total",
	Help:      "Budget override writes by outcome (created, updated, removed, unchanged).",
}, []string{"outcome"})

// MirrorQueueDepth is the number of operations waiting to be mirrored.
var MirrorQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "mirror",
	Name:      "queue_depth",
	Help:      "Operations waiting to be written to the mirror sink.",
})

// MirrorFlushFailures counts operations that failed during a flush.
var MirrorFlushFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "mirror",
	Name:      "flush_failures_total",
	Help:      "Mirror operations that failed during a flush.",
})

// MirrorDropped counts operations dropped after exhausting their retries.
var MirrorDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "mirror",
	Name:      "dropped_total",
	Help:      "Mirror operations dropped after max retries.",
})

// AMQPMessages counts consumed change messages by result (ack, requeue, reject).
var AMQPMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "amqp",
	Name:      "messages_total",
	Help:      "Consumed change messages by result.",
}, []string{"result"})

// RateLimited counts requests rejected by the write rate limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the rate limiter.",
})

// SuspiciousRequests counts requests matching a scanner or probing pattern.
var SuspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "suspicious_requests_total",
	Help:      "Requests flagged by the probe detector.",
})
