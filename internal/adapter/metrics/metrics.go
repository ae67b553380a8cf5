package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ShipperMetrics holds all Prometheus metrics for the delivery pipeline.
type ShipperMetrics struct {
	EventsEnqueuedTotal   prometheus.Counter
	EventsDroppedTotal    *prometheus.CounterVec
	EventsDeliveredTotal  prometheus.Counter
	EventsLostTotal       prometheus.Counter
	DeliveryAttemptsTotal *prometheus.CounterVec
	BufferLength          prometheus.Gauge
	FlushDurationSeconds  prometheus.Histogram
}

// NewShipperMetrics initializes and registers the shipper metrics.
func NewShipperMetrics() *ShipperMetrics {
	return &ShipperMetrics{
		EventsEnqueuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "log_shipper",
			Subsystem: "buffer",
			Name:      "events_enqueued_total",
			Help:      "Total number of events accepted into the pending buffer.",
		}),
		EventsDroppedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "log_shipper",
			Subsystem: "buffer",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped before delivery.",
		}, []string{"reason"}), // reason: overflow, closed
		EventsDeliveredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "log_shipper",
			Subsystem: "delivery",
			Name:      "events_delivered_total",
			Help:      "Total number of events acknowledged by the collector.",
		}),
		EventsLostTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "log_shipper",
			Subsystem: "delivery",
			Name:      "events_lost_total",
			Help:      "Total number of events lost after exhausting delivery attempts.",
		}),
		DeliveryAttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "log_shipper",
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Total number of HTTP delivery attempts by result.",
		}, []string{"result"}), // result: success, retryable_error, fatal_error
		BufferLength: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "log_shipper",
			Subsystem: "buffer",
			Name:      "length",
			Help:      "Current number of events awaiting delivery.",
		}),
		FlushDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "log_shipper",
			Subsystem: "delivery",
			Name:      "flush_duration_seconds",
			Help:      "Duration of one drain-and-send cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// CollectorMetrics holds all Prometheus metrics for the dev collector.
type CollectorMetrics struct {
	EventsReceivedTotal *prometheus.CounterVec
	BytesReceivedTotal  prometheus.Counter
}

// NewCollectorMetrics initializes and registers the collector metrics.
func NewCollectorMetrics() *CollectorMetrics {
	return &CollectorMetrics{
		EventsReceivedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "log_collector",
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Total number of received events by status.",
		}, []string{"status"}), // status: accepted, error_parse, error_store, error_size
		BytesReceivedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "log_collector",
			Subsystem: "ingest",
			Name:      "bytes_total",
			Help:      "Total number of event payload bytes received.",
		}),
	}
}
