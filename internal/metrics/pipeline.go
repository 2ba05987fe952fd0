package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ManifestResolveTotal counts provider calls by provider and result (ok, empty, timeout, error).
	ManifestResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytgrab_manifest_resolve_total",
		Help: "Total number of manifest provider calls by provider and result",
	}, []string{"provider", "result"})

	// ManifestResolveDuration tracks provider latency.
	ManifestResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ytgrab_manifest_resolve_duration_seconds",
		Help:    "Latency of manifest provider calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
	}, []string{"provider"})

	// SelectionTotal counts selection outcomes by target and kind (muxed, pair, audio, none).
	SelectionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytgrab_selection_total",
		Help: "Stream selection outcomes by target and kind",
	}, []string{"target", "kind"})

	// DeliveryTotal counts finished deliveries by target, terminal outcome and reason.
	DeliveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytgrab_delivery_total",
		Help: "Finished deliveries by target, outcome (closed, aborted) and reason",
	}, []string{"target", "outcome", "reason"})

	// DeliveryBytesTotal counts bytes written to clients.
	DeliveryBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytgrab_delivery_bytes_total",
		Help: "Bytes written to download clients",
	}, []string{"target"})

	// DeliveryFirstByteLatency tracks time from request start to the first body byte.
	DeliveryFirstByteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ytgrab_delivery_first_byte_seconds",
		Help:    "Time from request to first media byte written",
		Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 20, 30},
	}, []string{"target", "mode"})

	// ActiveDeliveries tracks in-flight deliveries.
	ActiveDeliveries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytgrab_active_deliveries",
		Help: "Number of deliveries currently streaming",
	}, []string{"target"})
)

// ObserveManifestResolve records one provider call.
func ObserveManifestResolve(provider, result string, d time.Duration) {
	ManifestResolveTotal.WithLabelValues(provider, result).Inc()
	ManifestResolveDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// IncSelection records a selection outcome.
func IncSelection(target, kind string) {
	SelectionTotal.WithLabelValues(target, kind).Inc()
}

// IncDelivery records a terminal delivery outcome.
func IncDelivery(target, outcome, reason string) {
	DeliveryTotal.WithLabelValues(target, outcome, reason).Inc()
}

// AddDeliveryBytes adds n written bytes.
func AddDeliveryBytes(target string, n int64) {
	if n > 0 {
		DeliveryBytesTotal.WithLabelValues(target).Add(float64(n))
	}
}

// ObserveFirstByte records the first-byte latency. mode is "direct" or "transcode".
func ObserveFirstByte(target, mode string, d time.Duration) {
	DeliveryFirstByteLatency.WithLabelValues(target, mode).Observe(d.Seconds())
}

// IncActiveDeliveries increments the in-flight gauge.
func IncActiveDeliveries(target string) {
	ActiveDeliveries.WithLabelValues(target).Inc()
}

// DecActiveDeliveries decrements the in-flight gauge.
func DecActiveDeliveries(target string) {
	ActiveDeliveries.WithLabelValues(target).Dec()
}
