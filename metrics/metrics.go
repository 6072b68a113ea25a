package metrics

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	FramesProcessed *prometheus.CounterVec
	ServedCached    *prometheus.CounterVec
	FingerState     *prometheus.CounterVec
	FramesRejected  *prometheus.CounterVec
}

func InitializeMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	metrics := &Metrics{
		FramesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "frames_processed",
			Help:        "Number of frames turned into a signal sample",
			ConstLabels: constLabels,
		}, []string{"source", "layout"}),
		ServedCached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "served_cached",
			Help:        "Number of responses served from cache",
			ConstLabels: constLabels,
		}, []string{"type", "hostname", "url_hash"}), // URL hash keeps cardinality bounded
		FingerState: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "finger_state",
			Help:        "Frames classified by fingertip presence",
			ConstLabels: constLabels,
		}, []string{"state"}),
		FramesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "frames_rejected",
			Help:        "Frames refused before extraction",
			ConstLabels: constLabels,
		}, []string{"reason"}),
	}

	registry.MustRegister(
		metrics.FramesProcessed,
		metrics.ServedCached,
		metrics.FingerState,
		metrics.FramesRejected,
	)

	return metrics
}

// ObserveFinger counts a frame under "present" or "absent".
func (m *Metrics) ObserveFinger(present bool) {
	state := "absent"
	if present {
		state = "present"
	}
	m.FingerState.WithLabelValues(state).Inc()
}

// HashURL creates a short hash of the URL to reduce metric cardinality
func HashURL(url string) string {
	if len(url) > 100 {
		url = url[:100]
	}

	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:8])
}

// CleanHostname removes port numbers and normalizes hostname for metrics
func CleanHostname(hostname string) string {
	if hostname == "" {
		return "unknown"
	}

	if idx := strings.Index(hostname, ":"); idx != -1 {
		hostname = hostname[:idx]
	}

	if len(hostname) > 50 {
		hostname = hostname[:50]
	}

	return hostname
}
