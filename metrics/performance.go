package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PerformanceMetrics struct {
	ExtractTime    *prometheus.HistogramVec
	DecodeTime     *prometheus.HistogramVec
	FetchTime      *prometheus.HistogramVec
	FrameSizeBytes *prometheus.HistogramVec
	VideoFrames    prometheus.Histogram
}

func InitializePerformanceMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		ExtractTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "extract_time_seconds",
			Help:        "Signal extraction time in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"operation"}),

		DecodeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "decode_time_seconds",
			Help:        "Image and video decoding time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"type"}),

		FetchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "fetch_time_seconds",
			Help:        "Remote fetch time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"hostname"}),

		FrameSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "frame_size_bytes",
			Help:        "Raw frame size in bytes",
			ConstLabels: constLabels,
			Buckets:     []float64{1 << 10, 1 << 14, 1 << 17, 1 << 20, 1 << 22, 1 << 24}, // 1KB to 16MB
		}, []string{"layout"}),

		VideoFrames: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "video_frames",
			Help:        "Frames extracted per video",
			ConstLabels: constLabels,
			Buckets:     []float64{10, 30, 100, 300, 900, 1800},
		}),
	}

	registry.MustRegister(
		metrics.ExtractTime,
		metrics.DecodeTime,
		metrics.FetchTime,
		metrics.FrameSizeBytes,
		metrics.VideoFrames,
	)

	return metrics
}

// TimeFunction measures the execution time of fn under the given operation.
func TimeFunction[T any](fn func() (T, error), operation string, metrics *PerformanceMetrics) (T, error) {
	start := time.Now()
	result, err := fn()
	duration := time.Since(start).Seconds()

	if metrics != nil {
		metrics.ExtractTime.WithLabelValues(operation).Observe(duration)
	}

	return result, err
}

// TimeFetch measures a remote fetch; call the returned func when done.
func TimeFetch(hostname string, metrics *PerformanceMetrics) func() {
	start := time.Now()
	return func() {
		if metrics != nil {
			metrics.FetchTime.WithLabelValues(CleanHostname(hostname)).Observe(time.Since(start).Seconds())
		}
	}
}

// TimeDecode measures a decode of the given media type.
func TimeDecode(kind string, metrics *PerformanceMetrics) func() {
	start := time.Now()
	return func() {
		if metrics != nil {
			metrics.DecodeTime.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		}
	}
}
