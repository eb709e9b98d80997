package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	captureRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loopscribe_capture_requests_total",
		Help: "Total number of capture requests",
	}, []string{"status"})

	captureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loopscribe_capture_duration_seconds",
		Help:    "Wall-clock duration of capture operations in seconds",
		Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
	})

	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loopscribe_stt_requests_total",
		Help: "Total number of transcription requests",
	}, []string{"status"})

	sttLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loopscribe_stt_latency_seconds",
		Help:    "Transcription latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0},
	})
)

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func observeCapture(elapsed time.Duration, err error) {
	captureRequests.WithLabelValues(statusLabel(err)).Inc()
	if err == nil {
		captureDuration.Observe(elapsed.Seconds())
	}
}

func observeTranscription(elapsed time.Duration, err error) {
	sttRequests.WithLabelValues(statusLabel(err)).Inc()
	if err == nil {
		sttLatency.Observe(elapsed.Seconds())
	}
}
