package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "audio_analyzer"

// Metrics 流水线的 Prometheus 指标，nil 时所有记录操作为空操作
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	scoringDuration *prometheus.HistogramVec
	windowsTotal    prometheus.Counter
	inflight        prometheus.Gauge
}

// NewMetrics 创建指标并注册到 reg，reg 为 nil 时只创建不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of analysis requests",
			},
			[]string{"task", "outcome"}, // outcome: ok, decode, empty_input, inference, io, internal
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Histogram of total request duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"task"},
		),
		scoringDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scoring_duration_seconds",
				Help:      "Histogram of model scoring stage duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"task"},
		),
		windowsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "windows_scored_total",
				Help:      "Total number of analysis windows scored",
			},
		),
		inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_inflight",
				Help:      "Number of requests currently being processed",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requestsTotal, m.requestDuration, m.scoringDuration, m.windowsTotal, m.inflight)
	}
	return m
}

func (m *Metrics) begin() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) observeRequest(task Task, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.requestsTotal.WithLabelValues(task.String(), outcome).Inc()
	m.requestDuration.WithLabelValues(task.String()).Observe(d.Seconds())
}

func (m *Metrics) observeScoring(task Task, d time.Duration, windows int) {
	if m == nil {
		return
	}
	m.scoringDuration.WithLabelValues(task.String()).Observe(d.Seconds())
	m.windowsTotal.Add(float64(windows))
}
