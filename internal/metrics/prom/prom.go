// Package prom implements a Prometheus backend for the metrics package. The
// registry is exposed for scraping through Handler and, when a Pushgateway
// URL is configured, pushed on Flush.
package prom

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JonMunkholm/loadsheet/internal/metrics"
)

// Backend is a Prometheus metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec
	stageDuration *prometheus.SummaryVec
	recordCounter *prometheus.CounterVec
}

// NewBackend builds a backend with its own registry. gatewayURL is optional;
// without it Flush is a no-op and metrics are only available by scraping.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if jobName == "" {
		jobName = "loadsheet"
	}
	reg := prometheus.NewRegistry()

	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StageTotal,
			Help: "Pipeline step executions by step and status.",
		},
		[]string{"step", "status"},
	)
	stageDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StageDuration,
			Help:       "Pipeline step duration in seconds by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	recordCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Record counts by kind (uploaded, normalized, dropped, exported).",
		},
		[]string{"kind"},
	)

	for name, c := range map[string]prometheus.Collector{
		"stage counter":  stageCounter,
		"stage summary":  stageDuration,
		"record counter": recordCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prom: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stageCounter:  stageCounter,
		stageDuration: stageDuration,
		recordCounter: recordCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StageTotal:
		b.stageCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.RecordsTotal:
		b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StageDuration {
		return
	}
	b.stageDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry to the Pushgateway, if one is configured.
func (b *Backend) Flush() error {
	if b.gatewayURL == "" {
		return nil
	}
	return push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push()
}

// Handler serves the registry in the Prometheus exposition format.
func (b *Backend) Handler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{Registry: b.reg})
}

// Registry returns the backend's registry.
func (b *Backend) Registry() *prometheus.Registry { return b.reg }
