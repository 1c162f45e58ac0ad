// Package telemetry exposes the agent's own operational metrics. These are
// separate from the aggregated APM histograms, which are pushed by the
// reporter.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const namespace = "palantir_agent"

// Drop reasons used with PacketDropped.
const (
	ReasonOversized = "oversized"
	ReasonMalformed = "malformed"
	ReasonEmpty     = "empty"
)

// Metrics holds the agent's collectors. A nil *Metrics is valid and records
// nothing, which keeps callers free of nil checks.
type Metrics struct {
	registry *prometheus.Registry

	recordsReceived *prometheus.CounterVec
	packetsDropped  *prometheus.CounterVec
	reports         *prometheus.CounterVec
	pushDuration    prometheus.Histogram
	tableSize       prometheus.Gauge
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_received_total",
			Help:      "Records decoded by a listener and queued for aggregation",
		}, []string{"listener"}),
		packetsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Inbound packets dropped by a listener",
		}, []string{"listener", "reason"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Export cycles by push result",
		}, []string{"result"}),
		pushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_push_duration_seconds",
			Help:      "Time spent pushing the payload to the import endpoint",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		tableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aggregation_table_size",
			Help:      "Number of distinct fingerprints in the aggregation table",
		}),
	}

	m.registry.MustRegister(
		m.recordsReceived,
		m.packetsDropped,
		m.reports,
		m.pushDuration,
		m.tableSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding all agent collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordReceived counts one record queued by listener.
func (m *Metrics) RecordReceived(listener string) {
	if m == nil {
		return
	}
	m.recordsReceived.WithLabelValues(listener).Inc()
}

// PacketDropped counts one packet dropped by listener for reason.
func (m *Metrics) PacketDropped(listener, reason string) {
	if m == nil {
		return
	}
	m.packetsDropped.WithLabelValues(listener, reason).Inc()
}

// ReportFinished records the outcome of one export cycle.
func (m *Metrics) ReportFinished(result string, push time.Duration) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(result).Inc()
	m.pushDuration.Observe(push.Seconds())
}

// SetTableSize updates the aggregation table size gauge.
func (m *Metrics) SetTableSize(n int) {
	if m == nil {
		return
	}
	m.tableSize.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("address", addr).Info("Serving agent telemetry")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
