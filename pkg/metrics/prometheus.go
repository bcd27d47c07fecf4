package metrics

import (
	"fmt"
	"io"
)

// PrometheusExporter exports collector counters in Prometheus text format.
type PrometheusExporter struct {
	collector *Collector
	namespace string // Metric namespace prefix (e.g., "keyra_db")
}

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		namespace: "keyra_db",
	}
}

// SetNamespace sets the metric namespace prefix.
func (pe *PrometheusExporter) SetNamespace(namespace string) {
	pe.namespace = namespace
}

// WriteMetrics writes all metrics in Prometheus text format to the writer.
// Format: https://prometheus.io/docs/instrumenting/exposition_formats/
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	stats := pe.collector.Snapshot()

	if err := pe.writeGauge(w, "uptime_seconds", "Server uptime in seconds", stats.UptimeSeconds); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "puts_total", "Total number of PUT operations", stats.Puts); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "gets_total", "Total number of GET operations", stats.Gets); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "get_misses_total", "Total number of GET operations that found no key", stats.GetMisses); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "deletes_total", "Total number of DEL operations", stats.Deletes); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "transactions_started_total", "Total number of transactions started", stats.TxnsStarted); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "transactions_committed_total", "Total number of transactions committed", stats.TxnsCommitted); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "transactions_rolled_back_total", "Total number of transactions rolled back", stats.TxnsRolledBack); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "command_errors_total", "Total number of requests answered with an error envelope", stats.CommandErrors); err != nil {
		return err
	}

	if err := pe.writeGauge(w, "active_connections", "Number of currently open client connections", float64(stats.ActiveConnections)); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "connections_total", "Total number of client connections accepted", stats.TotalConnections); err != nil {
		return err
	}

	return nil
}

// writeCounter writes a counter metric
func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n",
		metricName, help, metricName, metricName, value)
	return err
}

// writeGauge writes a gauge metric
func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n",
		metricName, help, metricName, metricName, value)
	return err
}
