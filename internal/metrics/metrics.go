// Package metrics holds Prometheus instruments that are used across the
// bootstrap packages.  All collectors are registered with the global
// registry, so importing this package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SettingsLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settings_load_total",
			Help: "Cumulative number of successful settings loads.",
		})

	SettingsLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settings_load_errors_total",
			Help: "Cumulative number of settings loads aborted by a load or validation error.",
		})

	VaultLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_vault_lookups_total",
			Help: "Vault secret lookups by result (hit, miss, error).",
		}, []string{"result"})

	ActiveSinks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "log_active_sinks",
			Help: "Number of log sinks in the active router configuration.",
		})

	LogRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "log_records_total",
			Help: "Records written, by sink.",
		}, []string{"sink"})

	LogWriteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "log_write_errors_total",
			Help: "Records a sink failed to write, by sink.",
		}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(
		SettingsLoadTotal,
		SettingsLoadErrorsTotal,
		VaultLookupsTotal,
		ActiveSinks,
		LogRecordsTotal,
		LogWriteErrorsTotal,
	)
}
