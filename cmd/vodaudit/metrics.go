package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"vodaudit/internal/audit"
	"vodaudit/internal/textutil"
)

const metricsNamespace = "vodaudit"

// metricsFile collects gauges for the node exporter textfile collector.
type metricsFile struct {
	path     string
	registry *prometheus.Registry
}

func newMetricsFile(path string) *metricsFile {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return &metricsFile{path: path, registry: prometheus.NewRegistry()}
}

func (m *metricsFile) gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: metricsNamespace, Name: name, Help: help})
	m.registry.MustRegister(g)
	return g
}

func (m *metricsFile) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: metricsNamespace, Name: name, Help: help}, labels)
	m.registry.MustRegister(g)
	return g
}

// write stamps the run time and writes the registry atomically.
func (m *metricsFile) write(check string) error {
	if m == nil {
		return nil
	}
	m.gaugeVec("last_run_timestamp_seconds", "Unix time the check last completed.", "check").
		WithLabelValues(check).Set(float64(time.Now().Unix()))
	if err := prometheus.WriteToTextfile(m.path, m.registry); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}

func (m *metricsFile) recordDuplicateEpisodes(report audit.EpisodeIntegrityReport) {
	if m == nil {
		return
	}
	m.gauge("duplicate_episode_sets", "Episode slots occupied by more than one Episode row.").Set(float64(report.Total))
}

func (m *metricsFile) recordDuplicateStreams(accounts []audit.AccountDuplicates) {
	if m == nil {
		return
	}
	g := m.gaugeVec("multi_stream_episodes", "Episodes with more than one stream on an account.", "account")
	for _, entry := range accounts {
		g.WithLabelValues(textutil.SanitizeToken(entry.Account.Name)).Set(float64(entry.Episodes))
	}
}

func (m *metricsFile) recordGrouping(results []audit.GroupingResult) {
	if m == nil {
		return
	}
	mismatch := m.gaugeVec("grouping_mismatch", "1 when in-process grouping finds duplicates the query misses.", "account")
	relations := m.gaugeVec("relations", "Stream relations owned by an account.", "account")
	for _, result := range results {
		label := textutil.SanitizeToken(result.Account.Name)
		relations.WithLabelValues(label).Set(float64(result.TotalRelations))
		value := 0.0
		if result.Mismatch() {
			value = 1
		}
		mismatch.WithLabelValues(label).Set(value)
	}
}

func (m *metricsFile) recordProviderScan(account string, report audit.ProviderScanReport) {
	if m == nil {
		return
	}
	label := textutil.SanitizeToken(account)
	m.gaugeVec("feed_duplicate_slots", "Episode slots the provider feed lists with several stream ids.", "account").
		WithLabelValues(label).Set(float64(len(report.Duplicates)))
	m.gaugeVec("feed_series_scanned", "Series walked by the last provider scan.", "account").
		WithLabelValues(label).Set(float64(report.ScannedSeries))
}
