package handler

import (
	"fmt"
	"net/http"

	"github.com/cheroliv/blogger/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	for _, name := range snap.EntityNames() {
		c := snap.Entities[name]
		writeMetric(w, "blogger_entity_mutations_total{entity=%q,action=\"created\"} %d\n", name, c.Created)
		writeMetric(w, "blogger_entity_mutations_total{entity=%q,action=\"updated\"} %d\n", name, c.Updated)
		writeMetric(w, "blogger_entity_mutations_total{entity=%q,action=\"deleted\"} %d\n", name, c.Deleted)
		writeMetric(w, "blogger_entity_cache_hits_total{entity=%q} %d\n", name, c.CacheHits)
		writeMetric(w, "blogger_entity_cache_misses_total{entity=%q} %d\n", name, c.CacheMisses)
	}

	writeMetric(w, "blogger_alerts_published_total{status=\"success\"} %d\n", snap.AlertsPublished)
	writeMetric(w, "blogger_alerts_published_total{status=\"dropped\"} %d\n", snap.AlertsDropped)

	writeMetric(w, "blogger_audit_events_processed_total{status=\"success\"} %d\n", snap.AuditProcessed)
	writeMetric(w, "blogger_audit_events_processed_total{status=\"failed\"} %d\n", snap.AuditFailed)
	writeMetric(w, "blogger_audit_events_processed_total{status=\"skipped\"} %d\n", snap.AuditSkipped)

	writeMetric(w, "blogger_audit_batches_total %d\n", snap.AuditBatchCount)
	writeMetric(w, "blogger_audit_batch_events_total %d\n", snap.AuditBatchEvents)
	writeMetric(w, "blogger_audit_queue_depth %d\n", snap.AuditQueueDepth)
	writeMetric(w, "blogger_audit_batch_duration_seconds_count %d\n", snap.AuditBatchCount)
	writeMetric(w, "blogger_audit_batch_duration_seconds_sum %.6f\n", float64(snap.AuditBatchDurationNs)/1e9)
	writeMetric(w, "blogger_audit_ingest_lag_seconds_count %d\n", snap.AuditIngestLagCount)
	writeMetric(w, "blogger_audit_ingest_lag_seconds_sum %.6f\n", float64(snap.AuditIngestLagTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
