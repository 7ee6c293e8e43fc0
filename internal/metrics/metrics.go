// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Entity mutation metrics, labelled by entity name
	IncEntityCreated(entity string)
	IncEntityUpdated(entity string)
	IncEntityDeleted(entity string)

	// Read-through cache metrics
	IncCacheHit(entity string)
	IncCacheMiss(entity string)

	// Alert pipeline metrics
	IncAlertPublished(status string) // status: "success" or "dropped"
	IncAuditProcessed(status string) // status: "success", "failed", "skipped"
	ObserveAuditBatchSize(size int)
	ObserveAuditBatchDuration(duration time.Duration)
	SetAuditQueueDepth(depth int64)
	ObserveAuditIngestLag(lag time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
