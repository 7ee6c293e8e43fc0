package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncEntityCreated(entity string) {}

func (n *NoopRecorder) IncEntityUpdated(entity string) {}

func (n *NoopRecorder) IncEntityDeleted(entity string) {}

func (n *NoopRecorder) IncCacheHit(entity string) {}

func (n *NoopRecorder) IncCacheMiss(entity string) {}

func (n *NoopRecorder) IncAlertPublished(status string) {}

func (n *NoopRecorder) IncAuditProcessed(status string) {}

func (n *NoopRecorder) ObserveAuditBatchSize(size int) {}

func (n *NoopRecorder) ObserveAuditBatchDuration(duration time.Duration) {}

func (n *NoopRecorder) SetAuditQueueDepth(depth int64) {}

func (n *NoopRecorder) ObserveAuditIngestLag(lag time.Duration) {}
