package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// EntityCounts holds per-entity counters.
type EntityCounts struct {
	Created     uint64
	Updated     uint64
	Deleted     uint64
	CacheHits   uint64
	CacheMisses uint64
}

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Entities map[string]EntityCounts

	AlertsPublished uint64
	AlertsDropped   uint64

	AuditProcessed        uint64
	AuditFailed           uint64
	AuditSkipped          uint64
	AuditBatchCount       uint64
	AuditBatchEvents      uint64
	AuditBatchDurationNs  int64
	AuditQueueDepth       int64
	AuditIngestLagCount   uint64
	AuditIngestLagTotalNs int64
}

// EntityNames returns the entity labels in a stable order.
func (s Snapshot) EntityNames() []string {
	names := make([]string, 0, len(s.Entities))
	for name := range s.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type entityCounters struct {
	created     atomic.Uint64
	updated     atomic.Uint64
	deleted     atomic.Uint64
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	mu       sync.RWMutex
	entities map[string]*entityCounters

	alertsPublished atomic.Uint64
	alertsDropped   atomic.Uint64

	auditProcessed        atomic.Uint64
	auditFailed           atomic.Uint64
	auditSkipped          atomic.Uint64
	auditBatchCount       atomic.Uint64
	auditBatchEvents      atomic.Uint64
	auditBatchDurationNs  atomic.Int64
	auditQueueDepth       atomic.Int64
	auditIngestLagCount   atomic.Uint64
	auditIngestLagTotalNs atomic.Int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{entities: make(map[string]*entityCounters)}
}

func (m *InMemoryRecorder) entity(name string) *entityCounters {
	m.mu.RLock()
	c, ok := m.entities[name]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.entities[name]; !ok {
		c = &entityCounters{}
		m.entities[name] = c
	}
	return c
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.RLock()
	entities := make(map[string]EntityCounts, len(m.entities))
	for name, c := range m.entities {
		entities[name] = EntityCounts{
			Created:     c.created.Load(),
			Updated:     c.updated.Load(),
			Deleted:     c.deleted.Load(),
			CacheHits:   c.cacheHits.Load(),
			CacheMisses: c.cacheMisses.Load(),
		}
	}
	m.mu.RUnlock()

	return Snapshot{
		Entities:              entities,
		AlertsPublished:       m.alertsPublished.Load(),
		AlertsDropped:         m.alertsDropped.Load(),
		AuditProcessed:        m.auditProcessed.Load(),
		AuditFailed:           m.auditFailed.Load(),
		AuditSkipped:          m.auditSkipped.Load(),
		AuditBatchCount:       m.auditBatchCount.Load(),
		AuditBatchEvents:      m.auditBatchEvents.Load(),
		AuditBatchDurationNs:  m.auditBatchDurationNs.Load(),
		AuditQueueDepth:       m.auditQueueDepth.Load(),
		AuditIngestLagCount:   m.auditIngestLagCount.Load(),
		AuditIngestLagTotalNs: m.auditIngestLagTotalNs.Load(),
	}
}

// IncEntityCreated increments the created counter for entity.
func (m *InMemoryRecorder) IncEntityCreated(entity string) {
	m.entity(entity).created.Add(1)
}

// IncEntityUpdated increments the updated counter for entity.
func (m *InMemoryRecorder) IncEntityUpdated(entity string) {
	m.entity(entity).updated.Add(1)
}

// IncEntityDeleted increments the deleted counter for entity.
func (m *InMemoryRecorder) IncEntityDeleted(entity string) {
	m.entity(entity).deleted.Add(1)
}

// IncCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncCacheHit(entity string) {
	m.entity(entity).cacheHits.Add(1)
}

// IncCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncCacheMiss(entity string) {
	m.entity(entity).cacheMisses.Add(1)
}

// IncAlertPublished counts alerts handed to the stream.
func (m *InMemoryRecorder) IncAlertPublished(status string) {
	if status == "dropped" {
		m.alertsDropped.Add(1)
		return
	}
	m.alertsPublished.Add(1)
}

// IncAuditProcessed counts audit events by outcome.
func (m *InMemoryRecorder) IncAuditProcessed(status string) {
	switch status {
	case "failed":
		m.auditFailed.Add(1)
	case "skipped":
		m.auditSkipped.Add(1)
	default:
		m.auditProcessed.Add(1)
	}
}

// ObserveAuditBatchSize records one flushed batch.
func (m *InMemoryRecorder) ObserveAuditBatchSize(size int) {
	m.auditBatchCount.Add(1)
	m.auditBatchEvents.Add(uint64(size))
}

// ObserveAuditBatchDuration records flush duration.
func (m *InMemoryRecorder) ObserveAuditBatchDuration(duration time.Duration) {
	m.auditBatchDurationNs.Add(duration.Nanoseconds())
}

// SetAuditQueueDepth records the pending message count.
func (m *InMemoryRecorder) SetAuditQueueDepth(depth int64) {
	m.auditQueueDepth.Store(depth)
}

// ObserveAuditIngestLag records the delay between alert and persistence.
func (m *InMemoryRecorder) ObserveAuditIngestLag(lag time.Duration) {
	m.auditIngestLagCount.Add(1)
	m.auditIngestLagTotalNs.Add(lag.Nanoseconds())
}
