package repository

import (
	"context"
	"fmt"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/jackc/pgx/v5"
)

var auditColumns = map[string]string{
	"id":         "id",
	"occurredAt": "occurred_at",
	"entityName": "entity_name",
	"action":     "action",
}

// AuditRepository provides database access for the entity audit trail.
type AuditRepository struct {
	repo *Repository
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(repo *Repository) *AuditRepository {
	return &AuditRepository{repo: repo}
}

// BulkInsert inserts audit events with idempotency via ON CONFLICT DO NOTHING.
func (r *AuditRepository) BulkInsert(ctx context.Context, events []*model.AuditEvent) error {
	events = uniqueAuditEvents(events)
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO entity_audit (event_id, action, entity_name, entity_id, occurred_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, event := range events {
		batch.Queue(query,
			event.EventID,
			event.Action,
			event.EntityName,
			event.EntityID,
			event.OccurredAt,
		)
	}

	results := r.repo.db(ctx).SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert audit event %d: %w", i, err)
		}
	}

	return nil
}

// List returns one page of audit events, optionally for one entity type.
func (r *AuditRepository) List(ctx context.Context, req model.PageRequest, entityName string) (*model.Page[*model.AuditEvent], error) {
	order, err := orderBy(req.Sort, auditColumns)
	if err != nil {
		return nil, err
	}

	where := &whereClause{}
	if entityName != "" {
		where.args = append(where.args, entityName)
		where.conds = append(where.conds, fmt.Sprintf("entity_name = $%d", len(where.args)))
	}

	db := r.repo.db(ctx)

	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM entity_audit`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count audit events: %w", err)
	}

	query := `SELECT id, event_id, action, entity_name, entity_id, occurred_at, recorded_at FROM entity_audit`
	query += where.String() + order + where.limitOffset(req)

	rows, err := db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]*model.AuditEvent, 0, req.Size)
	for rows.Next() {
		var e model.AuditEvent
		if err := rows.Scan(&e.ID, &e.EventID, &e.Action, &e.EntityName, &e.EntityID, &e.OccurredAt, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return &model.Page[*model.AuditEvent]{Content: events, Total: total, Page: req.Page, Size: req.Size}, nil
}

// uniqueAuditEvents drops events whose EventID repeats within the batch,
// keeping the first occurrence.
func uniqueAuditEvents(events []*model.AuditEvent) []*model.AuditEvent {
	seen := make(map[string]struct{}, len(events))
	out := events[:0:0]
	for _, e := range events {
		if e == nil {
			continue
		}
		if _, ok := seen[e.EventID]; ok {
			continue
		}
		seen[e.EventID] = struct{}{}
		out = append(out, e)
	}
	return out
}
