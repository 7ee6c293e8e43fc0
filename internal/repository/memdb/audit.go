package memdb

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/hashicorp/go-memdb"
)

var auditFields = map[string]field[*model.AuditEvent]{
	"id":         func(e *model.AuditEvent) any { return e.ID },
	"occurredAt": func(e *model.AuditEvent) any { return e.OccurredAt },
	"entityName": func(e *model.AuditEvent) any { return e.EntityName },
	"action":     func(e *model.AuditEvent) any { return e.Action },
}

// AuditStore stores the entity audit trail.
type AuditStore struct {
	s *Store
}

// Audits returns the audit store.
func (s *Store) Audits() *AuditStore {
	return &AuditStore{s: s}
}

// BulkInsert stores events, skipping event ids already recorded.
func (r *AuditStore) BulkInsert(ctx context.Context, events []*model.AuditEvent) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		now := time.Now().UTC()
		for _, e := range events {
			if e == nil {
				continue
			}
			_, exists, err := first[*model.AuditEvent](txn, AuditTable, ByEventID, e.EventID)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			row := *e
			row.ID = r.s.auditSeq.Add(1)
			row.RecordedAt = now
			if err := txn.Insert(AuditTable, &row); err != nil {
				return fmt.Errorf("insert audit event %s: %w", e.EventID, err)
			}
		}
		return nil
	})
}

// List returns one page of audit events, optionally for one entity type.
func (r *AuditStore) List(ctx context.Context, req model.PageRequest, entityName string) (*model.Page[*model.AuditEvent], error) {
	rows, err := all[*model.AuditEvent](r.s.read(ctx), AuditTable)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	if entityName != "" {
		rows = slices.DeleteFunc(rows, func(e *model.AuditEvent) bool {
			return e.EntityName != entityName
		})
	}
	if err := sortRows(rows, req.Sort, auditFields); err != nil {
		return nil, err
	}
	return paginate(rows, req, func(e *model.AuditEvent) *model.AuditEvent {
		c := *e
		return &c
	}), nil
}
