package events

import (
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cheroliv/blogger/internal/model"
)

const maxEntityNameLength = 64

// AlertPayload is the compact alert format carried on the Redis stream.
type AlertPayload struct {
	EventID    string `json:"eid"` // ULID, idempotency key
	Action     string `json:"a"`   // created, updated, deleted
	EntityName string `json:"e"`   // entity name
	EntityID   string `json:"id"`  // entity identifier
	OccurredAt int64  `json:"t"`   // Unix milliseconds
}

// NewAlertPayload converts an alert and assigns it a fresh event id.
func NewAlertPayload(alert model.Alert) AlertPayload {
	occurred := alert.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return AlertPayload{
		EventID:    ulid.Make().String(),
		Action:     string(alert.Action),
		EntityName: alert.EntityName,
		EntityID:   alert.ID,
		OccurredAt: occurred.UnixMilli(),
	}
}

// ToAuditEvent converts the payload to the persisted form.
func (p AlertPayload) ToAuditEvent(streamID string) *model.AuditEvent {
	return &model.AuditEvent{
		EventID:    p.EventID,
		StreamID:   streamID,
		Action:     p.Action,
		EntityName: p.EntityName,
		EntityID:   p.EntityID,
		OccurredAt: time.UnixMilli(p.OccurredAt).UTC(),
	}
}

// ValidateAlertPayload validates alert payload fields.
func ValidateAlertPayload(p AlertPayload) error {
	if _, err := ulid.ParseStrict(p.EventID); err != nil {
		return fmt.Errorf("eid must be a ULID: %w", err)
	}
	if !model.AlertAction(p.Action).IsValid() {
		return fmt.Errorf("unknown action %q", p.Action)
	}
	if p.EntityName == "" {
		return fmt.Errorf("entity name is required")
	}
	if len(p.EntityName) > maxEntityNameLength {
		return fmt.Errorf("entity name too long")
	}
	if _, err := strconv.ParseInt(p.EntityID, 10, 64); err != nil {
		return fmt.Errorf("entity id must be numeric")
	}
	if p.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	return nil
}
