package model

import (
	"fmt"
	"time"
)

// AlertAction is the kind of mutation an alert reports.
type AlertAction string

const (
	AlertCreated AlertAction = "created"
	AlertUpdated AlertAction = "updated"
	AlertDeleted AlertAction = "deleted"
)

// IsValid reports whether the action is known.
func (a AlertAction) IsValid() bool {
	return a == AlertCreated || a == AlertUpdated || a == AlertDeleted
}

// Alert notifies observers that an entity changed.
// It never drives internal logic.
type Alert struct {
	Action       AlertAction
	EntityName   string
	ID           string
	Translatable bool
	OccurredAt   time.Time
}

// NewAlert builds a non-translatable alert for the entity id.
func NewAlert(action AlertAction, entityName string, id int64) Alert {
	return Alert{
		Action:     action,
		EntityName: entityName,
		ID:         fmt.Sprintf("%d", id),
		OccurredAt: time.Now().UTC(),
	}
}

// Message renders the alert text or, when translatable, its message key.
func (a Alert) Message(appName string) string {
	if a.Translatable {
		return fmt.Sprintf("%s.%s.%s", appName, a.EntityName, a.Action)
	}
	switch a.Action {
	case AlertCreated:
		return fmt.Sprintf("A new %s is created with identifier %s", a.EntityName, a.ID)
	case AlertUpdated:
		return fmt.Sprintf("A %s is updated with identifier %s", a.EntityName, a.ID)
	default:
		return fmt.Sprintf("A %s is deleted with identifier %s", a.EntityName, a.ID)
	}
}

// AuditEvent is a persisted alert.
type AuditEvent struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"eventId"`
	StreamID   string    `json:"-"`
	Action     string    `json:"action"`
	EntityName string    `json:"entityName"`
	EntityID   string    `json:"entityId"`
	OccurredAt time.Time `json:"occurredAt"`
	RecordedAt time.Time `json:"recordedAt"`
}
