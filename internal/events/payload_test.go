package events

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cheroliv/blogger/internal/model"
)

func validPayload() AlertPayload {
	return AlertPayload{
		EventID:    ulid.Make().String(),
		Action:     "created",
		EntityName: "person",
		EntityID:   "12",
		OccurredAt: time.Now().UnixMilli(),
	}
}

func TestNewAlertPayload(t *testing.T) {
	t.Parallel()

	alert := model.NewAlert(model.AlertDeleted, model.ArticleEntity, 9)
	p := NewAlertPayload(alert)

	if err := ValidateAlertPayload(p); err != nil {
		t.Fatalf("payload from alert should be valid: %v", err)
	}
	if p.Action != "deleted" || p.EntityName != "article" || p.EntityID != "9" {
		t.Errorf("payload = %+v", p)
	}
	if p.OccurredAt != alert.OccurredAt.UnixMilli() {
		t.Errorf("OccurredAt = %d, want %d", p.OccurredAt, alert.OccurredAt.UnixMilli())
	}

	other := NewAlertPayload(alert)
	if other.EventID == p.EventID {
		t.Error("each payload should get a distinct event id")
	}
}

func TestValidateAlertPayload(t *testing.T) {
	t.Parallel()

	if err := ValidateAlertPayload(validPayload()); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(p *AlertPayload)
	}{
		{"missing_event_id", func(p *AlertPayload) { p.EventID = "" }},
		{"bad_event_id", func(p *AlertPayload) { p.EventID = "not-a-ulid" }},
		{"unknown_action", func(p *AlertPayload) { p.Action = "renamed" }},
		{"missing_entity", func(p *AlertPayload) { p.EntityName = "" }},
		{"non_numeric_id", func(p *AlertPayload) { p.EntityID = "abc" }},
		{"missing_time", func(p *AlertPayload) { p.OccurredAt = 0 }},
	}

	for _, tc := range cases {
		p := validPayload()
		tc.mutate(&p)
		if err := ValidateAlertPayload(p); err == nil {
			t.Fatalf("expected error for %s", tc.name)
		}
	}
}

func TestAlertPayload_ToAuditEvent(t *testing.T) {
	t.Parallel()

	p := validPayload()
	e := p.ToAuditEvent("1700000000000-0")

	if e.EventID != p.EventID || e.StreamID != "1700000000000-0" {
		t.Errorf("ids = %s/%s", e.EventID, e.StreamID)
	}
	if e.OccurredAt.UnixMilli() != p.OccurredAt {
		t.Errorf("OccurredAt = %v", e.OccurredAt)
	}
	if e.OccurredAt.Location() != time.UTC {
		t.Error("OccurredAt should be UTC")
	}
}
