package model

import "testing"

func TestAlert_Message(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action AlertAction
		entity string
		want   string
	}{
		{AlertCreated, ArticleEntity, "A new article is created with identifier 5"},
		{AlertUpdated, PersonEntity, "A person is updated with identifier 5"},
		{AlertDeleted, PersonEntity, "A person is deleted with identifier 5"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.action), func(t *testing.T) {
			t.Parallel()

			alert := NewAlert(tt.action, tt.entity, 5)
			if got := alert.Message("bloggerApp"); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
			if alert.Translatable {
				t.Error("NewAlert should build non-translatable alerts")
			}
			if alert.OccurredAt.IsZero() {
				t.Error("OccurredAt should be set")
			}
		})
	}
}

func TestAlert_Message_Translatable(t *testing.T) {
	t.Parallel()

	alert := NewAlert(AlertUpdated, PersonEntity, 1)
	alert.Translatable = true

	if got := alert.Message("bloggerApp"); got != "bloggerApp.person.updated" {
		t.Errorf("Message() = %q, want bloggerApp.person.updated", got)
	}
}

func TestAlertAction_IsValid(t *testing.T) {
	t.Parallel()

	for _, a := range []AlertAction{AlertCreated, AlertUpdated, AlertDeleted} {
		if !a.IsValid() {
			t.Errorf("%s should be valid", a)
		}
	}
	if AlertAction("renamed").IsValid() {
		t.Error("unknown action should be invalid")
	}
}
