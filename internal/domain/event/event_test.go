package event

import "testing"

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeRequestApproved, 42, 7, map[string]interface{}{"notification_event": "approved"})

	if evt.ID == "" {
		t.Error("expected event ID to be generated")
	}
	if evt.CorrelationID == "" {
		t.Error("expected correlation ID to be generated")
	}
	if evt.Type != TypeRequestApproved {
		t.Errorf("expected type %s, got %s", TypeRequestApproved, evt.Type)
	}
	if evt.RequestID != 42 {
		t.Errorf("expected request ID 42, got %d", evt.RequestID)
	}
	if evt.ActorID != 7 {
		t.Errorf("expected actor ID 7, got %d", evt.ActorID)
	}
	if evt.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestGetPayloadString(t *testing.T) {
	evt := NewEvent(TypeDecisionMade, 1, 2, map[string]interface{}{
		"notification_event": "decision_made",
		"count":              int64(3),
	})

	if got := evt.GetPayloadString("notification_event"); got != "decision_made" {
		t.Errorf("expected decision_made, got %q", got)
	}
	if got := evt.GetPayloadString("count"); got != "" {
		t.Errorf("expected empty string for non-string value, got %q", got)
	}
	if got := evt.GetPayloadString("missing"); got != "" {
		t.Errorf("expected empty string for missing key, got %q", got)
	}

	empty := NewEvent(TypeDecisionMade, 1, 2, nil)
	if got := empty.GetPayloadString("notification_event"); got != "" {
		t.Errorf("expected empty string for nil payload, got %q", got)
	}
}

func TestTypeIsValid(t *testing.T) {
	valid := []Type{
		TypeRequestNeedsApproval,
		TypeRequestApproved,
		TypeRequestRejected,
		TypeRequestAutoApproved,
		TypeRequestCancelled,
		TypeDecisionMade,
	}
	for _, typ := range valid {
		if !typ.IsValid() {
			t.Errorf("expected %s to be valid", typ)
		}
	}

	if Type("request.unknown").IsValid() {
		t.Error("expected unknown type to be invalid")
	}
}
