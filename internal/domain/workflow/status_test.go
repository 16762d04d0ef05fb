package workflow

import "testing"

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusPending, false},
		{StatusApproved, false},
		{StatusRejected, true},
		{StatusCancelled, true},
		{StatusProcessing, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("Status.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		to       Status
		expected bool
	}{
		{"pending to approved", StatusPending, StatusApproved, true},
		{"pending to rejected", StatusPending, StatusRejected, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to processing", StatusPending, StatusProcessing, false},
		{"approved to processing", StatusApproved, StatusProcessing, true},
		{"approved to pending", StatusApproved, StatusPending, false},
		{"approved to rejected", StatusApproved, StatusRejected, false},
		{"rejected to approved", StatusRejected, StatusApproved, false},
		{"cancelled to pending", StatusCancelled, StatusPending, false},
		{"processing to approved", StatusProcessing, StatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.expected {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestStatus_IsFinalized(t *testing.T) {
	if StatusPending.IsFinalized() {
		t.Error("pending must not be finalized")
	}
	for _, s := range []Status{StatusApproved, StatusRejected, StatusCancelled, StatusProcessing} {
		if !s.IsFinalized() {
			t.Errorf("%s must be finalized", s)
		}
	}
	if Status("bogus").IsFinalized() {
		t.Error("invalid status must not report finalized")
	}
}

func TestDecisionStatus(t *testing.T) {
	if DecisionPending.IsDecided() {
		t.Error("pending decision must not be decided")
	}
	if !DecisionApproved.IsDecided() || !DecisionRejected.IsDecided() {
		t.Error("approved and rejected decisions must be decided")
	}
	if DecisionPending.IsValidDecision() {
		t.Error("pending is not a submittable decision")
	}
	if !DecisionApproved.IsValidDecision() || !DecisionRejected.IsValidDecision() {
		t.Error("approved and rejected must be submittable decisions")
	}
}
