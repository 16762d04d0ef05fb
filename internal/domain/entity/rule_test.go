package entity

import "testing"

func ptr(v int64) *int64 { return &v }

func TestWorkflowRuleMatches(t *testing.T) {
	tests := []struct {
		name        string
		min         *int64
		max         *int64
		amountCents int64
		want        bool
	}{
		{"open band matches anything", nil, nil, 1, true},
		{"within band", ptr(1000), ptr(50000), 2500, true},
		{"at lower bound", ptr(1000), ptr(50000), 1000, true},
		{"at upper bound", ptr(1000), ptr(50000), 50000, true},
		{"below lower bound", ptr(1000), ptr(50000), 999, false},
		{"above upper bound", ptr(1000), ptr(50000), 50001, false},
		{"open lower bound", nil, ptr(50000), 1, true},
		{"open upper bound", ptr(1000), nil, 1_000_000_00, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &WorkflowRule{MinAmountCents: tt.min, MaxAmountCents: tt.max}
			if got := rule.Matches(tt.amountCents); got != tt.want {
				t.Errorf("Matches(%d) = %v, want %v", tt.amountCents, got, tt.want)
			}
		})
	}
}

func TestWorkflowRuleAutoApproves(t *testing.T) {
	tests := []struct {
		name        string
		threshold   *int64
		amountCents int64
		want        bool
	}{
		{"no threshold never auto-approves", nil, 1, false},
		{"below threshold", ptr(10000), 9999, true},
		{"at threshold", ptr(10000), 10000, true},
		{"above threshold", ptr(10000), 10001, false},
		{"zero threshold", ptr(0), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &WorkflowRule{AutoApproveThreshold: tt.threshold}
			if got := rule.AutoApproves(tt.amountCents); got != tt.want {
				t.Errorf("AutoApproves(%d) = %v, want %v", tt.amountCents, got, tt.want)
			}
		})
	}
}
