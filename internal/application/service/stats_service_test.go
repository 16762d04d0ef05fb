package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

func TestApproverStats(t *testing.T) {
	decisions := &fakeDecisionRepo{}
	decidedAt := time.Now().Add(-time.Hour)
	decisions.rows = []*entity.ApprovalDecision{
		{ID: 1, RequestID: 1, ApproverID: 10, IsRequired: true, Status: workflow.DecisionApproved, DecidedAt: &decidedAt},
		{ID: 2, RequestID: 2, ApproverID: 10, IsRequired: true, Status: workflow.DecisionApproved, DecidedAt: &decidedAt},
		{ID: 3, RequestID: 3, ApproverID: 10, IsRequired: true, Status: workflow.DecisionRejected, DecidedAt: &decidedAt},
		{ID: 4, RequestID: 4, ApproverID: 10, IsRequired: true, Status: workflow.DecisionPending},
		{ID: 5, RequestID: 5, ApproverID: 20, IsRequired: true, Status: workflow.DecisionApproved, DecidedAt: &decidedAt},
	}

	svc := NewStatsService(decisions, zap.NewNop())

	stats, err := svc.ApproverStats(context.Background(), 10, "month")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalDecisions)
	assert.Equal(t, 2, stats.ApprovedCount)
	assert.Equal(t, 1, stats.RejectedCount)
	assert.InDelta(t, 66.67, stats.ApprovalRate, 0.01)
}

func TestApproverStatsNoDecisions(t *testing.T) {
	svc := NewStatsService(&fakeDecisionRepo{}, zap.NewNop())

	stats, err := svc.ApproverStats(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalDecisions)
	assert.Zero(t, stats.ApprovalRate)
}

func TestApproverStatsInvalidPeriod(t *testing.T) {
	svc := NewStatsService(&fakeDecisionRepo{}, zap.NewNop())

	_, err := svc.ApproverStats(context.Background(), 10, "fortnight")
	assert.Error(t, err)
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		period string
		want   time.Time
	}{
		{"", time.Date(2026, time.July, 31, 12, 0, 0, 0, time.UTC)},
		{"month", time.Date(2026, time.July, 31, 12, 0, 0, 0, time.UTC)},
		{"day", time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)},
		{"week", time.Date(2026, time.August, 24, 12, 0, 0, 0, time.UTC)},
		{"year", time.Date(2025, time.August, 31, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := periodStart(tt.period, now)
		require.NoError(t, err, "period %q", tt.period)
		assert.True(t, got.Equal(tt.want), "period %q: got %v, want %v", tt.period, got, tt.want)
	}
}
