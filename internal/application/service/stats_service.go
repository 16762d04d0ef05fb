package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/finance-approval/internal/application/port"
	"go.uber.org/zap"
)

// StatsService serves approver workload and decision statistics
type StatsService interface {
	// ApproverStats aggregates an approver's decisions over a period
	// ("day", "week", "month" or "year")
	ApproverStats(ctx context.Context, approverID int64, period string) (*port.ApproverStats, error)
}

type statsServiceImpl struct {
	decisions port.DecisionRepository
	logger    *zap.Logger
}

// NewStatsService creates a new StatsService
func NewStatsService(decisions port.DecisionRepository, logger *zap.Logger) StatsService {
	return &statsServiceImpl{
		decisions: decisions,
		logger:    logger,
	}
}

func (s *statsServiceImpl) ApproverStats(ctx context.Context, approverID int64, period string) (*port.ApproverStats, error) {
	since, err := periodStart(period, time.Now())
	if err != nil {
		return nil, err
	}

	stats, err := s.decisions.StatsByApprover(ctx, approverID, since)
	if err != nil {
		s.logger.Error("Failed to aggregate approver stats",
			zap.Int64("approver_id", approverID),
			zap.String("period", period),
			zap.Error(err))
		return nil, err
	}

	pending, err := s.decisions.CountPendingByApprover(ctx, approverID)
	if err != nil {
		return nil, err
	}
	stats.PendingCount = pending

	if stats.TotalDecisions > 0 {
		stats.ApprovalRate = float64(stats.ApprovedCount) / float64(stats.TotalDecisions) * 100
	}
	return stats, nil
}

func periodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "", "month":
		return now.AddDate(0, -1, 0), nil
	case "day":
		return now.AddDate(0, 0, -1), nil
	case "week":
		return now.AddDate(0, 0, -7), nil
	case "year":
		return now.AddDate(-1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid stats period: %s", period)
	}
}
