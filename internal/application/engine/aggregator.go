package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
	"go.uber.org/zap"
)

// Transition is a finalization performed by the aggregator
type Transition struct {
	From workflow.Status
	To   workflow.Status
}

// Aggregator turns the decision rows of a request into its overall
// status. The rule lives here and nowhere else: one rejected required
// decision vetoes the request; otherwise the request is approved once
// the approved count reaches the required-row quorum; otherwise it
// stays pending.
type Aggregator struct {
	requests  port.RequestRepository
	decisions port.DecisionRepository
	logger    *zap.Logger
}

// NewAggregator creates a new Aggregator
func NewAggregator(requests port.RequestRepository, decisions port.DecisionRepository, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		requests:  requests,
		decisions: decisions,
		logger:    logger,
	}
}

// Aggregate re-evaluates a request and finalizes it when the workflow
// is satisfied. Must run inside the caller's transaction. decidedBy is
// recorded as the finalizing actor; nil means system-decided.
//
// Finalization is idempotent: the guarded pending-only UPDATE means a
// concurrent finalization simply yields no transition here, and an
// already-terminal request is never touched.
func (a *Aggregator) Aggregate(ctx context.Context, requestID int64, decidedBy *int64) (*Transition, error) {
	summary, err := a.decisions.Summarize(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("summarize decisions: %w", err)
	}

	switch {
	case summary.Rejected > 0:
		return a.finalize(ctx, requestID, workflow.StatusRejected, decidedBy)
	case summary.RequiredTotal > 0 && summary.Approved >= summary.RequiredTotal:
		return a.finalize(ctx, requestID, workflow.StatusApproved, decidedBy)
	default:
		return nil, nil
	}
}

func (a *Aggregator) finalize(ctx context.Context, requestID int64, to workflow.Status, decidedBy *int64) (*Transition, error) {
	ok, err := a.requests.UpdateStatusIf(ctx, requestID, workflow.StatusPending, to, decidedBy, "", time.Now())
	if err != nil {
		return nil, fmt.Errorf("finalize request: %w", err)
	}
	if !ok {
		// Lost the race against a concurrent finalization; the earlier
		// transition stands.
		a.logger.Debug("Request already finalized, skipping",
			zap.Int64("request_id", requestID),
			zap.String("target_status", to.String()))
		return nil, nil
	}

	a.logger.Info("Request finalized",
		zap.Int64("request_id", requestID),
		zap.String("status", to.String()))

	return &Transition{From: workflow.StatusPending, To: to}, nil
}
