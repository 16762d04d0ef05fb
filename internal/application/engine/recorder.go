package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
	"go.uber.org/zap"
)

// DecisionResult is what a caller observes after recording a decision:
// the post-aggregation request and whether this decision finalized it.
type DecisionResult struct {
	Request    *entity.FinancialRequest
	Transition *Transition
}

// Recorder records a single approver's decision against a request. The
// precondition checks, the decision update and the aggregation all run
// in one transaction, so two approvers racing on the same request
// serialize at the store and exactly one of them finalizes it.
type Recorder struct {
	requests   port.RequestRepository
	decisions  port.DecisionRepository
	audit      port.AuditRepository
	aggregator *Aggregator
	txManager  port.TransactionManager
	logger     *zap.Logger
}

// NewRecorder creates a new Recorder
func NewRecorder(
	requests port.RequestRepository,
	decisions port.DecisionRepository,
	audit port.AuditRepository,
	aggregator *Aggregator,
	txManager port.TransactionManager,
	logger *zap.Logger,
) *Recorder {
	return &Recorder{
		requests:   requests,
		decisions:  decisions,
		audit:      audit,
		aggregator: aggregator,
		txManager:  txManager,
		logger:     logger,
	}
}

// Record applies one approver decision. Typed failures:
// workflow.ErrInvalidDecision, ErrRequestNotFound,
// ErrRequestAlreadyFinalized, ErrNotAnApprover, ErrDecisionAlreadyMade.
// These are expected under concurrent use and must be surfaced to the
// caller, not retried here.
func (r *Recorder) Record(ctx context.Context, requestID, approverID int64, decision workflow.DecisionStatus, comments string) (*DecisionResult, error) {
	if !decision.IsValidDecision() {
		return nil, workflow.ErrInvalidDecision
	}

	result := &DecisionResult{}

	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := r.requests.GetByID(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		if req == nil {
			return workflow.ErrRequestNotFound
		}
		if req.Status != workflow.StatusPending {
			return workflow.ErrRequestAlreadyFinalized
		}

		now := time.Now()
		ok, err := r.decisions.DecideIfPending(txCtx, requestID, approverID, decision, comments, now)
		if err != nil {
			return fmt.Errorf("update decision: %w", err)
		}
		if !ok {
			// Distinguish "never an approver" from "already decided"
			row, err := r.decisions.GetByRequestAndApprover(txCtx, requestID, approverID)
			if err != nil {
				return fmt.Errorf("get decision: %w", err)
			}
			if row == nil {
				return workflow.ErrNotAnApprover
			}
			return workflow.ErrDecisionAlreadyMade
		}

		r.appendAudit(txCtx, requestID, approverID, decision, comments)

		transition, err := r.aggregator.Aggregate(txCtx, requestID, &approverID)
		if err != nil {
			return err
		}

		updated, err := r.requests.GetByID(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("reload request: %w", err)
		}

		result.Request = updated
		result.Transition = transition
		return nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("Decision recorded",
		zap.Int64("request_id", requestID),
		zap.Int64("approver_id", approverID),
		zap.String("decision", decision.String()),
		zap.String("request_status", result.Request.Status.String()))

	return result, nil
}

// appendAudit writes the audit row for a decision; failures are logged,
// never fatal to the decision itself.
func (r *Recorder) appendAudit(ctx context.Context, requestID, approverID int64, decision workflow.DecisionStatus, comments string) {
	action := entity.AuditApprove
	if decision == workflow.DecisionRejected {
		action = entity.AuditReject
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"decision": decision.String(),
		"comments": comments,
	})

	err := r.audit.Append(ctx, &entity.AuditEntry{
		UserID:    &approverID,
		Action:    action,
		TableName: "request_approvals",
		RecordID:  requestID,
		NewValues: string(payload),
	})
	if err != nil {
		r.logger.Warn("Failed to append audit entry",
			zap.Int64("request_id", requestID),
			zap.Error(err))
	}
}
