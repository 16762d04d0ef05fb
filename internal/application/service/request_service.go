package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/finance-approval/internal/application/engine"
	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
	"github.com/garyjia/finance-approval/pkg/utils"
	"go.uber.org/zap"
)

// CreateRequestInput carries everything needed to submit a request.
// Actor identity is always explicit; the engine never reads ambient
// session state.
type CreateRequestInput struct {
	BusinessID    int64
	RequestTypeID int64
	RequesterID   int64
	Title         string
	Description   string
	AmountCents   int64
	Currency      string
	Urgency       string
}

// RequestService is the caller-facing API of the approval engine
type RequestService interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (*entity.FinancialRequest, error)
	Decide(ctx context.Context, requestID, approverID int64, decision workflow.DecisionStatus, comments string) (*entity.FinancialRequest, error)
	BulkDecide(ctx context.Context, requestIDs []int64, approverID int64, decision workflow.DecisionStatus, comments string) []BulkDecisionResult
	Cancel(ctx context.Context, requestID, actorID int64, actorRole, reason string) (*entity.FinancialRequest, error)
	UpdateAmount(ctx context.Context, requestID, actorID int64, actorRole string, newAmountCents int64) (*entity.FinancialRequest, error)
	MarkProcessing(ctx context.Context, requestID, accountantID int64, actorRole string) (*entity.FinancialRequest, error)
	GetRequest(ctx context.Context, requestID, actorID int64, actorRole string) (*entity.FinancialRequest, error)
	ListUserRequests(ctx context.Context, userID int64, filter port.RequestFilter) ([]*entity.FinancialRequest, error)
	ListAllRequests(ctx context.Context, actorRole string, filter port.RequestFilter) ([]*entity.FinancialRequest, error)
	ListPendingApprovals(ctx context.Context, approverID int64, limit, offset int) ([]*entity.PendingApproval, error)
	ListApproverHistory(ctx context.Context, approverID int64, limit, offset int) ([]*entity.ApproverHistoryItem, error)
	ListRequestsToProcess(ctx context.Context, businessID *int64, limit, offset int) ([]*entity.FinancialRequest, error)
	GetDecisions(ctx context.Context, requestID int64) ([]*entity.ApprovalDecision, error)
}

// BulkDecisionResult is the per-request outcome of a bulk decision.
// Each request is processed independently; a failure on one never
// rolls back another.
type BulkDecisionResult struct {
	RequestID int64           `json:"request_id"`
	Status    workflow.Status `json:"status,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type requestServiceImpl struct {
	requests   port.RequestRepository
	decisions  port.DecisionRepository
	businesses port.BusinessRepository
	users      port.UserRepository
	audit      port.AuditRepository
	resolver   *engine.Resolver
	selector   *engine.Selector
	recorder   *engine.Recorder
	aggregator *engine.Aggregator
	txManager  port.TransactionManager
	notifier   port.Notifier
	logger     *zap.Logger

	defaultCurrency string
}

// NewRequestService creates a new RequestService. defaultCurrency is
// applied to requests submitted without one.
func NewRequestService(
	requests port.RequestRepository,
	decisions port.DecisionRepository,
	businesses port.BusinessRepository,
	users port.UserRepository,
	audit port.AuditRepository,
	resolver *engine.Resolver,
	selector *engine.Selector,
	recorder *engine.Recorder,
	aggregator *engine.Aggregator,
	txManager port.TransactionManager,
	notifier port.Notifier,
	logger *zap.Logger,
	defaultCurrency string,
) RequestService {
	return &requestServiceImpl{
		requests:   requests,
		decisions:  decisions,
		businesses: businesses,
		users:      users,
		audit:      audit,
		resolver:   resolver,
		selector:   selector,
		recorder:   recorder,
		aggregator: aggregator,
		txManager:  txManager,
		notifier:   notifier,
		logger:     logger,

		defaultCurrency: defaultCurrency,
	}
}

// pendingEvent is a notification deferred until after commit
type pendingEvent struct {
	event   entity.NotificationEvent
	actorID int64
}

// CreateRequest resolves the workflow and either auto-approves the
// request or fans out pending decision rows, all in one transaction.
// Configuration errors (no rule, no approvers) abort the transaction so
// no partial request is ever persisted.
func (s *requestServiceImpl) CreateRequest(ctx context.Context, input CreateRequestInput) (*entity.FinancialRequest, error) {
	if err := validateCreateInput(&input, s.defaultCurrency); err != nil {
		return nil, err
	}

	var events []pendingEvent
	req := &entity.FinancialRequest{
		BusinessID:    input.BusinessID,
		RequestTypeID: input.RequestTypeID,
		UserID:        input.RequesterID,
		Title:         input.Title,
		Description:   input.Description,
		AmountCents:   input.AmountCents,
		Currency:      input.Currency,
		Urgency:       input.Urgency,
		Status:        workflow.StatusPending,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		business, err := s.businesses.GetByID(txCtx, input.BusinessID)
		if err != nil {
			return fmt.Errorf("get business: %w", err)
		}
		if business == nil {
			return fmt.Errorf("business %d not found", input.BusinessID)
		}

		rule, err := s.resolver.Resolve(txCtx, input.BusinessID, input.RequestTypeID, input.AmountCents)
		if err != nil {
			return err
		}

		number, err := s.nextRequestNumber(txCtx, business)
		if err != nil {
			return err
		}
		req.RequestNumber = number

		if rule.AutoApproves(input.AmountCents) {
			// Auto-approval bypasses approver selection entirely: the
			// request is born terminal and no decision rows exist.
			now := time.Now()
			req.Status = workflow.StatusApproved
			req.FinalDecisionAt = &now
			req.FinalDecisionBy = nil

			if err := s.requests.Create(txCtx, req); err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			events = append(events, pendingEvent{entity.EventAutoApproved, 0})
		} else {
			approvers, err := s.selector.SelectApprovers(txCtx, rule, input.BusinessID)
			if err != nil {
				return err
			}

			if err := s.requests.Create(txCtx, req); err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			rows := make([]*entity.ApprovalDecision, 0, len(approvers))
			for i, approver := range approvers {
				rows = append(rows, &entity.ApprovalDecision{
					RequestID:     req.ID,
					ApproverID:    approver.ID,
					ApprovalOrder: i + 1,
					IsRequired:    true,
					Status:        workflow.DecisionPending,
				})
			}
			if err := s.decisions.CreateBatch(txCtx, rows); err != nil {
				return fmt.Errorf("create decisions: %w", err)
			}
			events = append(events, pendingEvent{entity.EventNeedsApproval, input.RequesterID})
		}

		s.appendAudit(txCtx, &input.RequesterID, entity.AuditCreate, "financial_requests", req.ID, nil, req)
		return nil
	})

	if err != nil {
		s.logger.Error("Request creation failed",
			zap.Int64("business_id", input.BusinessID),
			zap.Int64("requester_id", input.RequesterID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Request created",
		zap.Int64("request_id", req.ID),
		zap.String("request_number", req.RequestNumber),
		zap.String("status", req.Status.String()))

	s.dispatch(ctx, req.ID, events)
	return req, nil
}

// Decide records an approver decision and returns the request's
// post-aggregation state. Notifications fire only after the
// transaction has committed.
func (s *requestServiceImpl) Decide(ctx context.Context, requestID, approverID int64, decision workflow.DecisionStatus, comments string) (*entity.FinancialRequest, error) {
	result, err := s.recorder.Record(ctx, requestID, approverID, decision, comments)
	if err != nil {
		return nil, err
	}

	var events []pendingEvent
	if result.Transition != nil {
		switch result.Transition.To {
		case workflow.StatusApproved:
			events = append(events, pendingEvent{entity.EventApproved, approverID})
		case workflow.StatusRejected:
			events = append(events, pendingEvent{entity.EventRejected, approverID})
		}
	} else {
		events = append(events, pendingEvent{entity.EventDecisionMade, approverID})
	}

	s.dispatch(ctx, requestID, events)
	return result.Request, nil
}

// BulkDecide applies the same decision to several requests. Each
// request runs through the full Decide path in its own transaction, so
// one request being already finalized or already decided never blocks
// the rest of the batch.
func (s *requestServiceImpl) BulkDecide(ctx context.Context, requestIDs []int64, approverID int64, decision workflow.DecisionStatus, comments string) []BulkDecisionResult {
	results := make([]BulkDecisionResult, 0, len(requestIDs))
	for _, requestID := range requestIDs {
		req, err := s.Decide(ctx, requestID, approverID, decision, comments)
		if err != nil {
			results = append(results, BulkDecisionResult{RequestID: requestID, Error: err.Error()})
			continue
		}
		results = append(results, BulkDecisionResult{RequestID: requestID, Status: req.Status})
	}

	s.logger.Info("Bulk decision processed",
		zap.Int64("approver_id", approverID),
		zap.String("decision", decision.String()),
		zap.Int("total", len(requestIDs)))
	return results
}

// Cancel transitions a pending request to cancelled (owner or admin
// only) and force-rejects its outstanding pending decision rows in the
// same transaction.
func (s *requestServiceImpl) Cancel(ctx context.Context, requestID, actorID int64, actorRole, reason string) (*entity.FinancialRequest, error) {
	var req *entity.FinancialRequest

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.requests.GetByID(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		if current == nil {
			return workflow.ErrRequestNotFound
		}
		if current.UserID != actorID && actorRole != entity.RoleAdmin {
			return workflow.ErrAccessDenied
		}

		ok, err := s.requests.UpdateStatusIf(txCtx, requestID, workflow.StatusPending, workflow.StatusCancelled, &actorID, reason, time.Now())
		if err != nil {
			return fmt.Errorf("cancel request: %w", err)
		}
		if !ok {
			return workflow.ErrRequestAlreadyFinalized
		}

		if _, err := s.decisions.RejectPending(txCtx, requestID, time.Now()); err != nil {
			return fmt.Errorf("reject pending decisions: %w", err)
		}

		s.appendAudit(txCtx, &actorID, entity.AuditCancel, "financial_requests", requestID, current, map[string]interface{}{
			"status": workflow.StatusCancelled,
			"reason": reason,
		})

		req, err = s.requests.GetByID(txCtx, requestID)
		return err
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Request cancelled",
		zap.Int64("request_id", requestID),
		zap.Int64("actor_id", actorID))

	s.dispatch(ctx, requestID, []pendingEvent{{entity.EventCancelled, actorID}})
	return req, nil
}

// UpdateAmount changes a pending request's amount and rebuilds its
// workflow under the newly resolved rule. Only pending decision rows
// are replaced: decisions already recorded are retained, keep counting
// toward the new quorum, and a recorded rejection still vetoes.
func (s *requestServiceImpl) UpdateAmount(ctx context.Context, requestID, actorID int64, actorRole string, newAmountCents int64) (*entity.FinancialRequest, error) {
	if newAmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	var req *entity.FinancialRequest
	var events []pendingEvent

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.requests.GetByID(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		if current == nil {
			return workflow.ErrRequestNotFound
		}
		if current.UserID != actorID && actorRole != entity.RoleAdmin {
			return workflow.ErrAccessDenied
		}

		ok, err := s.requests.UpdateAmountIfPending(txCtx, requestID, newAmountCents)
		if err != nil {
			return fmt.Errorf("update amount: %w", err)
		}
		if !ok {
			return workflow.ErrRequestAlreadyFinalized
		}

		if _, err := s.decisions.DeletePending(txCtx, requestID); err != nil {
			return fmt.Errorf("delete pending decisions: %w", err)
		}

		rule, err := s.resolver.Resolve(txCtx, current.BusinessID, current.RequestTypeID, newAmountCents)
		if err != nil {
			return err
		}

		retained, err := s.decisions.ListByRequest(txCtx, requestID)
		if err != nil {
			return fmt.Errorf("list retained decisions: %w", err)
		}

		needsApproval := false
		if rule.AutoApproves(newAmountCents) && len(retained) == 0 {
			now := time.Now()
			ok, err := s.requests.UpdateStatusIf(txCtx, requestID, workflow.StatusPending, workflow.StatusApproved, nil, "", now)
			if err != nil {
				return fmt.Errorf("auto-approve request: %w", err)
			}
			if ok {
				events = append(events, pendingEvent{entity.EventAutoApproved, 0})
			}
		} else if !rule.AutoApproves(newAmountCents) {
			if err := s.refillApprovers(txCtx, requestID, current.BusinessID, rule, retained); err != nil {
				return err
			}
			needsApproval = true
		}

		// Retained decisions may already satisfy (or veto) the new rule.
		// When they do, attribution goes to the retained approver whose
		// decision completed it, never to the actor changing the amount.
		finalizer := retainedFinalizer(retained)
		transition, err := s.aggregator.Aggregate(txCtx, requestID, finalizer)
		if err != nil {
			return err
		}
		if transition != nil {
			actor := int64(0)
			if finalizer != nil {
				actor = *finalizer
			}
			switch transition.To {
			case workflow.StatusApproved:
				events = append(events, pendingEvent{entity.EventApproved, actor})
			case workflow.StatusRejected:
				events = append(events, pendingEvent{entity.EventRejected, actor})
			}
		} else if needsApproval {
			events = append(events, pendingEvent{entity.EventNeedsApproval, actorID})
		}

		s.appendAudit(txCtx, &actorID, entity.AuditUpdate, "financial_requests", requestID, current, map[string]interface{}{
			"amount_cents": newAmountCents,
		})

		req, err = s.requests.GetByID(txCtx, requestID)
		return err
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Request amount updated",
		zap.Int64("request_id", requestID),
		zap.Int64("amount_cents", newAmountCents),
		zap.String("status", req.Status.String()))

	s.dispatch(ctx, requestID, events)
	return req, nil
}

// retainedFinalizer picks the approver credited when retained decisions
// finalize the reflowed request: the rejecting approver when one
// exists, otherwise the most recently decided approval. Nil when no
// decided rows were retained.
func retainedFinalizer(retained []*entity.ApprovalDecision) *int64 {
	var latest *entity.ApprovalDecision
	for _, d := range retained {
		if d.Status == workflow.DecisionRejected {
			return &d.ApproverID
		}
		if d.Status != workflow.DecisionApproved {
			continue
		}
		if latest == nil {
			latest = d
			continue
		}
		if d.DecidedAt != nil && latest.DecidedAt != nil && d.DecidedAt.After(*latest.DecidedAt) {
			latest = d
		}
	}
	if latest == nil {
		return nil
	}
	return &latest.ApproverID
}

// refillApprovers tops the decision set back up to the new rule's
// quorum, skipping approvers whose decided rows were retained so the
// (request, approver) uniqueness holds.
func (s *requestServiceImpl) refillApprovers(ctx context.Context, requestID, businessID int64, rule *entity.WorkflowRule, retained []*entity.ApprovalDecision) error {
	needed := rule.RequiredApprovers - len(retained)
	if needed <= 0 {
		return nil
	}

	decided := make(map[int64]bool, len(retained))
	maxOrder := 0
	for _, d := range retained {
		decided[d.ApproverID] = true
		if d.ApprovalOrder > maxOrder {
			maxOrder = d.ApprovalOrder
		}
	}

	pool, err := s.users.ListActiveDirectors(ctx, businessID)
	if err != nil {
		return fmt.Errorf("list directors: %w", err)
	}

	rows := make([]*entity.ApprovalDecision, 0, needed)
	for _, director := range pool {
		if len(rows) == needed {
			break
		}
		if decided[director.ID] {
			continue
		}
		maxOrder++
		rows = append(rows, &entity.ApprovalDecision{
			RequestID:     requestID,
			ApproverID:    director.ID,
			ApprovalOrder: maxOrder,
			IsRequired:    true,
			Status:        workflow.DecisionPending,
		})
	}

	if len(rows) == 0 && len(retained) == 0 {
		return workflow.ErrNoEligibleApprovers
	}
	if len(rows) == 0 {
		return nil
	}
	return s.decisions.CreateBatch(ctx, rows)
}

// MarkProcessing moves an approved request into accountant processing
func (s *requestServiceImpl) MarkProcessing(ctx context.Context, requestID, accountantID int64, actorRole string) (*entity.FinancialRequest, error) {
	if actorRole != entity.RoleAccountant && actorRole != entity.RoleAdmin {
		return nil, workflow.ErrAccessDenied
	}

	var req *entity.FinancialRequest
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// Fulfillment transition only; the finalization record (who
		// approved it and when) must survive untouched
		ok, err := s.requests.AdvanceStatusIf(txCtx, requestID, workflow.StatusApproved, workflow.StatusProcessing)
		if err != nil {
			return fmt.Errorf("mark processing: %w", err)
		}
		if !ok {
			current, err := s.requests.GetByID(txCtx, requestID)
			if err != nil {
				return err
			}
			if current == nil {
				return workflow.ErrRequestNotFound
			}
			return workflow.ErrInvalidTransition
		}

		s.appendAudit(txCtx, &accountantID, entity.AuditProcess, "financial_requests", requestID, nil, map[string]interface{}{
			"status": workflow.StatusProcessing,
		})

		req, err = s.requests.GetByID(txCtx, requestID)
		return err
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Request marked processing",
		zap.Int64("request_id", requestID),
		zap.Int64("accountant_id", accountantID))
	return req, nil
}

// GetRequest applies role-based visibility: employees see their own
// requests, accountants their business, directors and admins all.
func (s *requestServiceImpl) GetRequest(ctx context.Context, requestID, actorID int64, actorRole string) (*entity.FinancialRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, workflow.ErrRequestNotFound
	}

	switch actorRole {
	case entity.RoleEmployee:
		if req.UserID != actorID {
			return nil, workflow.ErrRequestNotFound
		}
	case entity.RoleAccountant:
		actor, err := s.users.GetByID(ctx, actorID)
		if err != nil {
			return nil, fmt.Errorf("get actor: %w", err)
		}
		if actor == nil {
			return nil, workflow.ErrAccessDenied
		}
		if actor.BusinessID != nil && *actor.BusinessID != req.BusinessID {
			return nil, workflow.ErrRequestNotFound
		}
	}
	return req, nil
}

func (s *requestServiceImpl) ListUserRequests(ctx context.Context, userID int64, filter port.RequestFilter) ([]*entity.FinancialRequest, error) {
	return s.requests.ListByUser(ctx, userID, filter)
}

// ListAllRequests is the admin-wide listing across owners and
// businesses, optionally narrowed by the filter
func (s *requestServiceImpl) ListAllRequests(ctx context.Context, actorRole string, filter port.RequestFilter) ([]*entity.FinancialRequest, error) {
	if actorRole != entity.RoleAdmin {
		return nil, workflow.ErrAccessDenied
	}
	return s.requests.ListByFilter(ctx, filter)
}

func (s *requestServiceImpl) ListPendingApprovals(ctx context.Context, approverID int64, limit, offset int) ([]*entity.PendingApproval, error) {
	return s.decisions.ListPendingByApprover(ctx, approverID, limit, offset)
}

func (s *requestServiceImpl) ListApproverHistory(ctx context.Context, approverID int64, limit, offset int) ([]*entity.ApproverHistoryItem, error) {
	return s.decisions.ListDecidedByApprover(ctx, approverID, limit, offset)
}

func (s *requestServiceImpl) ListRequestsToProcess(ctx context.Context, businessID *int64, limit, offset int) ([]*entity.FinancialRequest, error) {
	return s.requests.ListByFilter(ctx, port.RequestFilter{
		Status:     workflow.StatusApproved,
		BusinessID: businessID,
		Limit:      limit,
		Offset:     offset,
	})
}

func (s *requestServiceImpl) GetDecisions(ctx context.Context, requestID int64) ([]*entity.ApprovalDecision, error) {
	return s.decisions.ListByRequest(ctx, requestID)
}

// nextRequestNumber builds CODE-YYYYMM-NNNN, sequenced per business per
// month
func (s *requestServiceImpl) nextRequestNumber(ctx context.Context, business *entity.Business) (string, error) {
	now := time.Now()
	count, err := s.requests.CountForBusinessMonth(ctx, business.ID, now.Year(), now.Month())
	if err != nil {
		return "", fmt.Errorf("count requests for month: %w", err)
	}
	return fmt.Sprintf("%s-%d%02d-%04d", business.Code, now.Year(), int(now.Month()), count+1), nil
}

// dispatch fires deferred notifications; by the time it runs the
// transaction has committed.
func (s *requestServiceImpl) dispatch(ctx context.Context, requestID int64, events []pendingEvent) {
	for _, e := range events {
		s.notifier.Notify(ctx, requestID, e.event, e.actorID)
	}
}

// appendAudit writes an audit row; failures are logged, never fatal
func (s *requestServiceImpl) appendAudit(ctx context.Context, userID *int64, action, table string, recordID int64, oldValue, newValue interface{}) {
	entry := &entity.AuditEntry{
		UserID:    userID,
		Action:    action,
		TableName: table,
		RecordID:  recordID,
	}
	if oldValue != nil {
		if b, err := json.Marshal(oldValue); err == nil {
			entry.OldValues = string(b)
		}
	}
	if newValue != nil {
		if b, err := json.Marshal(newValue); err == nil {
			entry.NewValues = string(b)
		}
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append audit entry",
			zap.String("action", action),
			zap.Int64("record_id", recordID),
			zap.Error(err))
	}
}

func validateCreateInput(input *CreateRequestInput, defaultCurrency string) error {
	input.Title = utils.SanitizeString(input.Title)
	input.Description = utils.SanitizeString(input.Description)
	if input.Title == "" {
		return fmt.Errorf("title is required")
	}
	if err := utils.ValidateAmountCents(input.AmountCents); err != nil {
		return err
	}
	if input.Currency == "" {
		input.Currency = defaultCurrency
	}
	if err := utils.ValidateCurrency(input.Currency); err != nil {
		return err
	}
	if input.Urgency == "" {
		input.Urgency = entity.UrgencyMedium
	}
	return nil
}
