package port

import (
	"context"
	"time"

	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// RequestFilter narrows request list queries
type RequestFilter struct {
	Status     workflow.Status
	BusinessID *int64
	Limit      int
	Offset     int
}

// RequestRepository defines persistence operations for FinancialRequest
type RequestRepository interface {
	Create(ctx context.Context, req *entity.FinancialRequest) error

	GetByID(ctx context.Context, id int64) (*entity.FinancialRequest, error)

	// UpdateStatusIf transitions the request from one status to another
	// with a guarded UPDATE. Returns false when the request was not in
	// the expected status, which callers treat as a lost race, never as
	// a storage error.
	UpdateStatusIf(ctx context.Context, id int64, from, to workflow.Status, decidedBy *int64, reason string, at time.Time) (bool, error)

	// AdvanceStatusIf moves the request between fulfillment statuses
	// with a guarded UPDATE, leaving the finalization columns untouched.
	// Finalization itself always goes through UpdateStatusIf.
	AdvanceStatusIf(ctx context.Context, id int64, from, to workflow.Status) (bool, error)

	// UpdateAmountIfPending changes the amount of a still-pending request
	UpdateAmountIfPending(ctx context.Context, id int64, amountCents int64) (bool, error)

	// CountForBusinessMonth returns how many requests a business created
	// in the given month, used for request number sequencing
	CountForBusinessMonth(ctx context.Context, businessID int64, year int, month time.Month) (int, error)

	ListByUser(ctx context.Context, userID int64, filter RequestFilter) ([]*entity.FinancialRequest, error)
	ListByFilter(ctx context.Context, filter RequestFilter) ([]*entity.FinancialRequest, error)
}

// WorkflowRuleRepository defines persistence operations for WorkflowRule
type WorkflowRuleRepository interface {
	Create(ctx context.Context, rule *entity.WorkflowRule) error
	GetByID(ctx context.Context, id int64) (*entity.WorkflowRule, error)

	// ListActive returns all active rules for a business and request
	// type, ordered by min_amount descending then id ascending
	ListActive(ctx context.Context, businessID, requestTypeID int64) ([]*entity.WorkflowRule, error)
}

// DecisionRepository defines persistence operations for ApprovalDecision
type DecisionRepository interface {
	// CreateBatch inserts the pending decision rows for a freshly
	// resolved workflow
	CreateBatch(ctx context.Context, decisions []*entity.ApprovalDecision) error

	GetByRequestAndApprover(ctx context.Context, requestID, approverID int64) (*entity.ApprovalDecision, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.ApprovalDecision, error)

	// DecideIfPending records an approver's decision with a guarded
	// UPDATE. Returns false when the row was missing or already decided.
	DecideIfPending(ctx context.Context, requestID, approverID int64, status workflow.DecisionStatus, comments string, at time.Time) (bool, error)

	// Summarize aggregates required decision rows for the status
	// aggregator
	Summarize(ctx context.Context, requestID int64) (*entity.DecisionSummary, error)

	// RejectPending force-rejects all pending rows of a request
	// (administrative override during cancellation). Returns the number
	// of rows flipped.
	RejectPending(ctx context.Context, requestID int64, at time.Time) (int, error)

	// DeletePending removes pending rows so the workflow can be rebuilt
	// after an amount change. Decided rows are never deleted.
	DeletePending(ctx context.Context, requestID int64) (int, error)

	// ListPendingByApprover returns a director's queue of decisions
	// awaiting action, joined with their still-pending requests
	ListPendingByApprover(ctx context.Context, approverID int64, limit, offset int) ([]*entity.PendingApproval, error)

	// ListDecidedByApprover returns a director's decided rows joined
	// with their requests, most recent decision first
	ListDecidedByApprover(ctx context.Context, approverID int64, limit, offset int) ([]*entity.ApproverHistoryItem, error)

	// ListPendingApproverIDs returns the approvers of a request whose
	// decision rows are still pending
	ListPendingApproverIDs(ctx context.Context, requestID int64) ([]int64, error)

	// StatsByApprover aggregates a director's decided rows since the
	// given time: totals, approved/rejected split and average hours from
	// the row's creation to the decision
	StatsByApprover(ctx context.Context, approverID int64, since time.Time) (*ApproverStats, error)

	// CountPendingByApprover returns how many decisions currently await
	// the approver on pending requests
	CountPendingByApprover(ctx context.Context, approverID int64) (int, error)
}

// ApproverStats aggregates a director's decision history
type ApproverStats struct {
	TotalDecisions   int     `json:"total_decisions"`
	ApprovedCount    int     `json:"approved_count"`
	RejectedCount    int     `json:"rejected_count"`
	PendingCount     int     `json:"pending_count"`
	ApprovalRate     float64 `json:"approval_rate"`
	AvgDecisionHours float64 `json:"avg_decision_hours"`
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)

	// ListActiveDirectors returns active directors eligible to approve
	// for the business (business-scoped plus global), ordered by id
	// ascending
	ListActiveDirectors(ctx context.Context, businessID int64) ([]*entity.User, error)
}

// BusinessRepository defines persistence operations for Business
type BusinessRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Business, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error

	// MarkAllRead flags every unread notification of the user as read
	// and returns how many rows changed
	MarkAllRead(ctx context.Context, userID int64) (int, error)

	UnreadCount(ctx context.Context, userID int64) (int, error)
}

// AuditRepository defines persistence operations for AuditEntry
type AuditRepository interface {
	Append(ctx context.Context, e *entity.AuditEntry) error
	ListByRecord(ctx context.Context, tableName string, recordID int64) ([]*entity.AuditEntry, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
