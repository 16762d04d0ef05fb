package entity

import (
	"time"

	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// ApprovalDecision represents one approver's decision slot on a
// request. Exactly one row exists per (request, approver); the status
// moves from pending to approved or rejected once, ever.
type ApprovalDecision struct {
	ID            int64                   `json:"id"`
	RequestID     int64                   `json:"request_id"`
	ApproverID    int64                   `json:"approver_id"`
	ApprovalOrder int                     `json:"approval_order"`
	IsRequired    bool                    `json:"is_required"`
	Status        workflow.DecisionStatus `json:"status"`
	DecidedAt     *time.Time              `json:"decided_at,omitempty"`
	Comments      string                  `json:"comments,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// DecisionSummary aggregates the decision rows of a request for the
// status aggregator. Counts cover required rows only.
type DecisionSummary struct {
	RequiredTotal int `json:"required_total"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
}

// PendingApproval is a decision row joined with its request, as shown
// on a director's pending queue
type PendingApproval struct {
	Decision ApprovalDecision `json:"decision"`
	Request  FinancialRequest `json:"request"`
}

// ApproverHistoryItem is a decided row joined with its request, as
// shown on a director's decision history
type ApproverHistoryItem struct {
	Decision ApprovalDecision `json:"decision"`
	Request  FinancialRequest `json:"request"`
}
