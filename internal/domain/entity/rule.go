package entity

import "time"

// WorkflowRule maps a (business, request type, amount band) to an
// approval policy. Rules are configured by admins and read-only to the
// engine. Bounds are inclusive; a nil bound is open.
type WorkflowRule struct {
	ID                   int64     `json:"id"`
	BusinessID           int64     `json:"business_id"`
	RequestTypeID        int64     `json:"request_type_id"`
	MinAmountCents       *int64    `json:"min_amount_cents,omitempty"`
	MaxAmountCents       *int64    `json:"max_amount_cents,omitempty"`
	AutoApproveThreshold *int64    `json:"auto_approve_threshold,omitempty"`
	RequiredApprovers    int       `json:"required_approvers"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Matches returns true if the amount falls within the rule's band
func (r *WorkflowRule) Matches(amountCents int64) bool {
	if r.MinAmountCents != nil && amountCents < *r.MinAmountCents {
		return false
	}
	if r.MaxAmountCents != nil && amountCents > *r.MaxAmountCents {
		return false
	}
	return true
}

// AutoApproves returns true if the amount is at or below the rule's
// auto-approval threshold
func (r *WorkflowRule) AutoApproves(amountCents int64) bool {
	return r.AutoApproveThreshold != nil && amountCents <= *r.AutoApproveThreshold
}

// RequestType represents a category of spending request
type RequestType struct {
	ID       int64  `json:"id"`
	TypeName string `json:"type_name"`
	IsActive bool   `json:"is_active"`
}
