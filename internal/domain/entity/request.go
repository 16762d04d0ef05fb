package entity

import (
	"time"

	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// FinancialRequest represents an employee spending request moving
// through the approval workflow
type FinancialRequest struct {
	ID              int64           `json:"id"`
	RequestNumber   string          `json:"request_number"`
	BusinessID      int64           `json:"business_id"`
	RequestTypeID   int64           `json:"request_type_id"`
	UserID          int64           `json:"user_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	AmountCents     int64           `json:"amount_cents"`
	Currency        string          `json:"currency"`
	Urgency         string          `json:"urgency"`
	Status          workflow.Status `json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	// FinalDecisionBy is nil for system auto-approval
	FinalDecisionAt *time.Time `json:"final_decision_at,omitempty"`
	FinalDecisionBy *int64     `json:"final_decision_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Business represents a tenant the workflow is scoped to
type Business struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}
