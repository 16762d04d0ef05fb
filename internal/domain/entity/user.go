package entity

import "time"

// User role constants
const (
	RoleAdmin      = "admin"
	RoleDirector   = "director"
	RoleAccountant = "accountant"
	RoleEmployee   = "employee"
)

// Urgency levels for financial requests
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// User represents an account in the system. BusinessID is nil for
// global users (floating directors eligible to approve for any
// business).
type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	BusinessID *int64    `json:"business_id,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
