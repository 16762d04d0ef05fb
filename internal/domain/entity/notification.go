package entity

import "time"

// NotificationEvent identifies the workflow transition that triggered a
// notification
type NotificationEvent string

const (
	EventNeedsApproval NotificationEvent = "needs_approval"
	EventApproved      NotificationEvent = "approved"
	EventRejected      NotificationEvent = "rejected"
	EventAutoApproved  NotificationEvent = "auto_approved"
	EventCancelled     NotificationEvent = "cancelled"
	EventDecisionMade  NotificationEvent = "decision_made"
)

// Notification is an in-app notification row for a user
type Notification struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"user_id"`
	Type      NotificationEvent `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	RequestID *int64            `json:"request_id,omitempty"`
	IsRead    bool              `json:"is_read"`
	CreatedAt time.Time         `json:"created_at"`
}
