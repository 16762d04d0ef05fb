package entity

import "time"

// Audit action constants
const (
	AuditCreate  = "create"
	AuditUpdate  = "update"
	AuditApprove = "approve"
	AuditReject  = "reject"
	AuditCancel  = "cancel"
	AuditProcess = "process"
)

// AuditEntry records a mutation against a workflow table. UserID is nil
// for system actions such as auto-approval. Old and new values are
// JSON snapshots.
type AuditEntry struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	TableName string    `json:"table_name"`
	RecordID  int64     `json:"record_id"`
	OldValues string    `json:"old_values,omitempty"`
	NewValues string    `json:"new_values,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
