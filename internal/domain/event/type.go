package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestNeedsApproval Type = "request.needs_approval"
	TypeRequestApproved      Type = "request.approved"
	TypeRequestRejected      Type = "request.rejected"
	TypeRequestAutoApproved  Type = "request.auto_approved"
	TypeRequestCancelled     Type = "request.cancelled"
	TypeDecisionMade         Type = "request.decision_made"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestNeedsApproval,
		TypeRequestApproved,
		TypeRequestRejected,
		TypeRequestAutoApproved,
		TypeRequestCancelled,
		TypeDecisionMade:
		return true
	default:
		return false
	}
}
