package workflow

// Status represents the lifecycle state of a financial request
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
	StatusProcessing Status = "processing"
)

var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusApproved:   true,
	StatusRejected:   true,
	StatusCancelled:  true,
	StatusProcessing: true,
}

// allowedTransitions encodes the monotonic request lifecycle: a request
// leaves pending exactly once, and only approved requests may advance
// to accountant processing.
var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusProcessing},
}

// IsValid returns true if the status is a valid request status
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no further transition is allowed from the status
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0 && validStatuses[s]
}

// IsFinalized returns true once the request has left pending
func (s Status) IsFinalized() bool {
	return validStatuses[s] && s != StatusPending
}

// CanTransition returns true if the transition from s to target is allowed
func (s Status) CanTransition(target Status) bool {
	for _, t := range allowedTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// DecisionStatus represents the state of a single approver's decision
type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "pending"
	DecisionApproved DecisionStatus = "approved"
	DecisionRejected DecisionStatus = "rejected"
)

// IsDecided returns true once the approver has acted
func (d DecisionStatus) IsDecided() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// IsValidDecision reports whether d is an actionable approver decision.
// Pending is a storage state, not something an approver can submit.
func (d DecisionStatus) IsValidDecision() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// String returns the string representation of the decision status
func (d DecisionStatus) String() string {
	return string(d)
}
