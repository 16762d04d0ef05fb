package workflow

import "errors"

var (
	// ErrNoApplicableWorkflow is returned when no active workflow rule
	// matches a request's business, type and amount
	ErrNoApplicableWorkflow = errors.New("no applicable approval workflow")

	// ErrNoEligibleApprovers is returned when the director pool for a
	// business is empty
	ErrNoEligibleApprovers = errors.New("no eligible approvers")

	// ErrRequestNotFound is returned when a request does not exist or is
	// not visible to the actor
	ErrRequestNotFound = errors.New("request not found")

	// ErrRequestAlreadyFinalized is returned when an operation requires a
	// pending request but the request has already left pending
	ErrRequestAlreadyFinalized = errors.New("request already finalized")

	// ErrDecisionAlreadyMade is returned when an approver submits a second
	// decision on the same request
	ErrDecisionAlreadyMade = errors.New("decision already made")

	// ErrNotAnApprover is returned when the actor holds no decision row
	// for the request
	ErrNotAnApprover = errors.New("not an approver for this request")

	// ErrAccessDenied is returned when the actor lacks permission for the
	// operation
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidTransition is returned when a status change violates the
	// request lifecycle
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidDecision is returned when the submitted decision value is
	// neither approved nor rejected
	ErrInvalidDecision = errors.New("invalid decision value")
)
