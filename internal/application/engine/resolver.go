package engine

import (
	"context"
	"fmt"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
	"go.uber.org/zap"
)

// Resolver selects the workflow rule that governs a request. Given
// (business, request type, amount) it picks the most specific active
// rule: the matching rule with the greatest non-nil lower bound, ties
// broken by lowest rule id.
type Resolver struct {
	rules  port.WorkflowRuleRepository
	logger *zap.Logger
}

// NewResolver creates a new Resolver
func NewResolver(rules port.WorkflowRuleRepository, logger *zap.Logger) *Resolver {
	return &Resolver{
		rules:  rules,
		logger: logger,
	}
}

// Resolve returns the applicable workflow rule or
// workflow.ErrNoApplicableWorkflow when the configuration has no rule
// for this request. Pure read, no side effects.
func (r *Resolver) Resolve(ctx context.Context, businessID, requestTypeID, amountCents int64) (*entity.WorkflowRule, error) {
	rules, err := r.rules.ListActive(ctx, businessID, requestTypeID)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	// Rules arrive ordered most specific first (min_amount descending,
	// nil bounds last, id ascending); the first match wins.
	for _, rule := range rules {
		if rule.Matches(amountCents) {
			return rule, nil
		}
	}

	r.logger.Warn("No applicable workflow rule",
		zap.Int64("business_id", businessID),
		zap.Int64("request_type_id", requestTypeID),
		zap.Int64("amount_cents", amountCents))

	return nil, workflow.ErrNoApplicableWorkflow
}
