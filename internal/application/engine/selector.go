package engine

import (
	"context"
	"fmt"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
	"go.uber.org/zap"
)

// Selector picks the approver set for a resolved workflow. The pool is
// every active director scoped to the business plus global directors,
// ordered by ascending user id so the same pool state always yields the
// same ordered list.
type Selector struct {
	users  port.UserRepository
	logger *zap.Logger
}

// NewSelector creates a new Selector
func NewSelector(users port.UserRepository, logger *zap.Logger) *Selector {
	return &Selector{
		users:  users,
		logger: logger,
	}
}

// SelectApprovers returns the ordered approvers for the rule, truncated
// to min(rule.RequiredApprovers, available). An empty pool is a
// configuration error (workflow.ErrNoEligibleApprovers) and must abort
// request creation.
func (s *Selector) SelectApprovers(ctx context.Context, rule *entity.WorkflowRule, businessID int64) ([]*entity.User, error) {
	directors, err := s.users.ListActiveDirectors(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list directors: %w", err)
	}

	if len(directors) == 0 {
		s.logger.Warn("No eligible approvers for business",
			zap.Int64("business_id", businessID),
			zap.Int64("rule_id", rule.ID))
		return nil, workflow.ErrNoEligibleApprovers
	}

	n := rule.RequiredApprovers
	if n > len(directors) {
		n = len(directors)
	}

	return directors[:n], nil
}
