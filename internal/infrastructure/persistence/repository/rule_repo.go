package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// WorkflowRuleRepository implements port.WorkflowRuleRepository
type WorkflowRuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowRuleRepository creates a new workflow rule repository
func NewWorkflowRuleRepository(db *sql.DB, logger *zap.Logger) port.WorkflowRuleRepository {
	return &WorkflowRuleRepository{
		db:     db,
		logger: logger,
	}
}

const ruleColumns = `
	id, business_id, request_type_id, min_amount_cents, max_amount_cents,
	auto_approve_threshold, required_approvers, is_active,
	created_at, updated_at
`

// Create inserts a new workflow rule
func (r *WorkflowRuleRepository) Create(ctx context.Context, rule *entity.WorkflowRule) error {
	query := `
		INSERT INTO approval_workflows (
			business_id, request_type_id, min_amount_cents, max_amount_cents,
			auto_approve_threshold, required_approvers, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		rule.BusinessID,
		rule.RequestTypeID,
		rule.MinAmountCents,
		rule.MaxAmountCents,
		rule.AutoApproveThreshold,
		rule.RequiredApprovers,
		rule.IsActive,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow rule", zap.Error(err))
		return fmt.Errorf("failed to create workflow rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rule.ID = id
	return nil
}

// GetByID retrieves a workflow rule by ID
func (r *WorkflowRuleRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM approval_workflows WHERE id = ?`

	rule, err := r.scanRule(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow rule by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow rule: %w", err)
	}
	return rule, nil
}

// ListActive returns all active rules for a business and request type.
// Ordered most-specific-first: highest min_amount_cents wins, NULL
// bounds sort last, ties break on the lower id.
func (r *WorkflowRuleRepository) ListActive(ctx context.Context, businessID, requestTypeID int64) ([]*entity.WorkflowRule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM approval_workflows
		WHERE business_id = ? AND request_type_id = ? AND is_active = 1
		ORDER BY min_amount_cents DESC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, businessID, requestTypeID)
	if err != nil {
		r.logger.Error("Failed to list workflow rules",
			zap.Int64("business_id", businessID),
			zap.Int64("request_type_id", requestTypeID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list workflow rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.WorkflowRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *WorkflowRuleRepository) scanRule(row rowScanner) (*entity.WorkflowRule, error) {
	var rule entity.WorkflowRule
	var minAmount, maxAmount, autoThreshold sql.NullInt64

	err := row.Scan(
		&rule.ID,
		&rule.BusinessID,
		&rule.RequestTypeID,
		&minAmount,
		&maxAmount,
		&autoThreshold,
		&rule.RequiredApprovers,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if minAmount.Valid {
		rule.MinAmountCents = &minAmount.Int64
	}
	if maxAmount.Valid {
		rule.MaxAmountCents = &maxAmount.Int64
	}
	if autoThreshold.Valid {
		rule.AutoApproveThreshold = &autoThreshold.Int64
	}
	return &rule, nil
}

// getExecutor returns appropriate executor based on context
func (r *WorkflowRuleRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.WorkflowRuleRepository = (*WorkflowRuleRepository)(nil)
