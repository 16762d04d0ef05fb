package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, request_number, business_id, request_type_id, user_id,
	title, description, amount_cents, currency, urgency, status,
	rejection_reason, final_decision_at, final_decision_by,
	created_at, updated_at
`

// Create inserts a new financial request
func (r *RequestRepository) Create(ctx context.Context, req *entity.FinancialRequest) error {
	query := `
		INSERT INTO financial_requests (
			request_number, business_id, request_type_id, user_id,
			title, description, amount_cents, currency, urgency, status,
			rejection_reason, final_decision_at, final_decision_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		req.RequestNumber,
		req.BusinessID,
		req.RequestTypeID,
		req.UserID,
		req.Title,
		req.Description,
		req.AmountCents,
		req.Currency,
		req.Urgency,
		string(req.Status),
		req.RejectionReason,
		req.FinalDecisionAt,
		req.FinalDecisionBy,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID retrieves a financial request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.FinancialRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM financial_requests WHERE id = ?`

	req, err := r.scanRequest(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// UpdateStatusIf transitions a request between statuses with a guarded
// UPDATE. The WHERE clause on the current status makes concurrent
// finalization attempts race-safe: only one caller observes a changed
// row.
func (r *RequestRepository) UpdateStatusIf(ctx context.Context, id int64, from, to workflow.Status, decidedBy *int64, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE financial_requests
		SET status = ?, rejection_reason = ?, final_decision_at = ?,
			final_decision_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(to), reason, at, decidedBy, id, string(from))
	if err != nil {
		r.logger.Error("Failed to update request status",
			zap.Int64("id", id),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to update request status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// AdvanceStatusIf moves a request between fulfillment statuses. Unlike
// UpdateStatusIf it never touches rejection_reason, final_decision_at
// or final_decision_by, so the finalization record survives later
// transitions such as approved to processing.
func (r *RequestRepository) AdvanceStatusIf(ctx context.Context, id int64, from, to workflow.Status) (bool, error) {
	query := `
		UPDATE financial_requests
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, string(to), id, string(from))
	if err != nil {
		r.logger.Error("Failed to advance request status",
			zap.Int64("id", id),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to advance request status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// UpdateAmountIfPending changes the amount of a still-pending request
func (r *RequestRepository) UpdateAmountIfPending(ctx context.Context, id int64, amountCents int64) (bool, error) {
	query := `
		UPDATE financial_requests
		SET amount_cents = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, amountCents, id)
	if err != nil {
		r.logger.Error("Failed to update request amount", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update request amount: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// CountForBusinessMonth returns how many requests a business created in
// the given month, used for request number sequencing
func (r *RequestRepository) CountForBusinessMonth(ctx context.Context, businessID int64, year int, month time.Month) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM financial_requests
		WHERE business_id = ? AND strftime('%Y-%m', created_at) = ?
	`

	prefix := fmt.Sprintf("%04d-%02d", year, int(month))

	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, businessID, prefix).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count requests for month",
			zap.Int64("business_id", businessID),
			zap.String("month", prefix),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return count, nil
}

// ListByUser retrieves a user's own requests, newest first
func (r *RequestRepository) ListByUser(ctx context.Context, userID int64, filter port.RequestFilter) ([]*entity.FinancialRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM financial_requests WHERE user_id = ?`
	args := []interface{}{userID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, normalizeLimit(filter.Limit), filter.Offset)

	return r.queryRequests(ctx, query, args...)
}

// ListByFilter retrieves requests matching the filter, newest first
func (r *RequestRepository) ListByFilter(ctx context.Context, filter port.RequestFilter) ([]*entity.FinancialRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM financial_requests WHERE 1 = 1`
	args := []interface{}{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.BusinessID != nil {
		query += ` AND business_id = ?`
		args = append(args, *filter.BusinessID)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, normalizeLimit(filter.Limit), filter.Offset)

	return r.queryRequests(ctx, query, args...)
}

func (r *RequestRepository) queryRequests(ctx context.Context, query string, args ...interface{}) ([]*entity.FinancialRequest, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.FinancialRequest
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *RequestRepository) scanRequest(row rowScanner) (*entity.FinancialRequest, error) {
	var req entity.FinancialRequest
	var status string
	var description, rejectionReason sql.NullString
	var finalDecisionAt sql.NullTime
	var finalDecisionBy sql.NullInt64

	err := row.Scan(
		&req.ID,
		&req.RequestNumber,
		&req.BusinessID,
		&req.RequestTypeID,
		&req.UserID,
		&req.Title,
		&description,
		&req.AmountCents,
		&req.Currency,
		&req.Urgency,
		&status,
		&rejectionReason,
		&finalDecisionAt,
		&finalDecisionBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Status = workflow.Status(status)
	req.Description = description.String
	req.RejectionReason = rejectionReason.String
	if finalDecisionAt.Valid {
		req.FinalDecisionAt = &finalDecisionAt.Time
	}
	if finalDecisionBy.Valid {
		req.FinalDecisionBy = &finalDecisionBy.Int64
	}
	return &req, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

// getExecutor returns appropriate executor based on context
func (r *RequestRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
