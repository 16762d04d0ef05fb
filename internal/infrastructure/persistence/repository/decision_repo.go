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

// DecisionRepository implements port.DecisionRepository
type DecisionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *sql.DB, logger *zap.Logger) port.DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

const decisionColumns = `
	id, request_id, approver_id, approval_order, is_required,
	status, decided_at, comments, created_at, updated_at
`

// CreateBatch inserts the pending decision rows for a freshly resolved
// workflow
func (r *DecisionRepository) CreateBatch(ctx context.Context, decisions []*entity.ApprovalDecision) error {
	query := `
		INSERT INTO request_approvals (
			request_id, approver_id, approval_order, is_required, status, comments
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	for _, d := range decisions {
		result, err := r.getExecutor(ctx).ExecContext(ctx, query,
			d.RequestID,
			d.ApproverID,
			d.ApprovalOrder,
			d.IsRequired,
			string(d.Status),
			d.Comments,
		)
		if err != nil {
			r.logger.Error("Failed to create decision row",
				zap.Int64("request_id", d.RequestID),
				zap.Int64("approver_id", d.ApproverID),
				zap.Error(err))
			return fmt.Errorf("failed to create decision row: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		d.ID = id
	}
	return nil
}

// GetByRequestAndApprover retrieves the decision row an approver holds
// on a request
func (r *DecisionRepository) GetByRequestAndApprover(ctx context.Context, requestID, approverID int64) (*entity.ApprovalDecision, error) {
	query := `SELECT ` + decisionColumns + `
		FROM request_approvals
		WHERE request_id = ? AND approver_id = ?
	`

	d, err := r.scanDecision(r.getExecutor(ctx).QueryRowContext(ctx, query, requestID, approverID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get decision",
			zap.Int64("request_id", requestID),
			zap.Int64("approver_id", approverID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return d, nil
}

// ListByRequest retrieves all decision rows of a request in approval
// order
func (r *DecisionRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.ApprovalDecision, error) {
	query := `SELECT ` + decisionColumns + `
		FROM request_approvals
		WHERE request_id = ?
		ORDER BY approval_order ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list decisions", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*entity.ApprovalDecision
	for rows.Next() {
		d, err := r.scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// DecideIfPending records an approver's decision with a guarded UPDATE.
// The WHERE clause on status = 'pending' makes the row a
// decide-exactly-once slot: a second decision attempt changes nothing.
func (r *DecisionRepository) DecideIfPending(ctx context.Context, requestID, approverID int64, status workflow.DecisionStatus, comments string, at time.Time) (bool, error) {
	query := `
		UPDATE request_approvals
		SET status = ?, comments = ?, decided_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE request_id = ? AND approver_id = ? AND status = 'pending'
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(status), comments, at, requestID, approverID)
	if err != nil {
		r.logger.Error("Failed to record decision",
			zap.Int64("request_id", requestID),
			zap.Int64("approver_id", approverID),
			zap.Error(err))
		return false, fmt.Errorf("failed to record decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// Summarize aggregates the required decision rows of a request
func (r *DecisionRepository) Summarize(ctx context.Context, requestID int64) (*entity.DecisionSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0)
		FROM request_approvals
		WHERE request_id = ? AND is_required = 1
	`

	var summary entity.DecisionSummary
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, requestID).Scan(
		&summary.RequiredTotal,
		&summary.Approved,
		&summary.Rejected,
	)
	if err != nil {
		r.logger.Error("Failed to summarize decisions", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to summarize decisions: %w", err)
	}
	return &summary, nil
}

// RejectPending force-rejects all pending rows of a request during
// cancellation. Returns the number of rows flipped.
func (r *DecisionRepository) RejectPending(ctx context.Context, requestID int64, at time.Time) (int, error) {
	query := `
		UPDATE request_approvals
		SET status = 'rejected', decided_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE request_id = ? AND status = 'pending'
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, at, requestID)
	if err != nil {
		r.logger.Error("Failed to reject pending decisions", zap.Int64("request_id", requestID), zap.Error(err))
		return 0, fmt.Errorf("failed to reject pending decisions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// DeletePending removes pending rows so the workflow can be rebuilt
// after an amount change. Decided rows are never deleted.
func (r *DecisionRepository) DeletePending(ctx context.Context, requestID int64) (int, error) {
	query := `DELETE FROM request_approvals WHERE request_id = ? AND status = 'pending'`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to delete pending decisions", zap.Int64("request_id", requestID), zap.Error(err))
		return 0, fmt.Errorf("failed to delete pending decisions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// joinedColumns is the projection shared by the queue and history
// queries: the decision row followed by its request.
const joinedColumns = `
	ra.id, ra.request_id, ra.approver_id, ra.approval_order, ra.is_required,
	ra.status, ra.decided_at, ra.comments, ra.created_at, ra.updated_at,
	fr.id, fr.request_number, fr.business_id, fr.request_type_id, fr.user_id,
	fr.title, fr.description, fr.amount_cents, fr.currency, fr.urgency, fr.status,
	fr.rejection_reason, fr.final_decision_at, fr.final_decision_by,
	fr.created_at, fr.updated_at`

// ListPendingByApprover returns a director's queue of decisions
// awaiting action on still-pending requests, oldest request first
func (r *DecisionRepository) ListPendingByApprover(ctx context.Context, approverID int64, limit, offset int) ([]*entity.PendingApproval, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM request_approvals ra
		JOIN financial_requests fr ON fr.id = ra.request_id
		WHERE ra.approver_id = ? AND ra.status = 'pending' AND fr.status = 'pending'
		ORDER BY fr.created_at ASC
		LIMIT ? OFFSET ?
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, approverID, normalizeLimit(limit), offset)
	if err != nil {
		r.logger.Error("Failed to list pending approvals", zap.Int64("approver_id", approverID), zap.Error(err))
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	defer rows.Close()

	var pending []*entity.PendingApproval
	for rows.Next() {
		d, req, err := scanDecisionWithRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending approval: %w", err)
		}
		pending = append(pending, &entity.PendingApproval{Decision: d, Request: req})
	}
	return pending, rows.Err()
}

// ListDecidedByApprover returns a director's decision history, most
// recent decision first
func (r *DecisionRepository) ListDecidedByApprover(ctx context.Context, approverID int64, limit, offset int) ([]*entity.ApproverHistoryItem, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM request_approvals ra
		JOIN financial_requests fr ON fr.id = ra.request_id
		WHERE ra.approver_id = ? AND ra.status != 'pending'
		ORDER BY ra.decided_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, approverID, normalizeLimit(limit), offset)
	if err != nil {
		r.logger.Error("Failed to list approver history", zap.Int64("approver_id", approverID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approver history: %w", err)
	}
	defer rows.Close()

	var history []*entity.ApproverHistoryItem
	for rows.Next() {
		d, req, err := scanDecisionWithRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history item: %w", err)
		}
		history = append(history, &entity.ApproverHistoryItem{Decision: d, Request: req})
	}
	return history, rows.Err()
}

// scanDecisionWithRequest scans one joined decision+request row
func scanDecisionWithRequest(rows *sql.Rows) (entity.ApprovalDecision, entity.FinancialRequest, error) {
	var d entity.ApprovalDecision
	var req entity.FinancialRequest
	var dStatus, rStatus string
	var decidedAt, finalDecisionAt sql.NullTime
	var dComments, rDescription, rRejectionReason sql.NullString
	var finalDecisionBy sql.NullInt64

	err := rows.Scan(
		&d.ID,
		&d.RequestID,
		&d.ApproverID,
		&d.ApprovalOrder,
		&d.IsRequired,
		&dStatus,
		&decidedAt,
		&dComments,
		&d.CreatedAt,
		&d.UpdatedAt,
		&req.ID,
		&req.RequestNumber,
		&req.BusinessID,
		&req.RequestTypeID,
		&req.UserID,
		&req.Title,
		&rDescription,
		&req.AmountCents,
		&req.Currency,
		&req.Urgency,
		&rStatus,
		&rRejectionReason,
		&finalDecisionAt,
		&finalDecisionBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return d, req, err
	}

	d.Status = workflow.DecisionStatus(dStatus)
	d.Comments = dComments.String
	if decidedAt.Valid {
		d.DecidedAt = &decidedAt.Time
	}
	req.Status = workflow.Status(rStatus)
	req.Description = rDescription.String
	req.RejectionReason = rRejectionReason.String
	if finalDecisionAt.Valid {
		req.FinalDecisionAt = &finalDecisionAt.Time
	}
	if finalDecisionBy.Valid {
		req.FinalDecisionBy = &finalDecisionBy.Int64
	}
	return d, req, nil
}

// ListPendingApproverIDs returns the approvers of a request whose
// decision rows are still pending, in approval order
func (r *DecisionRepository) ListPendingApproverIDs(ctx context.Context, requestID int64) ([]int64, error) {
	query := `
		SELECT approver_id
		FROM request_approvals
		WHERE request_id = ? AND status = 'pending'
		ORDER BY approval_order ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list pending approver IDs", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list pending approver ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan approver id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StatsByApprover aggregates a director's decided rows since the given
// time. Average decision hours run from the row's creation (when the
// approval was requested) to the decision.
func (r *DecisionRepository) StatsByApprover(ctx context.Context, approverID int64, since time.Time) (*port.ApproverStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG((julianday(decided_at) - julianday(created_at)) * 24), 0)
		FROM request_approvals
		WHERE approver_id = ? AND status != 'pending' AND decided_at >= ?
	`

	var stats port.ApproverStats
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, approverID, since).Scan(
		&stats.TotalDecisions,
		&stats.ApprovedCount,
		&stats.RejectedCount,
		&stats.AvgDecisionHours,
	)
	if err != nil {
		r.logger.Error("Failed to aggregate approver stats", zap.Int64("approver_id", approverID), zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate approver stats: %w", err)
	}
	return &stats, nil
}

// CountPendingByApprover returns how many decisions currently await the
// approver on pending requests
func (r *DecisionRepository) CountPendingByApprover(ctx context.Context, approverID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM request_approvals ra
		JOIN financial_requests fr ON fr.id = ra.request_id
		WHERE ra.approver_id = ? AND ra.status = 'pending' AND fr.status = 'pending'
	`

	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, approverID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count pending approvals", zap.Int64("approver_id", approverID), zap.Error(err))
		return 0, fmt.Errorf("failed to count pending approvals: %w", err)
	}
	return count, nil
}

func (r *DecisionRepository) scanDecision(row rowScanner) (*entity.ApprovalDecision, error) {
	var d entity.ApprovalDecision
	var status string
	var decidedAt sql.NullTime
	var comments sql.NullString

	err := row.Scan(
		&d.ID,
		&d.RequestID,
		&d.ApproverID,
		&d.ApprovalOrder,
		&d.IsRequired,
		&status,
		&decidedAt,
		&comments,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Status = workflow.DecisionStatus(status)
	d.Comments = comments.String
	if decidedAt.Valid {
		d.DecidedAt = &decidedAt.Time
	}
	return &d, nil
}

// getExecutor returns appropriate executor based on context
func (r *DecisionRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.DecisionRepository = (*DecisionRepository)(nil)
