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

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append records an audit entry
func (r *AuditRepository) Append(ctx context.Context, e *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_logs (user_id, action, table_name, record_id, old_values, new_values)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		e.UserID,
		e.Action,
		e.TableName,
		e.RecordID,
		e.OldValues,
		e.NewValues,
	)
	if err != nil {
		r.logger.Error("Failed to append audit entry",
			zap.String("action", e.Action),
			zap.String("table", e.TableName),
			zap.Int64("record_id", e.RecordID),
			zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	e.ID = id
	return nil
}

// ListByRecord retrieves the audit trail of a record, oldest first
func (r *AuditRepository) ListByRecord(ctx context.Context, tableName string, recordID int64) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, user_id, action, table_name, record_id, old_values, new_values, created_at
		FROM audit_logs
		WHERE table_name = ? AND record_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, tableName, recordID)
	if err != nil {
		r.logger.Error("Failed to list audit entries",
			zap.String("table", tableName),
			zap.Int64("record_id", recordID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		var userID sql.NullInt64
		var oldValues, newValues sql.NullString

		err := rows.Scan(
			&e.ID,
			&userID,
			&e.Action,
			&e.TableName,
			&e.RecordID,
			&oldValues,
			&newValues,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if userID.Valid {
			e.UserID = &userID.Int64
		}
		e.OldValues = oldValues.String
		e.NewValues = newValues.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *AuditRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)
