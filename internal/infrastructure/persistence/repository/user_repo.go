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

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `
		SELECT id, name, email, role, business_id, is_active, created_at
		FROM users
		WHERE id = ?
	`

	var user entity.User
	var businessID sql.NullInt64

	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&businessID,
		&user.IsActive,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if businessID.Valid {
		user.BusinessID = &businessID.Int64
	}
	return &user, nil
}

// ListActiveDirectors returns active directors eligible to approve for
// the business: those assigned to it plus global directors with no
// business. Ordered by id ascending for deterministic selection.
func (r *UserRepository) ListActiveDirectors(ctx context.Context, businessID int64) ([]*entity.User, error) {
	query := `
		SELECT id, name, email, role, business_id, is_active, created_at
		FROM users
		WHERE role = 'director' AND is_active = 1
			AND (business_id = ? OR business_id IS NULL)
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, businessID)
	if err != nil {
		r.logger.Error("Failed to list directors", zap.Int64("business_id", businessID), zap.Error(err))
		return nil, fmt.Errorf("failed to list directors: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var user entity.User
		var bid sql.NullInt64

		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Role,
			&bid,
			&user.IsActive,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		if bid.Valid {
			user.BusinessID = &bid.Int64
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *UserRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
