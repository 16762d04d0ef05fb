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

// BusinessRepository implements port.BusinessRepository
type BusinessRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *sql.DB, logger *zap.Logger) port.BusinessRepository {
	return &BusinessRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a business by ID
func (r *BusinessRepository) GetByID(ctx context.Context, id int64) (*entity.Business, error) {
	query := `SELECT id, name, code FROM businesses WHERE id = ?`

	var b entity.Business
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Name, &b.Code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get business by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return &b, nil
}

// getExecutor returns appropriate executor based on context
func (r *BusinessRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.BusinessRepository = (*BusinessRepository)(nil)
