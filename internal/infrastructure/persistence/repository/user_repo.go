package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/workflow"
	"github.com/garyjia/event-approval/internal/infrastructure/persistence/sqlite"
)

const userColumns = `id, email, display_name, role, department_id, active, created_at`

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create adds a user to the directory
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :display_name, :role, :department_id, :active, :created_at)
	`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if _, err := sqlite.ExecutorFor(ctx, r.db).NamedExecContext(ctx, query, user); err != nil {
		r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	var user entity.User
	err := sqlite.ExecutorFor(ctx, r.db).GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ListByRoles returns active users holding any of the roles
func (r *UserRepository) ListByRoles(ctx context.Context, roles ...workflow.Role) ([]*entity.User, error) {
	users := []*entity.User{}
	if len(roles) == 0 {
		return users, nil
	}

	query, args, err := sqlx.In(
		`SELECT `+userColumns+` FROM users WHERE active = 1 AND role IN (?) ORDER BY email`,
		roles,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	if err := sqlite.ExecutorFor(ctx, r.db).SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to list users by role", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
