package database

import (
	"database/sql"
	"fmt"

	"github.com/homenest/booking-backend/internal/apperrors"
	"github.com/homenest/booking-backend/internal/models"
)

// AdminUserRepository handles database operations for the admin_users table
type AdminUserRepository struct {
	db DB
}

// NewAdminUserRepository creates a new AdminUserRepository
func NewAdminUserRepository(db DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetByEmail retrieves an admin user by email
func (r *AdminUserRepository) GetByEmail(email string) (*models.AdminUser, error) {
	user := &models.AdminUser{}
	err := r.db.QueryRow(`
		SELECT id, email, password_hash, name, created_at, updated_at
		FROM admin_users
		WHERE email = $1`,
		email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return user, nil
}
