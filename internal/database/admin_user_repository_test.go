package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/homenest/booking-backend/internal/apperrors"
)

func TestAdminUserGetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAdminUserRepository(&mockDatabase{db: db})

	t.Run("Success", func(t *testing.T) {
		userID := uuid.New().String()
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM admin_users WHERE email`).
			WithArgs("ops@homenest.in").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "password_hash", "name", "created_at", "updated_at",
			}).AddRow(userID, "ops@homenest.in", "$2a$12$hash", "Operations", now, now))

		user, err := repo.GetByEmail("ops@homenest.in")
		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, "Operations", user.Name)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM admin_users WHERE email`).
			WithArgs("nobody@homenest.in").
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByEmail("nobody@homenest.in")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, user)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM admin_users WHERE email`).
			WithArgs("ops@homenest.in").
			WillReturnError(fmt.Errorf("database error"))

		user, err := repo.GetByEmail("ops@homenest.in")
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "failed to get admin user")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
