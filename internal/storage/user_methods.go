package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lockmaster/lockmaster-server/internal/models"
)

// ========== User Methods ==========

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (
			id, created_at, updated_at, email, full_name, phone, password_hash,
			apartment_unit, building_id, access_level, status, last_login_at, settings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, user.Email, user.FullName,
		user.Phone, user.PasswordHash, user.ApartmentUnit, user.BuildingID,
		user.AccessLevel, user.Status, user.LastLoginAt, user.Settings,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

const userColumns = `id, created_at, updated_at, email, full_name, phone, password_hash,
	apartment_unit, building_id, access_level, status, last_login_at, settings`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.FullName,
		&user.Phone, &user.PasswordHash, &user.ApartmentUnit, &user.BuildingID,
		&user.AccessLevel, &user.Status, &user.LastLoginAt, &user.Settings,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser gets a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.getDB().QueryRowContext(ctx, query, id))
}

// GetUserByEmail gets a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(s.getDB().QueryRowContext(ctx, query, email))
}

// UpdateUser updates a user
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users SET
			updated_at = $2, email = $3, full_name = $4, phone = $5,
			password_hash = $6, apartment_unit = $7, building_id = $8,
			access_level = $9, status = $10, last_login_at = $11, settings = $12
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		user.ID, user.UpdatedAt, user.Email, user.FullName, user.Phone,
		user.PasswordHash, user.ApartmentUnit, user.BuildingID,
		user.AccessLevel, user.Status, user.LastLoginAt, user.Settings,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return checkAffected(result)
}

// DeleteUser deletes a user. Credentials and schedules referencing the
// user are left in place (no cascading delete).
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ListUsers lists users with filters
func (s *PostgresStore) ListUsers(ctx context.Context, filters UserFilters, limit, offset int) ([]*models.User, int64, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += fmt.Sprintf(" AND (full_name ILIKE $%d OR email ILIKE $%d OR apartment_unit ILIKE $%d)",
			argCount, argCount, argCount)
		args = append(args, "%"+filters.Search+"%")
	}

	if filters.BuildingID != nil {
		argCount++
		where += fmt.Sprintf(" AND building_id = $%d", argCount)
		args = append(args, *filters.BuildingID)
	}

	if filters.AccessLevel != nil {
		argCount++
		where += fmt.Sprintf(" AND access_level = $%d", argCount)
		args = append(args, *filters.AccessLevel)
	}

	if filters.Status != nil {
		argCount++
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filters.Status)
	}

	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM users "+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	argCount++
	query := fmt.Sprintf("SELECT %s FROM users %s ORDER BY created_at DESC LIMIT $%d", userColumns, where, argCount)
	args = append(args, limit)

	argCount++
	query += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, count, nil
}

// checkAffected maps a zero-row update/delete to ErrNotFound
func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
