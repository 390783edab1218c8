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

// ========== Credential Methods ==========

const credentialColumns = `id, created_at, updated_at, name, user_id, lock_id,
	credential_type, credential_value, status, valid_from, valid_until,
	usage_count, last_used_at`

func scanCredential(row interface{ Scan(...interface{}) error }) (*models.Credential, error) {
	credential := &models.Credential{}
	err := row.Scan(
		&credential.ID, &credential.CreatedAt, &credential.UpdatedAt,
		&credential.Name, &credential.UserID, &credential.LockID,
		&credential.CredentialType, &credential.CredentialValue,
		&credential.Status, &credential.ValidFrom, &credential.ValidUntil,
		&credential.UsageCount, &credential.LastUsedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return credential, nil
}

// CreateCredential creates a new credential
func (s *PostgresStore) CreateCredential(ctx context.Context, credential *models.Credential) error {
	if credential.ID == uuid.Nil {
		credential.ID = uuid.New()
	}

	now := time.Now()
	credential.CreatedAt = now
	credential.UpdatedAt = now

	query := `
		INSERT INTO credentials (
			id, created_at, updated_at, name, user_id, lock_id, credential_type,
			credential_value, status, valid_from, valid_until, usage_count, last_used_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.getDB().ExecContext(ctx, query,
		credential.ID, credential.CreatedAt, credential.UpdatedAt, credential.Name,
		credential.UserID, credential.LockID, credential.CredentialType,
		credential.CredentialValue, credential.Status, credential.ValidFrom,
		credential.ValidUntil, credential.UsageCount, credential.LastUsedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetCredential gets a credential by ID
func (s *PostgresStore) GetCredential(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`
	return scanCredential(s.getDB().QueryRowContext(ctx, query, id))
}

// UpdateCredential updates a credential
func (s *PostgresStore) UpdateCredential(ctx context.Context, credential *models.Credential) error {
	credential.UpdatedAt = time.Now()

	query := `
		UPDATE credentials SET
			updated_at = $2, name = $3, user_id = $4, lock_id = $5,
			credential_type = $6, credential_value = $7, status = $8,
			valid_from = $9, valid_until = $10, usage_count = $11, last_used_at = $12
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		credential.ID, credential.UpdatedAt, credential.Name, credential.UserID,
		credential.LockID, credential.CredentialType, credential.CredentialValue,
		credential.Status, credential.ValidFrom, credential.ValidUntil,
		credential.UsageCount, credential.LastUsedAt,
	)

	if err != nil {
		return err
	}

	return checkAffected(result)
}

// DeleteCredential deletes a credential
func (s *PostgresStore) DeleteCredential(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM credentials WHERE id = $1", id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// IncrementCredentialUsage bumps the usage counter after a granted use
func (s *PostgresStore) IncrementCredentialUsage(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	query := `
		UPDATE credentials SET
			usage_count = usage_count + 1, last_used_at = $2, updated_at = $2
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query, id, usedAt)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ListCredentials lists credentials with filters
func (s *PostgresStore) ListCredentials(ctx context.Context, filters CredentialFilters, limit, offset int) ([]*models.Credential, int64, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += fmt.Sprintf(" AND name ILIKE $%d", argCount)
		args = append(args, "%"+filters.Search+"%")
	}

	if filters.UserID != nil {
		argCount++
		where += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, *filters.UserID)
	}

	if filters.LockID != nil {
		argCount++
		where += fmt.Sprintf(" AND lock_id = $%d", argCount)
		args = append(args, *filters.LockID)
	}

	if filters.CredentialType != nil {
		argCount++
		where += fmt.Sprintf(" AND credential_type = $%d", argCount)
		args = append(args, *filters.CredentialType)
	}

	if filters.Status != nil {
		argCount++
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filters.Status)
	}

	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM credentials "+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	argCount++
	query := fmt.Sprintf("SELECT %s FROM credentials %s ORDER BY created_at DESC LIMIT $%d", credentialColumns, where, argCount)
	args = append(args, limit)

	argCount++
	query += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var credentials []*models.Credential
	for rows.Next() {
		credential, err := scanCredential(rows)
		if err != nil {
			return nil, 0, err
		}
		credentials = append(credentials, credential)
	}

	return credentials, count, nil
}
