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

// ========== Lock Methods ==========

const lockColumns = `id, created_at, updated_at, lock_id, lock_name, lock_mac,
	building_id, unit_number, lock_type, status, battery_level, gateway_id,
	firmware_version, last_seen_at, last_synced_at, metadata`

func scanLock(row interface{ Scan(...interface{}) error }) (*models.Lock, error) {
	lock := &models.Lock{}
	err := row.Scan(
		&lock.ID, &lock.CreatedAt, &lock.UpdatedAt, &lock.LockID, &lock.LockName,
		&lock.LockMAC, &lock.BuildingID, &lock.UnitNumber, &lock.LockType,
		&lock.Status, &lock.BatteryLevel, &lock.GatewayID,
		&lock.FirmwareVersion, &lock.LastSeenAt, &lock.LastSyncedAt, &lock.Metadata,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// CreateLock creates a new lock
func (s *PostgresStore) CreateLock(ctx context.Context, lock *models.Lock) error {
	if lock.ID == uuid.Nil {
		lock.ID = uuid.New()
	}

	now := time.Now()
	lock.CreatedAt = now
	lock.UpdatedAt = now

	query := `
		INSERT INTO locks (
			id, created_at, updated_at, lock_id, lock_name, lock_mac,
			building_id, unit_number, lock_type, status, battery_level,
			gateway_id, firmware_version, last_seen_at, last_synced_at, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := s.getDB().ExecContext(ctx, query,
		lock.ID, lock.CreatedAt, lock.UpdatedAt, lock.LockID, lock.LockName,
		lock.LockMAC, lock.BuildingID, lock.UnitNumber, lock.LockType,
		lock.Status, lock.BatteryLevel, lock.GatewayID,
		lock.FirmwareVersion, lock.LastSeenAt, lock.LastSyncedAt, lock.Metadata,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetLock gets a lock by ID
func (s *PostgresStore) GetLock(ctx context.Context, id uuid.UUID) (*models.Lock, error) {
	query := `SELECT ` + lockColumns + ` FROM locks WHERE id = $1`
	return scanLock(s.getDB().QueryRowContext(ctx, query, id))
}

// GetLockByVendorID gets a lock by the vendor-assigned device id
func (s *PostgresStore) GetLockByVendorID(ctx context.Context, lockID int64) (*models.Lock, error) {
	query := `SELECT ` + lockColumns + ` FROM locks WHERE lock_id = $1`
	return scanLock(s.getDB().QueryRowContext(ctx, query, lockID))
}

// UpdateLock updates a lock
func (s *PostgresStore) UpdateLock(ctx context.Context, lock *models.Lock) error {
	lock.UpdatedAt = time.Now()

	query := `
		UPDATE locks SET
			updated_at = $2, lock_id = $3, lock_name = $4, lock_mac = $5,
			building_id = $6, unit_number = $7, lock_type = $8, status = $9,
			battery_level = $10, gateway_id = $11, firmware_version = $12,
			last_seen_at = $13, last_synced_at = $14, metadata = $15
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		lock.ID, lock.UpdatedAt, lock.LockID, lock.LockName, lock.LockMAC,
		lock.BuildingID, lock.UnitNumber, lock.LockType, lock.Status,
		lock.BatteryLevel, lock.GatewayID, lock.FirmwareVersion,
		lock.LastSeenAt, lock.LastSyncedAt, lock.Metadata,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return checkAffected(result)
}

// DeleteLock deletes a lock. Credentials and schedules referencing the
// lock are left in place (no cascading delete).
func (s *PostgresStore) DeleteLock(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM locks WHERE id = $1", id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ListLocks lists locks with filters
func (s *PostgresStore) ListLocks(ctx context.Context, filters LockFilters, limit, offset int) ([]*models.Lock, int64, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += fmt.Sprintf(" AND (lock_name ILIKE $%d OR unit_number ILIKE $%d)", argCount, argCount)
		args = append(args, "%"+filters.Search+"%")
	}

	if filters.BuildingID != nil {
		argCount++
		where += fmt.Sprintf(" AND building_id = $%d", argCount)
		args = append(args, *filters.BuildingID)
	}

	if filters.GatewayID != nil {
		argCount++
		where += fmt.Sprintf(" AND gateway_id = $%d", argCount)
		args = append(args, *filters.GatewayID)
	}

	if filters.LockType != nil {
		argCount++
		where += fmt.Sprintf(" AND lock_type = $%d", argCount)
		args = append(args, *filters.LockType)
	}

	if filters.Status != nil {
		argCount++
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filters.Status)
	}

	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM locks "+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	argCount++
	query := fmt.Sprintf("SELECT %s FROM locks %s ORDER BY created_at DESC LIMIT $%d", lockColumns, where, argCount)
	args = append(args, limit)

	argCount++
	query += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var locks []*models.Lock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, 0, err
		}
		locks = append(locks, lock)
	}

	return locks, count, nil
}
