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

// ========== Access Schedule Methods ==========

const scheduleColumns = `id, created_at, updated_at, name, user_id, lock_id,
	credential_id, schedule_type, start_date, end_date, days_of_week,
	time_slots, max_uses, use_count, status`

func scanSchedule(row interface{ Scan(...interface{}) error }) (*models.AccessSchedule, error) {
	schedule := &models.AccessSchedule{}
	err := row.Scan(
		&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt, &schedule.Name,
		&schedule.UserID, &schedule.LockID, &schedule.CredentialID,
		&schedule.ScheduleType, &schedule.StartDate, &schedule.EndDate,
		&schedule.DaysOfWeek, &schedule.TimeSlots, &schedule.MaxUses,
		&schedule.UseCount, &schedule.Status,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// CreateAccessSchedule creates a new access schedule
func (s *PostgresStore) CreateAccessSchedule(ctx context.Context, schedule *models.AccessSchedule) error {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}

	now := time.Now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	query := `
		INSERT INTO access_schedules (
			id, created_at, updated_at, name, user_id, lock_id, credential_id,
			schedule_type, start_date, end_date, days_of_week, time_slots,
			max_uses, use_count, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.getDB().ExecContext(ctx, query,
		schedule.ID, schedule.CreatedAt, schedule.UpdatedAt, schedule.Name,
		schedule.UserID, schedule.LockID, schedule.CredentialID,
		schedule.ScheduleType, schedule.StartDate, schedule.EndDate,
		schedule.DaysOfWeek, schedule.TimeSlots, schedule.MaxUses,
		schedule.UseCount, schedule.Status,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetAccessSchedule gets an access schedule by ID
func (s *PostgresStore) GetAccessSchedule(ctx context.Context, id uuid.UUID) (*models.AccessSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM access_schedules WHERE id = $1`
	return scanSchedule(s.getDB().QueryRowContext(ctx, query, id))
}

// UpdateAccessSchedule updates an access schedule
func (s *PostgresStore) UpdateAccessSchedule(ctx context.Context, schedule *models.AccessSchedule) error {
	schedule.UpdatedAt = time.Now()

	query := `
		UPDATE access_schedules SET
			updated_at = $2, name = $3, user_id = $4, lock_id = $5,
			credential_id = $6, schedule_type = $7, start_date = $8,
			end_date = $9, days_of_week = $10, time_slots = $11,
			max_uses = $12, use_count = $13, status = $14
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		schedule.ID, schedule.UpdatedAt, schedule.Name, schedule.UserID,
		schedule.LockID, schedule.CredentialID, schedule.ScheduleType,
		schedule.StartDate, schedule.EndDate, schedule.DaysOfWeek,
		schedule.TimeSlots, schedule.MaxUses, schedule.UseCount, schedule.Status,
	)

	if err != nil {
		return err
	}

	return checkAffected(result)
}

// DeleteAccessSchedule deletes an access schedule
func (s *PostgresStore) DeleteAccessSchedule(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM access_schedules WHERE id = $1", id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// IncrementScheduleUse bumps the use counter after a granted use
func (s *PostgresStore) IncrementScheduleUse(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE access_schedules SET
			use_count = use_count + 1, updated_at = $2
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ListSchedulesForUserLock lists all schedules bound to a user and lock,
// regardless of status. Used by the access decision path.
func (s *PostgresStore) ListSchedulesForUserLock(ctx context.Context, userID, lockID uuid.UUID) ([]*models.AccessSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM access_schedules
		WHERE user_id = $1 AND lock_id = $2
		ORDER BY created_at DESC`

	rows, err := s.getDB().QueryContext(ctx, query, userID, lockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.AccessSchedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}

	return schedules, nil
}

// ListAccessSchedules lists access schedules with filters
func (s *PostgresStore) ListAccessSchedules(ctx context.Context, filters ScheduleFilters, limit, offset int) ([]*models.AccessSchedule, int64, error) {
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

	if filters.ScheduleType != nil {
		argCount++
		where += fmt.Sprintf(" AND schedule_type = $%d", argCount)
		args = append(args, *filters.ScheduleType)
	}

	if filters.Status != nil {
		argCount++
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filters.Status)
	}

	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM access_schedules "+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	argCount++
	query := fmt.Sprintf("SELECT %s FROM access_schedules %s ORDER BY created_at DESC LIMIT $%d", scheduleColumns, where, argCount)
	args = append(args, limit)

	argCount++
	query += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var schedules []*models.AccessSchedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, err
		}
		schedules = append(schedules, schedule)
	}

	return schedules, count, nil
}
