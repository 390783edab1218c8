package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lockmaster/lockmaster-server/internal/models"
)

// ========== Activity Log Methods ==========

// CreateActivityLog creates an activity log entry. Entries are append-only.
func (s *PostgresStore) CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = entry.CreatedAt
	}

	query := `
		INSERT INTO activity_logs (
			id, created_at, activity_type, user_id, lock_id, credential_id,
			building_id, method, timestamp, success, details, extra
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.getDB().ExecContext(ctx, query,
		entry.ID, entry.CreatedAt, entry.ActivityType, entry.UserID,
		entry.LockID, entry.CredentialID, entry.BuildingID, entry.Method,
		entry.Timestamp, entry.Success, entry.Details, entry.Extra,
	)

	return err
}

// ListActivityLogs lists activity logs with filters
func (s *PostgresStore) ListActivityLogs(ctx context.Context, filters ActivityLogFilters, limit, offset int) ([]*models.ActivityLog, int64, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += fmt.Sprintf(" AND details ILIKE $%d", argCount)
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

	if filters.BuildingID != nil {
		argCount++
		where += fmt.Sprintf(" AND building_id = $%d", argCount)
		args = append(args, *filters.BuildingID)
	}

	if filters.ActivityType != nil {
		argCount++
		where += fmt.Sprintf(" AND activity_type = $%d", argCount)
		args = append(args, *filters.ActivityType)
	}

	if filters.Method != nil {
		argCount++
		where += fmt.Sprintf(" AND method = $%d", argCount)
		args = append(args, *filters.Method)
	}

	if filters.Success != nil {
		argCount++
		where += fmt.Sprintf(" AND success = $%d", argCount)
		args = append(args, *filters.Success)
	}

	if filters.StartTime != nil {
		argCount++
		where += fmt.Sprintf(" AND timestamp >= $%d", argCount)
		args = append(args, *filters.StartTime)
	}

	if filters.EndTime != nil {
		argCount++
		where += fmt.Sprintf(" AND timestamp <= $%d", argCount)
		args = append(args, *filters.EndTime)
	}

	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_logs "+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	argCount++
	query := fmt.Sprintf(`
		SELECT id, created_at, activity_type, user_id, lock_id, credential_id,
		       building_id, method, timestamp, success, details, extra
		FROM activity_logs %s
		ORDER BY timestamp DESC
		LIMIT $%d`, where, argCount)
	args = append(args, limit)

	argCount++
	query += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*models.ActivityLog
	for rows.Next() {
		entry := &models.ActivityLog{}
		err := rows.Scan(
			&entry.ID, &entry.CreatedAt, &entry.ActivityType, &entry.UserID,
			&entry.LockID, &entry.CredentialID, &entry.BuildingID, &entry.Method,
			&entry.Timestamp, &entry.Success, &entry.Details, &entry.Extra,
		)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}

	return entries, count, nil
}

// ========== Dashboard ==========

// GetDashboardStats collects the counters and alert lists for the dashboard
func (s *PostgresStore) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM users", &stats.Users},
		{"SELECT COUNT(*) FROM buildings", &stats.Buildings},
		{"SELECT COUNT(*) FROM locks", &stats.Locks},
		{"SELECT COUNT(*) FROM gateways", &stats.Gateways},
		{"SELECT COUNT(*) FROM credentials WHERE status = 'active'", &stats.ActiveCredentials},
		{"SELECT COUNT(*) FROM access_schedules WHERE status = 'active'", &stats.ActiveSchedules},
	}

	for _, c := range counts {
		if err := s.getDB().QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	lowBattery := models.LockStatusLowBattery
	locks, _, err := s.ListLocks(ctx, LockFilters{Status: &lowBattery}, 50, 0)
	if err != nil {
		return nil, err
	}
	stats.LowBatteryLocks = locks

	offline := models.LockStatusOffline
	locks, _, err = s.ListLocks(ctx, LockFilters{Status: &offline}, 50, 0)
	if err != nil {
		return nil, err
	}
	stats.OfflineLocks = locks

	return stats, nil
}
