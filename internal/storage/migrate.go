package storage

import (
	"context"
	"fmt"
)

// migrations are applied in order at startup. Statements must be idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS buildings (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		name TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		unit_count INTEGER NOT NULL DEFAULT 0,
		manager_name TEXT NOT NULL DEFAULT '',
		manager_email TEXT NOT NULL DEFAULT '',
		integrations JSONB
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		apartment_unit TEXT NOT NULL DEFAULT '',
		building_id UUID,
		access_level TEXT NOT NULL,
		status TEXT NOT NULL,
		last_login_at TIMESTAMPTZ,
		settings JSONB
	)`,

	`CREATE TABLE IF NOT EXISTS gateways (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		gateway_id BIGINT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		mac TEXT NOT NULL DEFAULT '',
		building_id UUID,
		status TEXT NOT NULL,
		network_name TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		lock_count INTEGER NOT NULL DEFAULT 0,
		last_seen_at TIMESTAMPTZ,
		last_synced_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS locks (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		lock_id BIGINT NOT NULL UNIQUE,
		lock_name TEXT NOT NULL,
		lock_mac TEXT NOT NULL DEFAULT '',
		building_id UUID,
		unit_number TEXT NOT NULL DEFAULT '',
		lock_type TEXT NOT NULL,
		status TEXT NOT NULL,
		battery_level INTEGER NOT NULL DEFAULT 100,
		gateway_id UUID,
		firmware_version TEXT NOT NULL DEFAULT '',
		last_seen_at TIMESTAMPTZ,
		last_synced_at TIMESTAMPTZ,
		metadata JSONB
	)`,

	`CREATE TABLE IF NOT EXISTS credentials (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		user_id UUID NOT NULL,
		lock_id UUID NOT NULL,
		credential_type TEXT NOT NULL,
		credential_value TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		valid_from TIMESTAMPTZ NOT NULL,
		valid_until TIMESTAMPTZ,
		usage_count INTEGER NOT NULL DEFAULT 0,
		last_used_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS access_schedules (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		user_id UUID NOT NULL,
		lock_id UUID NOT NULL,
		credential_id UUID,
		schedule_type TEXT NOT NULL,
		start_date TIMESTAMPTZ,
		end_date TIMESTAMPTZ,
		days_of_week JSONB,
		time_slots JSONB,
		max_uses INTEGER,
		use_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS activity_logs (
		id UUID PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		activity_type TEXT NOT NULL,
		user_id UUID,
		lock_id UUID,
		credential_id UUID,
		building_id UUID,
		method TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMPTZ NOT NULL,
		success BOOLEAN NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		extra JSONB
	)`,

	`CREATE INDEX IF NOT EXISTS idx_locks_building ON locks (building_id)`,
	`CREATE INDEX IF NOT EXISTS idx_credentials_user_lock ON credentials (user_id, lock_id)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_user_lock ON access_schedules (user_id, lock_id)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity_logs (timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_lock ON activity_logs (lock_id)`,
}

// Migrate creates the schema if it does not exist yet
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
