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

// ========== Gateway Methods ==========

const gatewayColumns = `id, created_at, updated_at, gateway_id, name, mac,
	building_id, status, network_name, ip_address, lock_count,
	last_seen_at, last_synced_at`

func scanGateway(row interface{ Scan(...interface{}) error }) (*models.Gateway, error) {
	gateway := &models.Gateway{}
	err := row.Scan(
		&gateway.ID, &gateway.CreatedAt, &gateway.UpdatedAt, &gateway.GatewayID,
		&gateway.Name, &gateway.MAC, &gateway.BuildingID, &gateway.Status,
		&gateway.NetworkName, &gateway.IPAddress, &gateway.LockCount,
		&gateway.LastSeenAt, &gateway.LastSyncedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return gateway, nil
}

// CreateGateway creates a new gateway
func (s *PostgresStore) CreateGateway(ctx context.Context, gateway *models.Gateway) error {
	if gateway.ID == uuid.Nil {
		gateway.ID = uuid.New()
	}

	now := time.Now()
	gateway.CreatedAt = now
	gateway.UpdatedAt = now

	query := `
		INSERT INTO gateways (
			id, created_at, updated_at, gateway_id, name, mac, building_id,
			status, network_name, ip_address, lock_count, last_seen_at, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.getDB().ExecContext(ctx, query,
		gateway.ID, gateway.CreatedAt, gateway.UpdatedAt, gateway.GatewayID,
		gateway.Name, gateway.MAC, gateway.BuildingID, gateway.Status,
		gateway.NetworkName, gateway.IPAddress, gateway.LockCount,
		gateway.LastSeenAt, gateway.LastSyncedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetGateway gets a gateway by ID
func (s *PostgresStore) GetGateway(ctx context.Context, id uuid.UUID) (*models.Gateway, error) {
	query := `SELECT ` + gatewayColumns + ` FROM gateways WHERE id = $1`
	return scanGateway(s.getDB().QueryRowContext(ctx, query, id))
}

// GetGatewayByVendorID gets a gateway by the vendor-assigned id
func (s *PostgresStore) GetGatewayByVendorID(ctx context.Context, gatewayID int64) (*models.Gateway, error) {
	query := `SELECT ` + gatewayColumns + ` FROM gateways WHERE gateway_id = $1`
	return scanGateway(s.getDB().QueryRowContext(ctx, query, gatewayID))
}

// UpdateGateway updates a gateway
func (s *PostgresStore) UpdateGateway(ctx context.Context, gateway *models.Gateway) error {
	gateway.UpdatedAt = time.Now()

	query := `
		UPDATE gateways SET
			updated_at = $2, gateway_id = $3, name = $4, mac = $5,
			building_id = $6, status = $7, network_name = $8, ip_address = $9,
			lock_count = $10, last_seen_at = $11, last_synced_at = $12
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		gateway.ID, gateway.UpdatedAt, gateway.GatewayID, gateway.Name,
		gateway.MAC, gateway.BuildingID, gateway.Status, gateway.NetworkName,
		gateway.IPAddress, gateway.LockCount, gateway.LastSeenAt, gateway.LastSyncedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return checkAffected(result)
}

// DeleteGateway deletes a gateway
func (s *PostgresStore) DeleteGateway(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM gateways WHERE id = $1", id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ListGateways lists gateways with filters
func (s *PostgresStore) ListGateways(ctx context.Context, filters GatewayFilters, limit, offset int) ([]*models.Gateway, int64, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += fmt.Sprintf(" AND (name ILIKE $%d OR mac ILIKE $%d)", argCount, argCount)
		args = append(args, "%"+filters.Search+"%")
	}

	if filters.BuildingID != nil {
		argCount++
		where += fmt.Sprintf(" AND building_id = $%d", argCount)
		args = append(args, *filters.BuildingID)
	}

	if filters.Status != nil {
		argCount++
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filters.Status)
	}

	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM gateways "+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	argCount++
	query := fmt.Sprintf("SELECT %s FROM gateways %s ORDER BY created_at DESC LIMIT $%d", gatewayColumns, where, argCount)
	args = append(args, limit)

	argCount++
	query += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, offset)

	rows, err := s.getDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var gateways []*models.Gateway
	for rows.Next() {
		gateway, err := scanGateway(rows)
		if err != nil {
			return nil, 0, err
		}
		gateways = append(gateways, gateway)
	}

	return gateways, count, nil
}
