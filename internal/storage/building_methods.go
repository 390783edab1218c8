package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lockmaster/lockmaster-server/internal/models"
)

// ========== Building Methods ==========

// CreateBuilding creates a new building
func (s *PostgresStore) CreateBuilding(ctx context.Context, building *models.Building) error {
	if building.ID == uuid.Nil {
		building.ID = uuid.New()
	}

	now := time.Now()
	building.CreatedAt = now
	building.UpdatedAt = now

	query := `
		INSERT INTO buildings (
			id, created_at, updated_at, name, address, city, unit_count,
			manager_name, manager_email, integrations
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.getDB().ExecContext(ctx, query,
		building.ID, building.CreatedAt, building.UpdatedAt, building.Name,
		building.Address, building.City, building.UnitCount,
		building.ManagerName, building.ManagerEmail, building.Integrations,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetBuilding gets a building by ID
func (s *PostgresStore) GetBuilding(ctx context.Context, id uuid.UUID) (*models.Building, error) {
	query := `
		SELECT id, created_at, updated_at, name, address, city, unit_count,
		       manager_name, manager_email, integrations
		FROM buildings WHERE id = $1`

	building := &models.Building{Integrations: &models.IntegrationSettings{}}
	err := s.getDB().QueryRowContext(ctx, query, id).Scan(
		&building.ID, &building.CreatedAt, &building.UpdatedAt, &building.Name,
		&building.Address, &building.City, &building.UnitCount,
		&building.ManagerName, &building.ManagerEmail, building.Integrations,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return building, nil
}

// UpdateBuilding updates a building
func (s *PostgresStore) UpdateBuilding(ctx context.Context, building *models.Building) error {
	building.UpdatedAt = time.Now()

	query := `
		UPDATE buildings SET
			updated_at = $2, name = $3, address = $4, city = $5,
			unit_count = $6, manager_name = $7, manager_email = $8,
			integrations = $9
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		building.ID, building.UpdatedAt, building.Name, building.Address,
		building.City, building.UnitCount, building.ManagerName,
		building.ManagerEmail, building.Integrations,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return checkAffected(result)
}

// DeleteBuilding deletes a building
func (s *PostgresStore) DeleteBuilding(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM buildings WHERE id = $1", id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// ListBuildings lists buildings
func (s *PostgresStore) ListBuildings(ctx context.Context, limit, offset int) ([]*models.Building, int64, error) {
	var count int64
	if err := s.getDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM buildings").Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, created_at, updated_at, name, address, city, unit_count,
		       manager_name, manager_email, integrations
		FROM buildings
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.getDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var buildings []*models.Building
	for rows.Next() {
		building := &models.Building{Integrations: &models.IntegrationSettings{}}
		err := rows.Scan(
			&building.ID, &building.CreatedAt, &building.UpdatedAt, &building.Name,
			&building.Address, &building.City, &building.UnitCount,
			&building.ManagerName, &building.ManagerEmail, building.Integrations,
		)
		if err != nil {
			return nil, 0, err
		}
		buildings = append(buildings, building)
	}

	return buildings, count, nil
}
