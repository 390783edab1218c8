package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lockmaster/lockmaster-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, filters UserFilters, limit, offset int) ([]*models.User, int64, error)

	// Building methods
	CreateBuilding(ctx context.Context, building *models.Building) error
	GetBuilding(ctx context.Context, id uuid.UUID) (*models.Building, error)
	UpdateBuilding(ctx context.Context, building *models.Building) error
	DeleteBuilding(ctx context.Context, id uuid.UUID) error
	ListBuildings(ctx context.Context, limit, offset int) ([]*models.Building, int64, error)

	// Lock methods
	CreateLock(ctx context.Context, lock *models.Lock) error
	GetLock(ctx context.Context, id uuid.UUID) (*models.Lock, error)
	GetLockByVendorID(ctx context.Context, lockID int64) (*models.Lock, error)
	UpdateLock(ctx context.Context, lock *models.Lock) error
	DeleteLock(ctx context.Context, id uuid.UUID) error
	ListLocks(ctx context.Context, filters LockFilters, limit, offset int) ([]*models.Lock, int64, error)

	// Gateway methods
	CreateGateway(ctx context.Context, gateway *models.Gateway) error
	GetGateway(ctx context.Context, id uuid.UUID) (*models.Gateway, error)
	GetGatewayByVendorID(ctx context.Context, gatewayID int64) (*models.Gateway, error)
	UpdateGateway(ctx context.Context, gateway *models.Gateway) error
	DeleteGateway(ctx context.Context, id uuid.UUID) error
	ListGateways(ctx context.Context, filters GatewayFilters, limit, offset int) ([]*models.Gateway, int64, error)

	// Credential methods
	CreateCredential(ctx context.Context, credential *models.Credential) error
	GetCredential(ctx context.Context, id uuid.UUID) (*models.Credential, error)
	UpdateCredential(ctx context.Context, credential *models.Credential) error
	DeleteCredential(ctx context.Context, id uuid.UUID) error
	ListCredentials(ctx context.Context, filters CredentialFilters, limit, offset int) ([]*models.Credential, int64, error)
	IncrementCredentialUsage(ctx context.Context, id uuid.UUID, usedAt time.Time) error

	// Access schedule methods
	CreateAccessSchedule(ctx context.Context, schedule *models.AccessSchedule) error
	GetAccessSchedule(ctx context.Context, id uuid.UUID) (*models.AccessSchedule, error)
	UpdateAccessSchedule(ctx context.Context, schedule *models.AccessSchedule) error
	DeleteAccessSchedule(ctx context.Context, id uuid.UUID) error
	ListAccessSchedules(ctx context.Context, filters ScheduleFilters, limit, offset int) ([]*models.AccessSchedule, int64, error)
	ListSchedulesForUserLock(ctx context.Context, userID, lockID uuid.UUID) ([]*models.AccessSchedule, error)
	IncrementScheduleUse(ctx context.Context, id uuid.UUID) error

	// Activity log methods (append-only, no update or delete)
	CreateActivityLog(ctx context.Context, entry *models.ActivityLog) error
	ListActivityLogs(ctx context.Context, filters ActivityLogFilters, limit, offset int) ([]*models.ActivityLog, int64, error)

	// Dashboard
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)

	// Close the store
	Close() error
}

// UserFilters represents filters for user listings.
// Search matches name, email and apartment unit, case-insensitively.
// Nil fields mean no constraint.
type UserFilters struct {
	Search      string
	BuildingID  *uuid.UUID
	AccessLevel *models.AccessLevel
	Status      *models.UserStatus
}

// LockFilters represents filters for lock listings
type LockFilters struct {
	Search     string
	BuildingID *uuid.UUID
	GatewayID  *uuid.UUID
	LockType   *models.LockType
	Status     *models.LockStatus
}

// GatewayFilters represents filters for gateway listings
type GatewayFilters struct {
	Search     string
	BuildingID *uuid.UUID
	Status     *models.GatewayStatus
}

// CredentialFilters represents filters for credential listings
type CredentialFilters struct {
	Search         string
	UserID         *uuid.UUID
	LockID         *uuid.UUID
	CredentialType *models.CredentialType
	Status         *models.CredentialStatus
}

// ScheduleFilters represents filters for access schedule listings
type ScheduleFilters struct {
	Search       string
	UserID       *uuid.UUID
	LockID       *uuid.UUID
	ScheduleType *models.ScheduleType
	Status       *models.ScheduleStatus
}

// ActivityLogFilters represents filters for activity log listings
type ActivityLogFilters struct {
	Search       string
	UserID       *uuid.UUID
	LockID       *uuid.UUID
	BuildingID   *uuid.UUID
	ActivityType *models.ActivityType
	Method       *models.AccessMethod
	Success      *bool
	StartTime    *time.Time
	EndTime      *time.Time
}

// DashboardStats summarizes the portal's entity counts and alerts
type DashboardStats struct {
	Users             int64 `json:"users"`
	Buildings         int64 `json:"buildings"`
	Locks             int64 `json:"locks"`
	Gateways          int64 `json:"gateways"`
	ActiveCredentials int64 `json:"activeCredentials"`
	ActiveSchedules   int64 `json:"activeSchedules"`

	LowBatteryLocks []*models.Lock `json:"lowBatteryLocks"`
	OfflineLocks    []*models.Lock `json:"offlineLocks"`
}
