package ttlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
)

// SyncState is the lifecycle state of the inventory sync
type SyncState string

const (
	SyncStateIdle    SyncState = "idle"
	SyncStatePending SyncState = "pending"
	SyncStateSuccess SyncState = "success"
	SyncStateFailure SyncState = "failure"
)

const lowBatteryThreshold = 20

// SyncStatus is a snapshot of the sync service state
type SyncStatus struct {
	State        SyncState  `json:"state"`
	LastSyncAt   *time.Time `json:"lastSyncAt,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
	LocksSynced  int        `json:"locksSynced"`
	GatewaysSync int        `json:"gatewaysSynced"`
}

// SyncService mirrors the TTLock cloud inventory into local storage.
// A sync is pending while running and lands in success or failure; a
// new sync cannot start while one is pending.
type SyncService struct {
	client   *Client
	store    storage.Store
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	status SyncStatus
}

// NewSyncService creates an inventory sync service
func NewSyncService(client *Client, store storage.Store, interval time.Duration, logger zerolog.Logger) *SyncService {
	return &SyncService{
		client:   client,
		store:    store,
		interval: interval,
		logger:   logger.With().Str("component", "ttlock-sync").Logger(),
		status:   SyncStatus{State: SyncStateIdle},
	}
}

// Status returns a snapshot of the current sync state
func (s *SyncService) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Run performs periodic syncs until the context is cancelled
func (s *SyncService) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("sync service started")

	if err := s.SyncNow(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial sync failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sync service stopped")
			return
		case <-ticker.C:
			if err := s.SyncNow(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sync failed")
			}
		}
	}
}

// ErrSyncInProgress is returned when a sync is requested while pending
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncNow runs a full inventory sync immediately
func (s *SyncService) SyncNow(ctx context.Context) error {
	s.mu.Lock()
	if s.status.State == SyncStatePending {
		s.mu.Unlock()
		return ErrSyncInProgress
	}
	s.status.State = SyncStatePending
	s.status.LastError = ""
	s.mu.Unlock()

	locks, gateways, err := s.sync(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.status.State = SyncStateFailure
		s.status.LastError = err.Error()
		return err
	}

	now := time.Now()
	s.status.State = SyncStateSuccess
	s.status.LastSyncAt = &now
	s.status.LocksSynced = locks
	s.status.GatewaysSync = gateways

	s.logger.Info().Int("locks", locks).Int("gateways", gateways).Msg("inventory synced")
	return nil
}

func (s *SyncService) sync(ctx context.Context) (int, int, error) {
	gateways, err := s.client.ListGateways(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch gateways: %w", err)
	}

	for i := range gateways {
		if err := s.upsertGateway(ctx, &gateways[i]); err != nil {
			return 0, 0, fmt.Errorf("gateway %d: %w", gateways[i].GatewayID, err)
		}
	}

	locks, err := s.client.ListLocks(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch locks: %w", err)
	}

	for i := range locks {
		if err := s.upsertLock(ctx, &locks[i]); err != nil {
			return 0, 0, fmt.Errorf("lock %d: %w", locks[i].LockID, err)
		}
	}

	return len(locks), len(gateways), nil
}

// upsertLock updates the local record from the cloud snapshot, keeping
// locally-assigned fields (building, unit, type) untouched
func (s *SyncService) upsertLock(ctx context.Context, vl *VendorLock) error {
	now := time.Now()

	lock, err := s.store.GetLockByVendorID(ctx, vl.LockID)
	if errors.Is(err, storage.ErrNotFound) {
		lock = &models.Lock{
			LockID:          vl.LockID,
			LockName:        vl.DisplayName(),
			LockMAC:         vl.LockMAC,
			LockType:        models.LockTypeUnitDoor,
			Status:          batteryStatus(vl.ElectricQuantity, models.LockStatusOnline),
			BatteryLevel:    vl.ElectricQuantity,
			FirmwareVersion: vl.FirmwareRevision,
			LastSyncedAt:    &now,
		}
		return s.store.CreateLock(ctx, lock)
	}
	if err != nil {
		return err
	}

	lock.LockName = vl.DisplayName()
	lock.LockMAC = vl.LockMAC
	lock.BatteryLevel = vl.ElectricQuantity
	lock.FirmwareVersion = vl.FirmwareRevision
	lock.Status = batteryStatus(vl.ElectricQuantity, lock.Status)
	lock.LastSyncedAt = &now

	return s.store.UpdateLock(ctx, lock)
}

func (s *SyncService) upsertGateway(ctx context.Context, vg *VendorGateway) error {
	now := time.Now()

	status := models.GatewayStatusOffline
	if vg.IsOnline == 1 {
		status = models.GatewayStatusOnline
	}

	gateway, err := s.store.GetGatewayByVendorID(ctx, vg.GatewayID)
	if errors.Is(err, storage.ErrNotFound) {
		gateway = &models.Gateway{
			GatewayID:    vg.GatewayID,
			Name:         vg.GatewayName,
			MAC:          vg.GatewayMAC,
			Status:       status,
			NetworkName:  vg.NetworkName,
			LockCount:    vg.LockNum,
			LastSyncedAt: &now,
		}
		return s.store.CreateGateway(ctx, gateway)
	}
	if err != nil {
		return err
	}

	gateway.Name = vg.GatewayName
	gateway.MAC = vg.GatewayMAC
	gateway.Status = status
	gateway.NetworkName = vg.NetworkName
	gateway.LockCount = vg.LockNum
	gateway.LastSyncedAt = &now

	return s.store.UpdateGateway(ctx, gateway)
}

// batteryStatus flips a lock into low_battery below the threshold and
// restores the previous status once the battery recovers
func batteryStatus(level int, current models.LockStatus) models.LockStatus {
	if level > 0 && level < lowBatteryThreshold {
		return models.LockStatusLowBattery
	}
	if current == models.LockStatusLowBattery {
		return models.LockStatusOnline
	}
	return current
}
