package ttlock

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
)

type inventoryStore struct {
	storage.Store

	locks    map[int64]*models.Lock
	gateways map[int64]*models.Gateway
}

func newInventoryStore() *inventoryStore {
	return &inventoryStore{
		locks:    make(map[int64]*models.Lock),
		gateways: make(map[int64]*models.Gateway),
	}
}

func (s *inventoryStore) GetLockByVendorID(ctx context.Context, lockID int64) (*models.Lock, error) {
	if l, ok := s.locks[lockID]; ok {
		return l, nil
	}
	return nil, storage.ErrNotFound
}

func (s *inventoryStore) CreateLock(ctx context.Context, lock *models.Lock) error {
	s.locks[lock.LockID] = lock
	return nil
}

func (s *inventoryStore) UpdateLock(ctx context.Context, lock *models.Lock) error {
	s.locks[lock.LockID] = lock
	return nil
}

func (s *inventoryStore) GetGatewayByVendorID(ctx context.Context, gatewayID int64) (*models.Gateway, error) {
	if g, ok := s.gateways[gatewayID]; ok {
		return g, nil
	}
	return nil, storage.ErrNotFound
}

func (s *inventoryStore) CreateGateway(ctx context.Context, gateway *models.Gateway) error {
	s.gateways[gateway.GatewayID] = gateway
	return nil
}

func (s *inventoryStore) UpdateGateway(ctx context.Context, gateway *models.Gateway) error {
	s.gateways[gateway.GatewayID] = gateway
	return nil
}

func syncTestMux(locks []VendorLock, gateways []VendorGateway) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", ExpiresIn: 7200})
	})
	mux.HandleFunc("/v3/lock/list", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pagedLocks{List: locks, Pages: 1, Total: len(locks)})
	})
	mux.HandleFunc("/v3/gateway/list", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pagedGateways{List: gateways, Pages: 1, Total: len(gateways)})
	})
	return mux
}

func TestSyncNowCreatesInventory(t *testing.T) {
	mux := syncTestMux(
		[]VendorLock{
			{LockID: 1, LockAlias: "Front Door", LockMAC: "AA:BB:CC:00:00:01", ElectricQuantity: 85, FirmwareRevision: "1.2.0"},
			{LockID: 2, LockName: "S200_a2", LockMAC: "AA:BB:CC:00:00:02", ElectricQuantity: 12},
		},
		[]VendorGateway{
			{GatewayID: 77, GatewayMAC: "CC:DD:EE:00:00:01", GatewayName: "Lobby GW", IsOnline: 1, LockNum: 2},
		},
	)

	client, _ := testClient(t, mux)
	store := newInventoryStore()
	service := NewSyncService(client, store, time.Hour, zerolog.Nop())

	assert.Equal(t, SyncStateIdle, service.Status().State)

	require.NoError(t, service.SyncNow(context.Background()))

	status := service.Status()
	assert.Equal(t, SyncStateSuccess, status.State)
	assert.Equal(t, 2, status.LocksSynced)
	assert.Equal(t, 1, status.GatewaysSync)
	require.NotNil(t, status.LastSyncAt)

	require.Len(t, store.locks, 2)
	assert.Equal(t, "Front Door", store.locks[1].LockName)
	assert.Equal(t, 85, store.locks[1].BatteryLevel)
	assert.Equal(t, models.LockStatusOnline, store.locks[1].Status)

	// Battery below threshold lands as low_battery
	assert.Equal(t, models.LockStatusLowBattery, store.locks[2].Status)

	require.Len(t, store.gateways, 1)
	assert.Equal(t, models.GatewayStatusOnline, store.gateways[77].Status)
	assert.Equal(t, 2, store.gateways[77].LockCount)
}

func TestSyncNowPreservesLocalAssignments(t *testing.T) {
	mux := syncTestMux(
		[]VendorLock{{LockID: 1, LockAlias: "Front Door", LockMAC: "AA:BB:CC:00:00:01", ElectricQuantity: 90}},
		nil,
	)

	client, _ := testClient(t, mux)
	store := newInventoryStore()

	existing := &models.Lock{
		LockID:     1,
		LockName:   "Old Name",
		UnitNumber: "4B",
		LockType:   models.LockTypeMainEntrance,
		Status:     models.LockStatusOnline,
	}
	store.locks[1] = existing

	service := NewSyncService(client, store, time.Hour, zerolog.Nop())
	require.NoError(t, service.SyncNow(context.Background()))

	updated := store.locks[1]
	assert.Equal(t, "Front Door", updated.LockName)
	assert.Equal(t, 90, updated.BatteryLevel)
	assert.Equal(t, "4B", updated.UnitNumber)
	assert.Equal(t, models.LockTypeMainEntrance, updated.LockType)
}

func TestSyncNowFailureState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(VendorError{Code: 10003, Msg: "invalid client"})
	})

	client, _ := testClient(t, mux)
	service := NewSyncService(client, newInventoryStore(), time.Hour, zerolog.Nop())

	err := service.SyncNow(context.Background())
	require.Error(t, err)

	status := service.Status()
	assert.Equal(t, SyncStateFailure, status.State)
	assert.Contains(t, status.LastError, "invalid client")
	assert.Nil(t, status.LastSyncAt)
}

func TestBatteryStatusRecovery(t *testing.T) {
	assert.Equal(t, models.LockStatusLowBattery, batteryStatus(10, models.LockStatusOnline))
	assert.Equal(t, models.LockStatusOnline, batteryStatus(80, models.LockStatusLowBattery))
	assert.Equal(t, models.LockStatusMaintenance, batteryStatus(80, models.LockStatusMaintenance))
	assert.Equal(t, models.LockStatusOffline, batteryStatus(0, models.LockStatusOffline))
}
