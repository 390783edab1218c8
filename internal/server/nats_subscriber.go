// Package server hosts the NATS ingest path for lock and gateway events
// published by the gateway bridges.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/lockmaster/lockmaster-server/internal/access"
	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
)

// NATSSubscriber ingests lock events and gateway status updates
type NATSSubscriber struct {
	nc      *nats.Conn
	store   storage.Store
	checker *access.Checker
	subs    []*nats.Subscription
}

// NewNATSSubscriber creates a NATS subscriber
func NewNATSSubscriber(nc *nats.Conn, store storage.Store) *NATSSubscriber {
	return &NATSSubscriber{
		nc:      nc,
		store:   store,
		checker: access.NewChecker(store),
		subs:    make([]*nats.Subscription, 0),
	}
}

// Start starts subscriptions and blocks until the context is cancelled
func (s *NATSSubscriber) Start(ctx context.Context) error {
	sub1, err := s.nc.Subscribe("building.*.lock.*.event", s.handleLockEvent)
	if err != nil {
		return fmt.Errorf("subscribe lock events: %w", err)
	}
	s.subs = append(s.subs, sub1)

	sub2, err := s.nc.Subscribe("building.*.gateway.*.status", s.handleGatewayStatus)
	if err != nil {
		return fmt.Errorf("subscribe gateway status: %w", err)
	}
	s.subs = append(s.subs, sub2)

	log.Info().
		Int("subscriptions", len(s.subs)).
		Msg("NATS subscriber started")

	<-ctx.Done()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// lockEvent is the JSON payload published by gateway bridges
type lockEvent struct {
	LockID       int64  `json:"lockId"`
	EventType    string `json:"eventType"`
	UserID       string `json:"userId,omitempty"`
	CredentialID string `json:"credentialId,omitempty"`
	Method       string `json:"method,omitempty"`
	Success      bool   `json:"success"`
	BatteryLevel *int   `json:"batteryLevel,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
	Details      string `json:"details,omitempty"`
}

// handleLockEvent writes the audit row and updates lock state
func (s *NATSSubscriber) handleLockEvent(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Int("size", len(msg.Data)).
		Msg("Received lock event")

	var event lockEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal lock event")
		return
	}

	activityType := models.ActivityType(event.EventType)
	if !activityType.Valid() {
		log.Warn().Str("eventType", event.EventType).Msg("Unknown lock event type, dropping")
		return
	}

	ctx := context.Background()

	lock, err := s.store.GetLockByVendorID(ctx, event.LockID)
	if err != nil {
		log.Error().Err(err).Int64("lockId", event.LockID).Msg("Failed to resolve lock")
		return
	}

	timestamp := time.Now()
	if event.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, event.Timestamp); err == nil {
			timestamp = parsed
		}
	}

	entry := &models.ActivityLog{
		ActivityType: activityType,
		LockID:       &lock.ID,
		BuildingID:   lock.BuildingID,
		Timestamp:    timestamp,
		Success:      event.Success,
		Details:      event.Details,
	}

	if method := models.AccessMethod(event.Method); method.Valid() {
		entry.Method = method
	}

	var userID, credentialID *uuid.UUID
	if id, err := uuid.Parse(event.UserID); err == nil {
		userID = &id
		entry.UserID = userID
	}
	if id, err := uuid.Parse(event.CredentialID); err == nil {
		credentialID = &id
		entry.CredentialID = credentialID
	}

	if err := s.store.CreateActivityLog(ctx, entry); err != nil {
		log.Error().Err(err).Msg("Failed to create activity log")
	}

	s.updateLockState(ctx, lock, &event, timestamp)

	// Keypad and card unlocks happen at the device; the usage counters
	// still have to move when the event arrives.
	if activityType == models.ActivityTypeUnlock && event.Success && userID != nil {
		s.recordUse(ctx, *userID, lock.ID, credentialID, timestamp)
	}

	log.Info().
		Int64("lockId", event.LockID).
		Str("eventType", event.EventType).
		Bool("success", event.Success).
		Msg("Lock event processed")
}

// updateLockState applies battery and connectivity changes from the event
func (s *NATSSubscriber) updateLockState(ctx context.Context, lock *models.Lock, event *lockEvent, seenAt time.Time) {
	lock.LastSeenAt = &seenAt

	if event.BatteryLevel != nil {
		lock.BatteryLevel = *event.BatteryLevel
	}

	switch models.ActivityType(event.EventType) {
	case models.ActivityTypeBatteryLow:
		lock.Status = models.LockStatusLowBattery
	case models.ActivityTypeOffline:
		lock.Status = models.LockStatusOffline
	default:
		if lock.Status == models.LockStatusOffline {
			lock.Status = models.LockStatusOnline
		}
	}

	if err := s.store.UpdateLock(ctx, lock); err != nil {
		log.Error().Err(err).Int64("lockId", lock.LockID).Msg("Failed to update lock state")
	}
}

// recordUse bumps schedule use_count and credential usage for an unlock
// that happened at the device
func (s *NATSSubscriber) recordUse(ctx context.Context, userID, lockID uuid.UUID, credentialID *uuid.UUID, at time.Time) {
	result, err := s.checker.Check(ctx, access.Request{
		UserID:       userID,
		LockID:       lockID,
		CredentialID: credentialID,
		At:           at,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to evaluate schedules for usage accounting")
		return
	}

	if err := s.checker.RecordUse(ctx, result, credentialID, at); err != nil {
		log.Error().Err(err).Msg("Failed to record usage")
	}
}

// gatewayStatus is the JSON payload published by gateway bridges
type gatewayStatus struct {
	GatewayID int64  `json:"gatewayId"`
	Online    bool   `json:"online"`
	IPAddress string `json:"ipAddress,omitempty"`
	LockCount *int   `json:"lockCount,omitempty"`
}

// handleGatewayStatus updates gateway connectivity
func (s *NATSSubscriber) handleGatewayStatus(msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Msg("Received gateway status")

	var status gatewayStatus
	if err := json.Unmarshal(msg.Data, &status); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal gateway status")
		return
	}

	ctx := context.Background()

	gateway, err := s.store.GetGatewayByVendorID(ctx, status.GatewayID)
	if err != nil {
		log.Error().Err(err).Int64("gatewayId", status.GatewayID).Msg("Failed to resolve gateway")
		return
	}

	now := time.Now()
	gateway.LastSeenAt = &now
	gateway.Status = models.GatewayStatusOffline
	if status.Online {
		gateway.Status = models.GatewayStatusOnline
	}
	if status.IPAddress != "" {
		gateway.IPAddress = status.IPAddress
	}
	if status.LockCount != nil {
		gateway.LockCount = *status.LockCount
	}

	if err := s.store.UpdateGateway(ctx, gateway); err != nil {
		log.Error().Err(err).Int64("gatewayId", status.GatewayID).Msg("Failed to update gateway")
	}

	log.Info().
		Int64("gatewayId", status.GatewayID).
		Bool("online", status.Online).
		Msg("Gateway status updated")
}
