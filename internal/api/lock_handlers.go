package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lockmaster/lockmaster-server/internal/access"
	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
)

// ========== Lock handlers ==========

// HandleListLocks lists locks
func (s *RESTServer) HandleListLocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := storage.LockFilters{
		Search: r.URL.Query().Get("search"),
	}

	if id, ok := queryUUID(r, "building_id"); ok {
		filters.BuildingID = &id
	}
	if id, ok := queryUUID(r, "gateway_id"); ok {
		filters.GatewayID = &id
	}
	if v := r.URL.Query().Get("lock_type"); v != "" && v != "all" {
		lockType := models.LockType(v)
		filters.LockType = &lockType
	}
	if v := r.URL.Query().Get("status"); v != "" && v != "all" {
		status := models.LockStatus(v)
		filters.Status = &status
	}

	limit, offset := pagination(r)

	locks, total, err := s.store.ListLocks(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"locks": locks,
		"total": total,
	})
}

// HandleCreateLock registers a lock
func (s *RESTServer) HandleCreateLock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LockID     int64  `json:"lock_id" validate:"required"`
		LockName   string `json:"lock_name" validate:"required,min=2,max=200"`
		LockMAC    string `json:"lock_mac"`
		BuildingID string `json:"building_id"`
		UnitNumber string `json:"unit_number"`
		LockType   string `json:"lock_type"`
		GatewayID  string `json:"gateway_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lockType := models.LockType(req.LockType)
	if req.LockType == "" {
		lockType = models.LockTypeUnitDoor
	}
	if !lockType.Valid() {
		s.respondError(w, http.StatusBadRequest, "invalid lock type")
		return
	}

	lock := &models.Lock{
		LockID:     req.LockID,
		LockName:   req.LockName,
		LockMAC:    req.LockMAC,
		UnitNumber: req.UnitNumber,
		LockType:   lockType,
		Status:     models.LockStatusOffline,
	}

	if req.BuildingID != "" {
		buildingID, err := uuid.Parse(req.BuildingID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid building id")
			return
		}
		lock.BuildingID = &buildingID
	}

	if req.GatewayID != "" {
		gatewayID, err := uuid.Parse(req.GatewayID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid gateway id")
			return
		}
		lock.GatewayID = &gatewayID
	}

	if err := s.store.CreateLock(r.Context(), lock); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "lock already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, lock)
}

// HandleGetLock gets a lock
func (s *RESTServer) HandleGetLock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid lock id")
		return
	}

	lock, err := s.store.GetLock(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "lock not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, lock)
}

// HandleUpdateLock updates a lock's local assignment
func (s *RESTServer) HandleUpdateLock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid lock id")
		return
	}

	var req struct {
		LockName   string `json:"lock_name" validate:"required,min=2,max=200"`
		BuildingID string `json:"building_id"`
		UnitNumber string `json:"unit_number"`
		LockType   string `json:"lock_type"`
		Status     string `json:"status"`
		GatewayID  string `json:"gateway_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lock, err := s.store.GetLock(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "lock not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	lock.LockName = req.LockName
	lock.UnitNumber = req.UnitNumber

	if req.LockType != "" {
		lockType := models.LockType(req.LockType)
		if !lockType.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid lock type")
			return
		}
		lock.LockType = lockType
	}

	if req.Status != "" {
		status := models.LockStatus(req.Status)
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid status")
			return
		}
		lock.Status = status
	}

	if req.BuildingID != "" {
		buildingID, err := uuid.Parse(req.BuildingID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid building id")
			return
		}
		lock.BuildingID = &buildingID
	}

	if req.GatewayID != "" {
		gatewayID, err := uuid.Parse(req.GatewayID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid gateway id")
			return
		}
		lock.GatewayID = &gatewayID
	}

	if err := s.store.UpdateLock(ctx, lock); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, lock)
}

// HandleDeleteLock deletes a lock
func (s *RESTServer) HandleDeleteLock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid lock id")
		return
	}

	if err := s.store.DeleteLock(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "lock not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Unlock and access evaluation ==========

// unlockCommand is the payload published for the gateway bridge
type unlockCommand struct {
	LockID    int64     `json:"lockId"`
	UserID    uuid.UUID `json:"userId"`
	IssuedAt  time.Time `json:"issuedAt"`
	RequestID string    `json:"requestId"`
}

// HandleUnlockLock runs the access decision for the calling user and,
// when granted, publishes an unlock command for the lock's gateway.
// An activity row is written whichever way the decision goes.
func (s *RESTServer) HandleUnlockLock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid lock id")
		return
	}

	claims := s.claimsFromContext(ctx)
	if claims == nil {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		UserID       string `json:"user_id"`
		CredentialID string `json:"credential_id"`
	}
	// An empty body means the caller unlocks for themselves
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	userID := claims.UserID
	if req.UserID != "" {
		// Unlocking on behalf of someone else requires manage rights
		if !claims.AccessLevel.CanManage() {
			s.respondError(w, http.StatusForbidden, "insufficient access level")
			return
		}
		userID, err = uuid.Parse(req.UserID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid user id")
			return
		}
	}

	checkReq := access.Request{
		UserID: userID,
		LockID: id,
		At:     time.Now(),
	}

	if req.CredentialID != "" {
		credentialID, err := uuid.Parse(req.CredentialID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid credential id")
			return
		}
		checkReq.CredentialID = &credentialID
	}

	lock, err := s.store.GetLock(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "lock not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.checker.Check(ctx, checkReq)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	activityType := models.ActivityTypeUnlock
	if !result.Granted {
		activityType = models.ActivityTypeFailedAttempt
	}

	entry := &models.ActivityLog{
		ActivityType: activityType,
		UserID:       &userID,
		LockID:       &id,
		CredentialID: checkReq.CredentialID,
		BuildingID:   lock.BuildingID,
		Method:       models.AccessMethodApp,
		Timestamp:    checkReq.At,
		Success:      result.Granted,
		Details:      result.Reason,
	}
	if err := s.store.CreateActivityLog(ctx, entry); err != nil {
		log.Error().Err(err).Msg("failed to write activity log")
	}

	if !result.Granted {
		s.respondJSON(w, http.StatusForbidden, result)
		return
	}

	if err := s.checker.RecordUse(ctx, result, checkReq.CredentialID, checkReq.At); err != nil {
		log.Error().Err(err).Msg("failed to record schedule use")
	}

	if s.nc != nil && lock.BuildingID != nil {
		command := unlockCommand{
			LockID:    lock.LockID,
			UserID:    userID,
			IssuedAt:  checkReq.At,
			RequestID: entry.ID.String(),
		}
		payload, _ := json.Marshal(command)
		subject := fmt.Sprintf("building.%s.lock.%d.command", lock.BuildingID, lock.LockID)
		if err := s.nc.Publish(subject, payload); err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("failed to publish unlock command")
		}
	}

	s.respondJSON(w, http.StatusOK, result)
}

// HandleAccessCheck evaluates access without operating the lock
func (s *RESTServer) HandleAccessCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       string     `json:"user_id" validate:"required"`
		LockID       string     `json:"lock_id" validate:"required"`
		CredentialID string     `json:"credential_id"`
		At           *time.Time `json:"at"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	lockID, err := uuid.Parse(req.LockID)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid lock id")
		return
	}

	checkReq := access.Request{UserID: userID, LockID: lockID}
	if req.At != nil {
		checkReq.At = *req.At
	}

	if req.CredentialID != "" {
		credentialID, err := uuid.Parse(req.CredentialID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid credential id")
			return
		}
		checkReq.CredentialID = &credentialID
	}

	result, err := s.checker.Check(r.Context(), checkReq)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}
