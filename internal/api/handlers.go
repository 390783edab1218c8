package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
	"github.com/lockmaster/lockmaster-server/pkg/crypto"
)

// ========== Auth handlers ==========

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if user.Status != models.UserStatusActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("failed to record login time")
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accessToken, refreshToken, err := s.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleGetCurrentUser gets current user
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := s.claimsFromContext(r.Context())
	if claims == nil {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// ========== User handlers ==========

// HandleListUsers lists users
func (s *RESTServer) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := storage.UserFilters{
		Search: r.URL.Query().Get("search"),
	}

	if id, ok := queryUUID(r, "building_id"); ok {
		filters.BuildingID = &id
	}
	if v := r.URL.Query().Get("access_level"); v != "" && v != "all" {
		level := models.AccessLevel(v)
		filters.AccessLevel = &level
	}
	if v := r.URL.Query().Get("status"); v != "" && v != "all" {
		status := models.UserStatus(v)
		filters.Status = &status
	}

	limit, offset := pagination(r)

	users, total, err := s.store.ListUsers(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// HandleCreateUser creates a user
func (s *RESTServer) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email         string `json:"email" validate:"required,email"`
		FullName      string `json:"full_name" validate:"required,min=2,max=100"`
		Phone         string `json:"phone"`
		Password      string `json:"password" validate:"required,min=8"`
		ApartmentUnit string `json:"apartment_unit"`
		BuildingID    string `json:"building_id"`
		AccessLevel   string `json:"access_level"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	level := models.AccessLevel(req.AccessLevel)
	if req.AccessLevel == "" {
		level = models.AccessLevelResident
	}
	if !level.Valid() {
		s.respondError(w, http.StatusBadRequest, "invalid access level")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := &models.User{
		Email:         req.Email,
		FullName:      req.FullName,
		Phone:         req.Phone,
		PasswordHash:  hash,
		ApartmentUnit: req.ApartmentUnit,
		AccessLevel:   level,
		Status:        models.UserStatusActive,
	}

	if req.BuildingID != "" {
		buildingID, err := uuid.Parse(req.BuildingID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid building id")
			return
		}
		user.BuildingID = &buildingID
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "user already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, user)
}

// HandleGetUser gets a user
func (s *RESTServer) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleUpdateUser updates a user
func (s *RESTServer) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		FullName      string `json:"full_name" validate:"required,min=2,max=100"`
		Phone         string `json:"phone"`
		ApartmentUnit string `json:"apartment_unit"`
		BuildingID    string `json:"building_id"`
		AccessLevel   string `json:"access_level"`
		Status        string `json:"status"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	user.FullName = req.FullName
	user.Phone = req.Phone
	user.ApartmentUnit = req.ApartmentUnit

	if req.AccessLevel != "" {
		level := models.AccessLevel(req.AccessLevel)
		if !level.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid access level")
			return
		}
		user.AccessLevel = level
	}

	if req.Status != "" {
		status := models.UserStatus(req.Status)
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid status")
			return
		}
		user.Status = status
	}

	if req.BuildingID != "" {
		buildingID, err := uuid.Parse(req.BuildingID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid building id")
			return
		}
		user.BuildingID = &buildingID
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleDeleteUser deletes a user
func (s *RESTServer) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Building handlers ==========

// HandleListBuildings lists buildings
func (s *RESTServer) HandleListBuildings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, offset := pagination(r)

	buildings, total, err := s.store.ListBuildings(ctx, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"buildings": buildings,
		"total":     total,
	})
}

// HandleCreateBuilding creates a building
func (s *RESTServer) HandleCreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name" validate:"required,min=2,max=200"`
		Address      string `json:"address" validate:"required"`
		City         string `json:"city"`
		UnitCount    int    `json:"unit_count" validate:"min=0"`
		ManagerName  string `json:"manager_name"`
		ManagerEmail string `json:"manager_email" validate:"email"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	building := &models.Building{
		Name:         req.Name,
		Address:      req.Address,
		City:         req.City,
		UnitCount:    req.UnitCount,
		ManagerName:  req.ManagerName,
		ManagerEmail: req.ManagerEmail,
	}

	if err := s.store.CreateBuilding(r.Context(), building); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "building already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, building)
}

// HandleGetBuilding gets a building
func (s *RESTServer) HandleGetBuilding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid building id")
		return
	}

	building, err := s.store.GetBuilding(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "building not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, building)
}

// HandleUpdateBuilding updates a building
func (s *RESTServer) HandleUpdateBuilding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid building id")
		return
	}

	var req struct {
		Name         string `json:"name" validate:"required,min=2,max=200"`
		Address      string `json:"address" validate:"required"`
		City         string `json:"city"`
		UnitCount    int    `json:"unit_count" validate:"min=0"`
		ManagerName  string `json:"manager_name"`
		ManagerEmail string `json:"manager_email" validate:"email"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	building, err := s.store.GetBuilding(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "building not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	building.Name = req.Name
	building.Address = req.Address
	building.City = req.City
	building.UnitCount = req.UnitCount
	building.ManagerName = req.ManagerName
	building.ManagerEmail = req.ManagerEmail

	if err := s.store.UpdateBuilding(ctx, building); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, building)
}

// HandleDeleteBuilding deletes a building
func (s *RESTServer) HandleDeleteBuilding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid building id")
		return
	}

	if err := s.store.DeleteBuilding(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "building not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Integration handlers ==========

// HandleGetIntegrations returns a building's integration settings
func (s *RESTServer) HandleGetIntegrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid building id")
		return
	}

	building, err := s.store.GetBuilding(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "building not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	integrations := building.Integrations
	if integrations == nil {
		integrations = &models.IntegrationSettings{}
	}

	s.respondJSON(w, http.StatusOK, integrations)
}

// HandleUpdateHTTPIntegration updates a building's webhook forwarding
func (s *RESTServer) HandleUpdateHTTPIntegration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid building id")
		return
	}

	var req models.HTTPIntegration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Enabled && req.Endpoint == "" {
		s.respondError(w, http.StatusBadRequest, "endpoint is required when enabled")
		return
	}

	building, err := s.store.GetBuilding(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "building not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if building.Integrations == nil {
		building.Integrations = &models.IntegrationSettings{}
	}
	building.Integrations.HTTP = req

	if err := s.store.UpdateBuilding(ctx, building); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, building.Integrations)
}

// HandleUpdateMQTTIntegration updates a building's MQTT forwarding
func (s *RESTServer) HandleUpdateMQTTIntegration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid building id")
		return
	}

	var req models.MQTTIntegration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Enabled && req.Broker == "" {
		s.respondError(w, http.StatusBadRequest, "broker is required when enabled")
		return
	}

	building, err := s.store.GetBuilding(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "building not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if building.Integrations == nil {
		building.Integrations = &models.IntegrationSettings{}
	}
	building.Integrations.MQTT = req

	if err := s.store.UpdateBuilding(ctx, building); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, building.Integrations)
}

// ========== Helper methods ==========

// HandleHealth health check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/v1/health",
	})
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// ========== Helper functions ==========

// pagination reads limit/offset query params with a default page size
func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// queryUUID reads an optional UUID query parameter; "all" counts as absent
func queryUUID(r *http.Request, name string) (uuid.UUID, bool) {
	v := r.URL.Query().Get(name)
	if v == "" || v == "all" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
