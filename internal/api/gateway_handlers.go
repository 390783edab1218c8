package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
)

// ========== Gateway handlers ==========

// HandleListGateways lists gateways
func (s *RESTServer) HandleListGateways(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := storage.GatewayFilters{
		Search: r.URL.Query().Get("search"),
	}

	if id, ok := queryUUID(r, "building_id"); ok {
		filters.BuildingID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" && v != "all" {
		status := models.GatewayStatus(v)
		filters.Status = &status
	}

	limit, offset := pagination(r)

	gateways, total, err := s.store.ListGateways(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"gateways": gateways,
		"total":    total,
	})
}

// HandleCreateGateway registers a gateway
func (s *RESTServer) HandleCreateGateway(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GatewayID   int64  `json:"gateway_id" validate:"required"`
		Name        string `json:"name" validate:"required,min=2,max=200"`
		MAC         string `json:"mac"`
		BuildingID  string `json:"building_id"`
		NetworkName string `json:"network_name"`
		IPAddress   string `json:"ip_address"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	gateway := &models.Gateway{
		GatewayID:   req.GatewayID,
		Name:        req.Name,
		MAC:         req.MAC,
		Status:      models.GatewayStatusOffline,
		NetworkName: req.NetworkName,
		IPAddress:   req.IPAddress,
	}

	if req.BuildingID != "" {
		buildingID, err := uuid.Parse(req.BuildingID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid building id")
			return
		}
		gateway.BuildingID = &buildingID
	}

	if err := s.store.CreateGateway(r.Context(), gateway); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "gateway already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, gateway)
}

// HandleGetGateway gets a gateway
func (s *RESTServer) HandleGetGateway(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid gateway id")
		return
	}

	gateway, err := s.store.GetGateway(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "gateway not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, gateway)
}

// HandleUpdateGateway updates a gateway's local assignment
func (s *RESTServer) HandleUpdateGateway(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid gateway id")
		return
	}

	var req struct {
		Name        string `json:"name" validate:"required,min=2,max=200"`
		BuildingID  string `json:"building_id"`
		NetworkName string `json:"network_name"`
		IPAddress   string `json:"ip_address"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	gateway, err := s.store.GetGateway(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "gateway not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	gateway.Name = req.Name
	gateway.NetworkName = req.NetworkName
	gateway.IPAddress = req.IPAddress

	if req.BuildingID != "" {
		buildingID, err := uuid.Parse(req.BuildingID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid building id")
			return
		}
		gateway.BuildingID = &buildingID
	}

	if err := s.store.UpdateGateway(ctx, gateway); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, gateway)
}

// HandleDeleteGateway deletes a gateway
func (s *RESTServer) HandleDeleteGateway(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid gateway id")
		return
	}

	if err := s.store.DeleteGateway(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "gateway not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
