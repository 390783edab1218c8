package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
	"github.com/lockmaster/lockmaster-server/internal/validation"
	"github.com/lockmaster/lockmaster-server/pkg/crypto"
)

const maskedValue = "****"

// maskCredential hides the stored value of secret-bearing credentials.
// The ciphertext never leaves the server.
func maskCredential(c *models.Credential) *models.Credential {
	if !c.CredentialType.Secret() || c.CredentialValue == "" {
		return c
	}
	masked := *c
	masked.CredentialValue = maskedValue
	return &masked
}

func maskCredentials(credentials []*models.Credential) []*models.Credential {
	masked := make([]*models.Credential, len(credentials))
	for i, c := range credentials {
		masked[i] = maskCredential(c)
	}
	return masked
}

// ========== Credential handlers ==========

// HandleListCredentials lists credentials
func (s *RESTServer) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := storage.CredentialFilters{
		Search: r.URL.Query().Get("search"),
	}

	if id, ok := queryUUID(r, "user_id"); ok {
		filters.UserID = &id
	}
	if id, ok := queryUUID(r, "lock_id"); ok {
		filters.LockID = &id
	}
	if v := r.URL.Query().Get("credential_type"); v != "" && v != "all" {
		credentialType := models.CredentialType(v)
		filters.CredentialType = &credentialType
	}
	if v := r.URL.Query().Get("status"); v != "" && v != "all" {
		status := models.CredentialStatus(v)
		filters.Status = &status
	}

	limit, offset := pagination(r)

	credentials, total, err := s.store.ListCredentials(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"credentials": maskCredentials(credentials),
		"total":       total,
	})
}

// HandleCreateCredential creates a credential. PIN values are encrypted
// before they reach storage.
func (s *RESTServer) HandleCreateCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string     `json:"name" validate:"required,min=2,max=200"`
		UserID          string     `json:"user_id" validate:"required"`
		LockID          string     `json:"lock_id" validate:"required"`
		CredentialType  string     `json:"credential_type" validate:"required"`
		CredentialValue string     `json:"credential_value"`
		ValidFrom       *time.Time `json:"valid_from"`
		ValidUntil      *time.Time `json:"valid_until"`
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

	credential := &models.Credential{
		Name:            req.Name,
		UserID:          userID,
		LockID:          lockID,
		CredentialType:  models.CredentialType(req.CredentialType),
		CredentialValue: req.CredentialValue,
		Status:          models.CredentialStatusActive,
		ValidFrom:       time.Now(),
		ValidUntil:      req.ValidUntil,
	}
	if req.ValidFrom != nil {
		credential.ValidFrom = *req.ValidFrom
	}

	if err := validation.ValidateCredential(credential); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if credential.CredentialType.Secret() && credential.CredentialValue != "" {
		if s.config.Security.CredentialKey == "" {
			s.respondError(w, http.StatusInternalServerError, "credential encryption is not configured")
			return
		}
		encrypted, err := crypto.EncryptString(s.config.Security.CredentialKey, credential.CredentialValue)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to encrypt credential")
			return
		}
		credential.CredentialValue = encrypted
	}

	if err := s.store.CreateCredential(r.Context(), credential); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "credential already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, maskCredential(credential))
}

// HandleGetCredential gets a credential
func (s *RESTServer) HandleGetCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid credential id")
		return
	}

	credential, err := s.store.GetCredential(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "credential not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, maskCredential(credential))
}

// HandleUpdateCredential updates a credential
func (s *RESTServer) HandleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid credential id")
		return
	}

	var req struct {
		Name            string     `json:"name" validate:"required,min=2,max=200"`
		CredentialValue string     `json:"credential_value"`
		Status          string     `json:"status"`
		ValidFrom       *time.Time `json:"valid_from"`
		ValidUntil      *time.Time `json:"valid_until"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	credential, err := s.store.GetCredential(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "credential not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	credential.Name = req.Name

	if req.Status != "" {
		status := models.CredentialStatus(req.Status)
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid status")
			return
		}
		credential.Status = status
	}

	if req.ValidFrom != nil {
		credential.ValidFrom = *req.ValidFrom
	}
	if req.ValidUntil != nil {
		credential.ValidUntil = req.ValidUntil
	}

	if err := validation.ValidateCredential(credential); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.CredentialValue != "" && req.CredentialValue != maskedValue {
		value := req.CredentialValue
		if credential.CredentialType.Secret() {
			if s.config.Security.CredentialKey == "" {
				s.respondError(w, http.StatusInternalServerError, "credential encryption is not configured")
				return
			}
			value, err = crypto.EncryptString(s.config.Security.CredentialKey, value)
			if err != nil {
				s.respondError(w, http.StatusInternalServerError, "failed to encrypt credential")
				return
			}
		}
		credential.CredentialValue = value
	}

	if err := s.store.UpdateCredential(ctx, credential); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, maskCredential(credential))
}

// HandleDeleteCredential deletes a credential
func (s *RESTServer) HandleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid credential id")
		return
	}

	if err := s.store.DeleteCredential(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "credential not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
