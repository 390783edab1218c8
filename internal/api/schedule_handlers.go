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
)

// ========== Access schedule handlers ==========

// HandleListSchedules lists access schedules
func (s *RESTServer) HandleListSchedules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := storage.ScheduleFilters{
		Search: r.URL.Query().Get("search"),
	}

	if id, ok := queryUUID(r, "user_id"); ok {
		filters.UserID = &id
	}
	if id, ok := queryUUID(r, "lock_id"); ok {
		filters.LockID = &id
	}
	if v := r.URL.Query().Get("schedule_type"); v != "" && v != "all" {
		scheduleType := models.ScheduleType(v)
		filters.ScheduleType = &scheduleType
	}
	if v := r.URL.Query().Get("status"); v != "" && v != "all" {
		status := models.ScheduleStatus(v)
		filters.Status = &status
	}

	limit, offset := pagination(r)

	schedules, total, err := s.store.ListAccessSchedules(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"schedules": schedules,
		"total":     total,
	})
}

// scheduleRequest is the write shape shared by create and update
type scheduleRequest struct {
	Name         string            `json:"name" validate:"required,min=2,max=200"`
	UserID       string            `json:"user_id" validate:"required"`
	LockID       string            `json:"lock_id" validate:"required"`
	CredentialID string            `json:"credential_id"`
	ScheduleType string            `json:"schedule_type" validate:"required"`
	StartDate    *time.Time        `json:"start_date"`
	EndDate      *time.Time        `json:"end_date"`
	DaysOfWeek   []string          `json:"days_of_week"`
	TimeSlots    []models.TimeSlot `json:"time_slots"`
	MaxUses      *int              `json:"max_uses"`
	Status       string            `json:"status"`
}

// apply copies the request into the schedule, leaving UseCount alone
func (req *scheduleRequest) apply(schedule *models.AccessSchedule) error {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return errors.New("invalid user id")
	}

	lockID, err := uuid.Parse(req.LockID)
	if err != nil {
		return errors.New("invalid lock id")
	}

	schedule.Name = req.Name
	schedule.UserID = userID
	schedule.LockID = lockID
	schedule.ScheduleType = models.ScheduleType(req.ScheduleType)
	schedule.StartDate = req.StartDate
	schedule.EndDate = req.EndDate
	schedule.DaysOfWeek = models.StringArray(req.DaysOfWeek)
	schedule.TimeSlots = models.TimeSlots(req.TimeSlots)
	schedule.MaxUses = req.MaxUses

	schedule.CredentialID = nil
	if req.CredentialID != "" {
		credentialID, err := uuid.Parse(req.CredentialID)
		if err != nil {
			return errors.New("invalid credential id")
		}
		schedule.CredentialID = &credentialID
	}

	schedule.Status = models.ScheduleStatusActive
	if req.Status != "" {
		schedule.Status = models.ScheduleStatus(req.Status)
	}

	return nil
}

// HandleCreateSchedule creates an access schedule
func (s *RESTServer) HandleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	schedule := &models.AccessSchedule{}
	if err := req.apply(schedule); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := validation.ValidateSchedule(schedule); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateAccessSchedule(r.Context(), schedule); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "schedule already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, schedule)
}

// HandleGetSchedule gets an access schedule
func (s *RESTServer) HandleGetSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}

	schedule, err := s.store.GetAccessSchedule(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "schedule not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, schedule)
}

// HandleUpdateSchedule updates an access schedule
func (s *RESTServer) HandleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	schedule, err := s.store.GetAccessSchedule(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "schedule not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := req.apply(schedule); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := validation.ValidateSchedule(schedule); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateAccessSchedule(ctx, schedule); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, schedule)
}

// HandleDeleteSchedule deletes an access schedule
func (s *RESTServer) HandleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}

	if err := s.store.DeleteAccessSchedule(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "schedule not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
