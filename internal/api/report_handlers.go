package api

import (
	"net/http"
	"time"

	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
	"github.com/lockmaster/lockmaster-server/internal/ttlock"
)

// ========== Activity log handlers ==========

// HandleListActivityLogs lists activity logs with the report filters
func (s *RESTServer) HandleListActivityLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := storage.ActivityLogFilters{
		Search: r.URL.Query().Get("search"),
	}

	if id, ok := queryUUID(r, "user_id"); ok {
		filters.UserID = &id
	}
	if id, ok := queryUUID(r, "lock_id"); ok {
		filters.LockID = &id
	}
	if id, ok := queryUUID(r, "building_id"); ok {
		filters.BuildingID = &id
	}
	if v := r.URL.Query().Get("activity_type"); v != "" && v != "all" {
		activityType := models.ActivityType(v)
		filters.ActivityType = &activityType
	}
	if v := r.URL.Query().Get("method"); v != "" && v != "all" {
		method := models.AccessMethod(v)
		filters.Method = &method
	}
	if v := r.URL.Query().Get("success"); v == "true" || v == "false" {
		success := v == "true"
		filters.Success = &success
	}
	if v := r.URL.Query().Get("start_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.StartTime = &t
		}
	}
	if v := r.URL.Query().Get("end_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.EndTime = &t
		}
	}

	limit, offset := pagination(r)

	entries, total, err := s.store.ListActivityLogs(ctx, filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"activity": entries,
		"total":    total,
	})
}

// ========== Dashboard ==========

// HandleDashboardStats returns the portal dashboard summary
func (s *RESTServer) HandleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetDashboardStats(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, stats)
}

// ========== TTLock sync handlers ==========

// HandleSyncStatus reports the cloud sync state
func (s *RESTServer) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		s.respondError(w, http.StatusServiceUnavailable, "cloud sync is not configured")
		return
	}

	s.respondJSON(w, http.StatusOK, s.sync.Status())
}

// HandleSyncNow triggers an immediate inventory sync
func (s *RESTServer) HandleSyncNow(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		s.respondError(w, http.StatusServiceUnavailable, "cloud sync is not configured")
		return
	}

	if err := s.sync.SyncNow(r.Context()); err != nil {
		if err == ttlock.ErrSyncInProgress {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, s.sync.Status())
}
