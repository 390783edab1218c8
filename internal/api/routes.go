package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		// Users
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListUsers)
			r.With(s.managerOnly).Post("/", s.HandleCreateUser)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetUser)
				r.With(s.managerOnly).Put("/", s.HandleUpdateUser)
				r.With(s.managerOnly).Delete("/", s.HandleDeleteUser)
			})
		})

		// Buildings
		r.Route("/buildings", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListBuildings)
			r.With(s.managerOnly).Post("/", s.HandleCreateBuilding)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetBuilding)
				r.With(s.managerOnly).Put("/", s.HandleUpdateBuilding)
				r.With(s.managerOnly).Delete("/", s.HandleDeleteBuilding)
				// Integration endpoints
				r.Route("/integrations", func(r chi.Router) {
					r.Use(s.managerOnly)
					r.Get("/", s.HandleGetIntegrations)
					r.Put("/http", s.HandleUpdateHTTPIntegration)
					r.Put("/mqtt", s.HandleUpdateMQTTIntegration)
				})
			})
		})

		// Locks
		r.Route("/locks", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListLocks)
			r.With(s.managerOnly).Post("/", s.HandleCreateLock)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetLock)
				r.With(s.managerOnly).Put("/", s.HandleUpdateLock)
				r.With(s.managerOnly).Delete("/", s.HandleDeleteLock)
				r.Post("/unlock", s.HandleUnlockLock)
			})
		})

		// Gateways
		r.Route("/gateways", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListGateways)
			r.With(s.managerOnly).Post("/", s.HandleCreateGateway)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetGateway)
				r.With(s.managerOnly).Put("/", s.HandleUpdateGateway)
				r.With(s.managerOnly).Delete("/", s.HandleDeleteGateway)
			})
		})

		// Credentials
		r.Route("/credentials", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListCredentials)
			r.With(s.managerOnly).Post("/", s.HandleCreateCredential)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetCredential)
				r.With(s.managerOnly).Put("/", s.HandleUpdateCredential)
				r.With(s.managerOnly).Delete("/", s.HandleDeleteCredential)
			})
		})

		// Access schedules
		r.Route("/schedules", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListSchedules)
			r.With(s.managerOnly).Post("/", s.HandleCreateSchedule)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetSchedule)
				r.With(s.managerOnly).Put("/", s.HandleUpdateSchedule)
				r.With(s.managerOnly).Delete("/", s.HandleDeleteSchedule)
			})
		})

		// Activity logs
		r.Route("/activity", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListActivityLogs)
		})

		// Access evaluation
		r.Route("/access", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/check", s.HandleAccessCheck)
		})

		// Reports
		r.Route("/reports", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/stats", s.HandleDashboardStats)
		})

		// TTLock cloud sync
		r.Route("/ttlock", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/status", s.HandleSyncStatus)
			r.With(s.managerOnly).Post("/sync", s.HandleSyncNow)
		})
	})
}
