package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// requestTimeout bounds every API call except the websocket stream.
const requestTimeout = 30 * time.Second

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.config, s.sessionManager, s.authGate)
	configHandler := handlers.NewConfigHandler(s.config, s.service)
	identitiesHandler := handlers.NewIdentitiesHandler(s.service)
	attendanceHandler := handlers.NewAttendanceHandler(s.service)
	descriptorsHandler := handlers.NewDescriptorsHandler(s.service)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)
		r.Post("/auth/register", authHandler.Register)

		r.Group(func(r chi.Router) {
			// Until an operator account exists the API is open, e.g. on a kiosk LAN.
			r.Use(middleware.RequireAuthWhenGated(s.sessionManager, s.authGate))

			r.Get("/attendance/stream", s.hub.ServeWS)

			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.Timeout(requestTimeout))

				r.Get("/config", configHandler.Get)

				// Identities
				r.Get("/identities", identitiesHandler.List)
				r.Post("/identities", identitiesHandler.Enroll)
				r.Get("/identities/{id}", identitiesHandler.Get)
				r.Post("/identities/{id}/descriptors", identitiesHandler.AddFace)

				// Attendance
				r.Post("/attendance", attendanceHandler.Mark)
				r.Get("/attendance", attendanceHandler.List)

				// Descriptor cache
				r.Post("/descriptors/refresh", descriptorsHandler.Refresh)
				r.Post("/descriptors/neighbors", descriptorsHandler.Neighbors)
			})
		})
	})
}
