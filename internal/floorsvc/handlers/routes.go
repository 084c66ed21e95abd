package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)

			r.Get("/board", h.BoardHandler)
			r.Post("/board/drop", h.DropHandler)
			r.Post("/board/drag-start", h.DragStartHandler)
			r.Post("/board/drag-end", h.DragEndHandler)
			r.Post("/board/arm", h.ArmHandler)
			r.Post("/board/disarm", h.DisarmHandler)
			r.Post("/board/tap", h.TapHandler)

			r.Post("/tables/{tableNumber}/start", h.StartGameHandler)
			r.Post("/tables/{tableNumber}/end", h.EndGameHandler)
			r.Post("/tables/end-all", h.EndAllGamesHandler)

			r.Get("/users", h.ListUsersHandler)
			r.Post("/users", h.CreateUserHandler)
			r.Delete("/users/{id}", h.DeleteUserHandler)
			r.Post("/users/{id}/toggle-online", h.ToggleOnlineHandler)
			r.Post("/users/{id}/status", h.SetStatusHandler)
			r.Get("/users/counts", h.CountsHandler)
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 8003041,
		"exp":        expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}
