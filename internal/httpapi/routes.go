package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes builds the HTTP mux. The websocket handler is mounted alongside
// so the whole server listens on one port.
func (a *API) Routes(wsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", a.handleHealth)
	r.Post("/rooms", a.handleCreateRoom)
	r.Post("/rooms/quick-join", a.handleQuickJoin)
	r.Post("/rooms/{code}/join", func(w http.ResponseWriter, req *http.Request) {
		a.handleJoinRoom(w, req, chi.URLParam(req, "code"))
	})
	r.Handle("/ws", wsHandler)

	return r
}
