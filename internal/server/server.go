package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/michaelbrown/boarman/internal/runtime"
	"github.com/michaelbrown/boarman/internal/storage"
)

// Server is the HTTP server for the boarman API.
type Server struct {
	rt     *runtime.Runtime
	store  storage.Store
	rooms  *RoomManager
	router chi.Router
	http   *http.Server
}

// New creates a new Server.
func New(rt *runtime.Runtime, store storage.Store) *Server {
	s := &Server{
		rt:     rt,
		store:  store,
		rooms:  NewRoomManager(),
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)

		r.Get("/character", s.handleGetCharacter)
		r.Get("/actions", s.handleListActions)

		// Rooms
		r.Get("/rooms", s.handleListRooms)
		r.Delete("/rooms/{room}", s.handleDeleteRoom)
		r.Get("/rooms/{room}/messages", s.handleGetMessages)
		r.Post("/rooms/{room}/messages", s.handleSendMessage)

		// WebSocket (no JSON content-type)
		r.Get("/rooms/{room}/ws", s.handleWebSocket)

		// Analyses
		r.Get("/analyses", s.handleListAnalyses)
		r.Get("/analyses/export", s.handleExportAnalyses)
		r.Get("/analyses/{id}", s.handleGetAnalysis)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start begins listening on the given port. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	slog.Info("boarman server starting", "addr", "http://localhost"+addr, "character", s.rt.Character().Name)
	return s.http.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	s.rooms.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
