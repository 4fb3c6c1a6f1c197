// ABOUTME: HTTP server wiring for the sensus-chat REST API
// ABOUTME: Routes, session middleware, and JSON response helpers

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sensustec/sensus-chat/internal/assistant"
	"github.com/sensustec/sensus-chat/internal/auth"
	"github.com/sensustec/sensus-chat/internal/store"
)

// Server exposes the metered chat API over HTTP.
type Server struct {
	store    store.Store
	answerer assistant.Answerer
	sessions *auth.Sessions
	perPage  int
	logger   *slog.Logger
}

// New creates a server over the given collaborators.
func New(st store.Store, answerer assistant.Answerer, sessions *auth.Sessions, historyPerPage int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if historyPerPage <= 0 {
		historyPerPage = 10
	}
	return &Server{
		store:    st,
		answerer: answerer,
		sessions: sessions,
		perPage:  historyPerPage,
		logger:   logger.With("component", "server"),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux.HandleFunc("POST /api/chat", s.requireUser(s.handleChat))
	mux.HandleFunc("GET /api/chat/history", s.requireUser(s.handleHistory))
	mux.HandleFunc("GET /api/chat/stats", s.requireUser(s.handleStats))

	mux.HandleFunc("GET /api/admin/users", s.requireAdmin(s.handleListUsers))
	mux.HandleFunc("POST /api/admin/users/{id}/balance", s.requireAdmin(s.handleAdjustBalance))
	mux.HandleFunc("GET /api/admin/chat/history", s.requireAdmin(s.handleAllHistory))
	mux.HandleFunc("GET /admin/transcript", s.requireAdmin(s.handleTranscript))

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ping", s.handlePing)

	return mux
}

type contextKey string

const userKey contextKey = "user"

// sessionUser resolves the authenticated user from the session cookie.
func (s *Server) sessionUser(r *http.Request) (*store.User, error) {
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return nil, errors.New("no session")
	}
	userID, err := s.sessions.Verify(cookie.Value)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errors.New("account disabled")
	}
	return user, nil
}

// requireUser wraps a handler with session authentication.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.sessionUser(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	}
}

// requireAdmin wraps a handler with session authentication plus an admin check.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r).UserType != store.UserTypeAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	})
}

// currentUser returns the authenticated user placed by requireUser.
func currentUser(r *http.Request) *store.User {
	return r.Context().Value(userKey).(*store.User)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}
