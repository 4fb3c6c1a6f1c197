// ABOUTME: Admin handlers for user listing, balance adjustment, and global history
// ABOUTME: All routes here sit behind the admin session middleware

package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sensustec/sensus-chat/internal/store"
)

type adminUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	UserType       string    `json:"user_type"`
	MessageBalance int       `json:"message_balance"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

type adjustBalanceRequest struct {
	Delta int `json:"delta"`
}

type adjustBalanceResponse struct {
	UserID         string `json:"user_id"`
	MessageBalance int    `json:"message_balance"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	params := store.ListUsersParams{
		Search: r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			params.Limit = n
		}
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 1 {
			limit := params.Limit
			if limit <= 0 {
				limit = 20
			}
			params.Offset = (page - 1) * limit
		}
	}

	users, err := s.store.ListUsers(r.Context(), params)
	if err != nil {
		s.logger.Error("listing users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	out := make([]adminUser, 0, len(users))
	for _, u := range users {
		out = append(out, adminUser{
			ID:             u.ID,
			Username:       u.Username,
			Email:          u.Email,
			UserType:       u.UserType,
			MessageBalance: u.MessageBalance,
			IsActive:       u.IsActive,
			CreatedAt:      u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out, "total": len(out)})
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	var req adjustBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, err := s.store.AdjustBalance(r.Context(), userID, req.Delta)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.logger.Error("adjusting balance failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "Failed to adjust balance")
		return
	}

	s.logger.Info("balance adjusted",
		"user_id", userID,
		"delta", req.Delta,
		"new_balance", balance,
		"admin", currentUser(r).Username,
	)
	writeJSON(w, http.StatusOK, adjustBalanceResponse{UserID: userID, MessageBalance: balance})
}

func (s *Server) handleAllHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	exchanges, err := s.store.AllHistory(r.Context(), limit)
	if err != nil {
		s.logger.Error("loading global history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	messages := make([]historyMessage, 0, len(exchanges))
	for _, ex := range exchanges {
		messages = append(messages, historyMessage{
			ID:        ex.ID,
			Question:  ex.Question,
			Answer:    ex.Answer,
			OwnerID:   ex.UserID,
			CreatedAt: ex.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages, "total": len(messages)})
}
