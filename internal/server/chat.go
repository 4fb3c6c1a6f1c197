// ABOUTME: Chat submission, history, and stats handlers
// ABOUTME: The transactional balance decrement here is the authoritative spend check

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sensustec/sensus-chat/internal/assistant"
	"github.com/sensustec/sensus-chat/internal/store"
)

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	ID               string `json:"id"`
	Question         string `json:"question"`
	Answer           string `json:"answer"`
	RemainingBalance int    `json:"remaining_balance"`
}

// historyMessage mirrors the shape the web client consumes. The redundant
// IsolatedUserID field confirms which session the record was filtered for.
type historyMessage struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	OwnerID        string    `json:"user_id"`
	IsolatedUserID string    `json:"isolated_user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type historyResponse struct {
	Messages       []historyMessage `json:"messages"`
	Total          int              `json:"total"`
	UserID         string           `json:"user_id"`
	IsolationCheck bool             `json:"isolation_check"`
}

type statsResponse struct {
	TotalSent        int        `json:"total_messages_sent"`
	RemainingBalance int        `json:"remaining_balance"`
	UserSince        *time.Time `json:"user_since,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	// Pre-check before spending an upstream call. The transactional
	// decrement below re-checks; this only avoids burning model tokens.
	if user.MessageBalance <= 0 {
		writeError(w, http.StatusPaymentRequired, "Insufficient message balance")
		return
	}

	answer, err := s.answerer.Answer(r.Context(), question, assistant.Identity{
		UserID:   user.ID,
		Username: user.Username,
	})
	if err != nil {
		s.logger.Error("answer generation failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusBadGateway, "Failed to generate answer")
		return
	}

	ex := &store.Exchange{
		ID:       uuid.New().String(),
		UserID:   user.ID,
		Question: question,
		Answer:   answer,
	}
	remaining, err := s.store.RecordExchange(r.Context(), ex)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientBalance) {
			writeError(w, http.StatusPaymentRequired, "Insufficient message balance")
			return
		}
		s.logger.Error("recording exchange failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to save conversation")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ID:               ex.ID,
		Question:         question,
		Answer:           answer,
		RemainingBalance: remaining,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	perPage := s.perPage
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			perPage = n
		}
	}

	exchanges, err := s.store.History(r.Context(), user.ID, perPage)
	if err != nil {
		s.logger.Error("loading history failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	// The query is already owner-scoped; filter again anyway so a storage
	// bug can never leak another tenant's conversation into the response.
	messages := make([]historyMessage, 0, len(exchanges))
	for _, ex := range exchanges {
		if ex.UserID != user.ID {
			s.logger.Warn("isolation violation: exchange owned by another user",
				"exchange_id", ex.ID,
				"exchange_owner", ex.UserID,
				"session_user", user.ID,
			)
			continue
		}
		messages = append(messages, historyMessage{
			ID:             ex.ID,
			Question:       ex.Question,
			Answer:         ex.Answer,
			OwnerID:        ex.UserID,
			IsolatedUserID: user.ID,
			CreatedAt:      ex.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Messages:       messages,
		Total:          len(messages),
		UserID:         user.ID,
		IsolationCheck: true,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	count, err := s.store.CountExchanges(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("counting exchanges failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	resp := statsResponse{
		TotalSent:        count,
		RemainingBalance: user.MessageBalance,
	}
	if !user.CreatedAt.IsZero() {
		resp.UserSince = &user.CreatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}
