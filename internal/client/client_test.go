// ABOUTME: Tests for the REST client
// ABOUTME: Verifies error taxonomy mapping and cookie session handling against httptest servers

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what is x?", body["question"])

		json.NewEncoder(w).Encode(map[string]any{
			"id":                "srv-1",
			"question":          "what is x?",
			"answer":            "x is y",
			"remaining_balance": 4,
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	res, err := c.Ask(context.Background(), "what is x?")
	require.NoError(t, err)
	assert.Equal(t, "x is y", res.Answer)
	assert.Equal(t, "srv-1", res.ExchangeID)
	assert.Equal(t, 4, res.RemainingBalance)
}

func TestAsk_ServerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]string{"error": "Insufficient message balance"})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "q")
	var rej *ServerRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusPaymentRequired, rej.StatusCode)
	assert.Equal(t, "Insufficient message balance", rej.Message, "server error string surfaces verbatim")
}

func TestAsk_RejectionWithoutPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "q")
	var rej *ServerRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Bad Gateway", rej.Message)
}

func TestAsk_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "q")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "connection error", te.Error(), "transport failures show a generic message")
	assert.Error(t, te.Unwrap())
}

func TestHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/history", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))

		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{
				{"id": "2", "question": "q2", "answer": "a2", "user_id": "u1", "created_at": "2026-08-30T12:00:00Z"},
				{"id": "1", "question": "q1", "answer": "a1", "user_id": "u1", "created_at": "2026-08-30T11:00:00Z"},
			},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	records, err := c.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2", records[0].ID, "server order is newest first")
	assert.Equal(t, "u1", records[0].OwnerID)
}

func TestLogin_StoresSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "tok-123", Path: "/"})
		json.NewEncoder(w).Encode(map[string]any{
			"user_id": "u1", "username": "alice", "message_balance": 7,
		})
	})
	mux.HandleFunc("/api/chat/stats", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		require.NoError(t, err, "session cookie must be replayed")
		assert.Equal(t, "tok-123", cookie.Value)
		json.NewEncoder(w).Encode(map[string]any{"total_messages_sent": 3, "remaining_balance": 7})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	sess, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, 7, sess.Balance)

	stats, err := c.UsageStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalSent)
}
