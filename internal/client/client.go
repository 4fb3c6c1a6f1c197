// ABOUTME: HTTP client for the sensus-chat REST API with cookie-based sessions
// ABOUTME: Defines the transport/rejection error taxonomy surfaced to the conversation flow

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// TransportError wraps a network-level failure (unreachable server,
// timeout). The user-visible message is a generic connection error; the
// underlying cause is preserved for logs.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "connection error" }
func (e *TransportError) Unwrap() error { return e.Err }

// ServerRejection is a non-2xx response carrying the server's error
// payload. The Message is surfaced to the user verbatim.
type ServerRejection struct {
	StatusCode int
	Message    string
}

func (e *ServerRejection) Error() string { return e.Message }

// Client talks to the sensus-chat backend. Authentication is an opaque
// session cookie captured by the jar at login.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Session identifies the authenticated user after login.
type Session struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Balance  int    `json:"message_balance"`
	IsAdmin  bool   `json:"is_admin"`
}

// Login authenticates with username and password and stores the session
// cookie for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	body := map[string]string{"username": username, "password": password}
	var sess Session
	if err := c.postJSON(ctx, "/api/auth/login", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Logout clears the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.postJSON(ctx, "/api/auth/logout", struct{}{}, nil)
}

// AskResult is the server's answer to an accepted question.
type AskResult struct {
	Question         string `json:"question"`
	Answer           string `json:"answer"`
	ExchangeID       string `json:"id"`
	RemainingBalance int    `json:"remaining_balance"`
}

// Ask submits a question. A non-2xx response returns a *ServerRejection
// with the server's error string; network failures return a
// *TransportError.
func (c *Client) Ask(ctx context.Context, question string) (*AskResult, error) {
	var res AskResult
	if err := c.postJSON(ctx, "/api/chat", map[string]string{"question": question}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// HistoryRecord is one persisted exchange as returned by the history
// endpoint, newest first.
type HistoryRecord struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	OwnerID   string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	Messages []HistoryRecord `json:"messages"`
}

// History fetches the most recent perPage exchanges for the session user,
// newest first.
func (c *Client) History(ctx context.Context, perPage int) ([]HistoryRecord, error) {
	var resp historyResponse
	url := fmt.Sprintf("%s/api/chat/history?per_page=%d", c.baseURL, perPage)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Stats is the per-user usage summary.
type Stats struct {
	TotalSent        int `json:"total_messages_sent"`
	RemainingBalance int `json:"remaining_balance"`
}

// UsageStats fetches the session user's usage summary.
func (c *Client) UsageStats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.getJSON(ctx, c.baseURL+"/api/chat/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServerRejection{
			StatusCode: resp.StatusCode,
			Message:    rejectionMessage(data, resp.StatusCode),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// rejectionMessage extracts the server's error string from a failure
// payload, falling back to the HTTP status when the body is unusable.
func rejectionMessage(data []byte, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return http.StatusText(status)
}
