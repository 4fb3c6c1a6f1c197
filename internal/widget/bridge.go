// ABOUTME: Best-effort identity announcement to the embedded third-party chat widget
// ABOUTME: Fire-and-forget with one deferred attempt after widget load; never touches ledger or balance

package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultAnnounceDelay gives the widget's internal boot sequence time to
// finish before the automatic post-load announcement.
const DefaultAnnounceDelay = 2 * time.Second

// Message is the outbound identity payload. The widget defines no response
// contract; delivery is best-effort with no acknowledgment channel.
type Message struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// Poster delivers a message to the widget's channel.
type Poster interface {
	Post(ctx context.Context, msg Message) error
}

// Bridge announces the authenticated user to the external widget. Failures
// here are cosmetic: they are logged and swallowed, never propagated as
// conversation errors.
type Bridge struct {
	poster   Poster
	username string
	userID   string
	delay    time.Duration
	logger   *slog.Logger
}

// New creates a bridge with the default post-load announce delay.
func New(poster Poster, username, userID string, logger *slog.Logger) *Bridge {
	return NewWithDelay(poster, username, userID, DefaultAnnounceDelay, logger)
}

// NewWithDelay creates a bridge with a custom announce delay. Used by tests.
func NewWithDelay(poster Poster, username, userID string, delay time.Duration, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		poster:   poster,
		username: username,
		userID:   userID,
		delay:    delay,
		logger:   logger.With("component", "widget"),
	}
}

// Announce sends the identity message once. Best effort: the widget may
// ignore it or never receive it, and the caller gets no failure signal.
func (b *Bridge) Announce(ctx context.Context) {
	msg := Message{Type: "setUser", Username: b.username, UserID: b.userID}
	if err := b.poster.Post(ctx, msg); err != nil {
		b.logger.Warn("identity announce failed", "error", err, "username", b.username)
		return
	}
	b.logger.Debug("identity announced", "username", b.username)
}

// WidgetLoaded schedules the single automatic announcement that follows a
// widget load signal. The deferred attempt runs detached and is not
// cancelled on teardown; there is no retry beyond it.
func (b *Bridge) WidgetLoaded() {
	time.AfterFunc(b.delay, func() {
		b.Announce(context.Background())
	})
}

// HTTPPoster delivers widget messages as JSON posts to a channel URL.
type HTTPPoster struct {
	URL  string
	HTTP *http.Client
}

// Post implements Poster.
func (p *HTTPPoster) Post(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding widget message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating widget request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := p.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting widget message: %w", err)
	}
	resp.Body.Close()
	return nil
}
