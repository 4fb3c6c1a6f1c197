// ABOUTME: Tests for the widget identity bridge
// ABOUTME: Verifies message shape, delayed post-load announce, and error swallowing

package widget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPoster implements Poster for testing
type mockPoster struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (m *mockPoster) Post(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockPoster) messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.msgs))
	copy(out, m.msgs)
	return out
}

func TestAnnounce(t *testing.T) {
	poster := &mockPoster{}
	b := New(poster, "alice", "u1", nil)

	b.Announce(context.Background())

	msgs := poster.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Message{Type: "setUser", Username: "alice", UserID: "u1"}, msgs[0])
}

func TestAnnounce_SwallowsErrors(t *testing.T) {
	poster := &mockPoster{err: errors.New("widget unreachable")}
	b := New(poster, "alice", "u1", nil)

	// Must not panic or propagate.
	b.Announce(context.Background())
	assert.Empty(t, poster.messages())
}

func TestWidgetLoaded_AnnouncesAfterDelay(t *testing.T) {
	poster := &mockPoster{}
	b := NewWithDelay(poster, "alice", "u1", 10*time.Millisecond, nil)

	b.WidgetLoaded()
	assert.Empty(t, poster.messages(), "no announce before the boot delay")

	assert.Eventually(t, func() bool {
		return len(poster.messages()) == 1
	}, time.Second, 5*time.Millisecond)

	// Exactly one automatic attempt per load signal.
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, poster.messages(), 1)
}

func TestHTTPPoster(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	p := &HTTPPoster{URL: srv.URL}
	err := p.Post(context.Background(), Message{Type: "setUser", Username: "bob", UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
}
