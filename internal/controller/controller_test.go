// ABOUTME: Tests for the conversation controller state machine
// ABOUTME: Covers guard short-circuits, commit/retract flows, single-flight, and balance handling

package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensustec/sensus-chat/internal/client"
	"github.com/sensustec/sensus-chat/internal/credit"
	"github.com/sensustec/sensus-chat/internal/ledger"
)

// mockAsker implements Asker for testing
type mockAsker struct {
	mu      sync.Mutex
	res     *client.AskResult
	err     error
	calls   int
	release chan struct{} // when set, Ask blocks until closed
}

func (m *mockAsker) Ask(ctx context.Context, question string) (*client.AskResult, error) {
	m.mu.Lock()
	m.calls++
	release := m.release
	m.mu.Unlock()

	if release != nil {
		<-release
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.res, nil
}

func (m *mockAsker) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestSubmit_EmptyQuestionNeverHitsNetwork(t *testing.T) {
	asker := &mockAsker{}
	c := New(ledger.New("u1", nil), asker, credit.New(5), nil)

	_, err := c.Submit(context.Background(), "   \t ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Equal(t, 0, asker.callCount())
	assert.Equal(t, StateIdle, c.State())
}

func TestSubmit_ZeroBalanceNeverHitsNetwork(t *testing.T) {
	asker := &mockAsker{}
	c := New(ledger.New("u1", nil), asker, credit.New(0), nil)

	_, err := c.Submit(context.Background(), "q")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 0, asker.callCount())
}

func TestSubmit_SuccessCommitsAndAppliesBalance(t *testing.T) {
	led := ledger.New("u1", nil)
	asker := &mockAsker{res: &client.AskResult{
		ExchangeID:       "srv-1",
		Question:         "What is X?",
		Answer:           "X is...",
		RemainingBalance: 0,
	}}
	c := New(led, asker, credit.New(1), nil)

	res, err := c.Submit(context.Background(), "What is X?")
	require.NoError(t, err)
	assert.Equal(t, "X is...", res.Answer)

	entries := led.Exchanges()
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.StatusConfirmed, entries[0].Status)
	assert.Equal(t, "srv-1", entries[0].ID)
	_, pending := led.Pending()
	assert.False(t, pending)

	assert.Equal(t, 0, c.Balance().Display())
	assert.Equal(t, StateIdle, c.State())

	// Spent down to zero: the next submit is a local rejection.
	_, err = c.Submit(context.Background(), "another")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 1, asker.callCount())
}

func TestSubmit_RejectionRetractsAndSurfacesVerbatim(t *testing.T) {
	led := ledger.New("u1", nil)
	asker := &mockAsker{err: &client.ServerRejection{StatusCode: 500, Message: "internal"}}
	c := New(led, asker, credit.New(5), nil)

	_, err := c.Submit(context.Background(), "Q")
	require.Error(t, err)
	assert.Equal(t, "internal", err.Error(), "server error string verbatim")

	assert.Equal(t, 0, led.Len(), "ledger returns to its pre-append state")
	b := c.Balance()
	assert.Equal(t, 5, b.Display(), "displayed balance keeps the last authoritative value")
	assert.False(t, b.Known, "true spend unknown until the next authoritative value")
	assert.Equal(t, StateIdle, c.State())
}

func TestSubmit_TransportErrorRetracts(t *testing.T) {
	led := ledger.New("u1", nil)
	asker := &mockAsker{err: &client.TransportError{}}
	c := New(led, asker, credit.New(3), nil)

	_, err := c.Submit(context.Background(), "Q")
	var te *client.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, led.Len())

	// Retry is possible; the debit was kept, not refunded.
	assert.True(t, c.Balance().CanSubmit())
	assert.Equal(t, 2, c.Balance().Available)
}

func TestSubmit_SingleFlight(t *testing.T) {
	led := ledger.New("u1", nil)
	release := make(chan struct{})
	asker := &mockAsker{
		res:     &client.AskResult{ExchangeID: "srv-1", Answer: "a", RemainingBalance: 4},
		release: release,
	}
	c := New(led, asker, credit.New(5), nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "q1")
		done <- err
	}()

	// Wait for the first submission to appear as pending.
	require.Eventually(t, func() bool {
		_, ok := led.Pending()
		return ok
	}, time.Second, time.Millisecond)

	_, err := c.Submit(context.Background(), "q2")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Equal(t, 1, led.Len(), "never two pending exchanges")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, asker.callCount())
}

func TestSetAuthoritativeBalance(t *testing.T) {
	c := New(ledger.New("u1", nil), &mockAsker{}, credit.New(0), nil)

	_, err := c.Submit(context.Background(), "q")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Top-up reported by the server unblocks submission.
	c.SetAuthoritativeBalance(10)
	assert.True(t, c.Balance().CanSubmit())
	assert.Equal(t, 10, c.Balance().Display())
}
