// ABOUTME: Conversation controller driving the metered submit flow
// ABOUTME: Guards balance and single-flight, appends optimistically, commits or retracts on outcome

package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/sensustec/sensus-chat/internal/client"
	"github.com/sensustec/sensus-chat/internal/credit"
	"github.com/sensustec/sensus-chat/internal/ledger"
)

// Guard errors. All of these are decided locally, before any network call.
var (
	ErrEmptyQuestion       = errors.New("question must not be empty")
	ErrInsufficientBalance = errors.New("insufficient message balance")
	ErrSubmissionInFlight  = errors.New("a submission is already in progress")
)

// State is the controller's submission state.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
)

// Asker defines what the controller needs from the API client.
type Asker interface {
	Ask(ctx context.Context, question string) (*client.AskResult, error)
}

// Controller orchestrates metered question submission for one session.
// At most one submission is in flight at a time; a second Submit while one
// is pending is rejected rather than queued, so each server response maps
// unambiguously to one optimistic ledger entry.
type Controller struct {
	mu      sync.Mutex
	state   State
	balance credit.Balance
	led     *ledger.Ledger
	asker   Asker
	logger  *slog.Logger
}

// New creates a controller over the given ledger with a starting balance.
func New(led *ledger.Ledger, asker Asker, balance credit.Balance, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		state:   StateIdle,
		balance: balance,
		led:     led,
		asker:   asker,
		logger:  logger.With("component", "controller"),
	}
}

// Submit runs one question through the metered flow: guard checks, an
// optimistic ledger append and advisory debit, the backend call, then
// commit or retract. On failure the optimistic entry is removed and the
// balance is marked unknown; the local debit is not refunded, because the
// server may or may not have charged it. The returned error is either a
// guard error (no network call happened), a *client.ServerRejection whose
// message is safe to show verbatim, or a *client.TransportError.
func (c *Controller) Submit(ctx context.Context, question string) (*client.AskResult, error) {
	question = strings.TrimSpace(question)

	c.mu.Lock()
	if question == "" {
		c.mu.Unlock()
		return nil, ErrEmptyQuestion
	}
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if !c.balance.CanSubmit() {
		c.mu.Unlock()
		return nil, ErrInsufficientBalance
	}

	optimistic, err := c.led.AppendOptimistic(question)
	if err != nil {
		// Unreachable while the Submitting guard holds; treat as in-flight.
		c.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	c.balance = c.balance.OptimisticDebit()
	c.state = StateSubmitting
	c.mu.Unlock()

	res, askErr := c.asker.Ask(ctx, question)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle

	if askErr != nil {
		if err := c.led.Retract(optimistic.ID); err != nil {
			c.logger.Error("retract of optimistic exchange failed", "error", err, "temp_id", optimistic.ID)
		}
		c.balance = c.balance.MarkUnknown()
		c.logger.Warn("submission failed", "error", askErr)
		return nil, askErr
	}

	if err := c.led.Commit(optimistic.ID, res.ExchangeID, res.Answer); err != nil {
		// Commit only fails if the pending entry vanished, which breaks
		// the single-flight invariant.
		c.logger.Error("commit of optimistic exchange failed", "error", err, "temp_id", optimistic.ID)
		return nil, err
	}
	c.balance = c.balance.Authoritate(res.RemainingBalance)
	c.logger.Debug("exchange committed", "server_id", res.ExchangeID, "remaining_balance", res.RemainingBalance)
	return res, nil
}

// Balance returns the current balance snapshot.
func (c *Controller) Balance() credit.Balance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// SetAuthoritativeBalance applies a server-reported balance, e.g. after a
// stats fetch or an admin top-up. This is the single update path for
// balance truth outside of Submit.
func (c *Controller) SetAuthoritativeBalance(serverCredits int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance = c.balance.Authoritate(serverCredits)
}

// State returns the current submission state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
