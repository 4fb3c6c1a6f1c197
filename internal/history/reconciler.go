// ABOUTME: Loads persisted conversation history into the ledger at session start
// ABOUTME: Double-checks record ownership so a misbehaving backend cannot leak other tenants

package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sensustec/sensus-chat/internal/client"
	"github.com/sensustec/sensus-chat/internal/ledger"
)

// DefaultPerPage matches the transcript window the web UI requests.
const DefaultPerPage = 10

// Fetcher defines what the reconciler needs from the API client.
type Fetcher interface {
	History(ctx context.Context, perPage int) ([]client.HistoryRecord, error)
}

// Reconciler fetches the most recent confirmed exchanges for the session
// owner and merges them into the ledger. The backend already scopes the
// query by session, but the backend is not assumed bug-free: every record
// is re-checked against the session owner here, and mismatches are dropped
// and counted rather than rendered.
type Reconciler struct {
	fetcher    Fetcher
	perPage    int
	logger     *slog.Logger
	violations atomic.Int64
}

// New creates a reconciler. perPage <= 0 falls back to DefaultPerPage.
func New(fetcher Fetcher, perPage int, logger *slog.Logger) *Reconciler {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		fetcher: fetcher,
		perPage: perPage,
		logger:  logger.With("component", "history"),
	}
}

// Reconcile loads history into led. On fetch failure the ledger is left
// untouched and the error returned; there is no automatic retry. The
// server returns newest first; the ledger wants oldest first.
func (r *Reconciler) Reconcile(ctx context.Context, led *ledger.Ledger) error {
	records, err := r.fetcher.History(ctx, r.perPage)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	owner := led.OwnerID()
	accepted := make([]ledger.Exchange, 0, len(records))
	for _, rec := range records {
		if rec.OwnerID != owner {
			r.violations.Add(1)
			r.logger.Warn("isolation violation: history record owned by another tenant",
				"record_id", rec.ID,
				"record_owner", rec.OwnerID,
				"session_owner", owner,
			)
			continue
		}
		accepted = append(accepted, ledger.Exchange{
			ID:        rec.ID,
			Question:  rec.Question,
			Answer:    rec.Answer,
			OwnerID:   rec.OwnerID,
			CreatedAt: rec.CreatedAt,
			Status:    ledger.StatusConfirmed,
		})
	}

	// Reverse newest-first to oldest-first.
	for i, j := 0, len(accepted)-1; i < j; i, j = i+1, j-1 {
		accepted[i], accepted[j] = accepted[j], accepted[i]
	}

	led.LoadConfirmed(accepted)
	return nil
}

// Violations returns how many cross-tenant records have been dropped.
// Exposed for diagnostics; an end user never sees these.
func (r *Reconciler) Violations() int64 {
	return r.violations.Load()
}
