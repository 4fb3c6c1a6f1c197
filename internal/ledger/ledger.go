// ABOUTME: In-memory ordered transcript of question/answer exchanges for one session
// ABOUTME: Supports optimistic append, commit/retract, and owner-checked history loading

package ledger

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ledger errors
var (
	// ErrNoPending is returned when a commit or retract names a temp id
	// with no matching pending exchange. It signals a double-commit or
	// an out-of-order commit, both invariant violations.
	ErrNoPending = errors.New("no pending exchange with that id")

	// ErrPendingExists is returned when an optimistic append is attempted
	// while another exchange is still pending.
	ErrPendingExists = errors.New("an exchange is already pending")
)

// Status is the lifecycle state of an exchange.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Exchange is one question/answer turn of a conversation.
type Exchange struct {
	ID        string
	Question  string
	Answer    string
	OwnerID   string
	CreatedAt time.Time
	Status    Status
}

// ViolationFunc receives history records dropped because their owner does
// not match the ledger's owner. Used as an observability sink; dropped
// records are never rendered.
type ViolationFunc func(record Exchange)

// Ledger is an ordered, oldest-first transcript scoped to exactly one
// owner. At most one exchange may be pending at a time.
type Ledger struct {
	mu          sync.Mutex
	ownerID     string
	entries     []Exchange
	onViolation ViolationFunc
	logger      *slog.Logger
}

// New creates an empty ledger for the given owner.
func New(ownerID string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		ownerID: ownerID,
		logger:  logger.With("component", "ledger", "owner_id", ownerID),
	}
}

// OnViolation registers a sink for dropped cross-owner history records.
func (l *Ledger) OnViolation(fn ViolationFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onViolation = fn
}

// OwnerID returns the owner this ledger is scoped to.
func (l *Ledger) OwnerID() string {
	return l.ownerID
}

// AppendOptimistic adds a pending exchange with a locally generated
// temporary id at the end of the transcript. The entry is visible
// immediately, before any server round trip.
func (l *Ledger) AppendOptimistic(question string) (Exchange, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pendingIndex() >= 0 {
		return Exchange{}, ErrPendingExists
	}

	ex := Exchange{
		ID:        uuid.New().String(),
		Question:  question,
		OwnerID:   l.ownerID,
		CreatedAt: time.Now(),
		Status:    StatusPending,
	}
	l.entries = append(l.entries, ex)
	return ex, nil
}

// Commit transitions the pending exchange with tempID to confirmed,
// attaching the server's answer and replacing the temporary id with the
// server-issued one. An empty serverID keeps the temporary id.
func (l *Ledger) Commit(tempID, serverID, answer string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.pendingIndex()
	if i < 0 || l.entries[i].ID != tempID {
		return ErrNoPending
	}

	l.entries[i].Answer = answer
	l.entries[i].Status = StatusConfirmed
	if serverID != "" {
		l.entries[i].ID = serverID
	}
	return nil
}

// Retract removes the pending exchange with tempID entirely, restoring
// the transcript to exactly its state before the optimistic append.
func (l *Ledger) Retract(tempID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.pendingIndex()
	if i < 0 || l.entries[i].ID != tempID {
		return ErrNoPending
	}

	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return nil
}

// LoadConfirmed replaces the confirmed portion of the transcript with a
// batch of server-confirmed exchanges, ordered oldest first. A pending
// exchange, if any, is preserved at the end. Records whose owner does not
// match the ledger's owner are dropped and reported, never rendered.
// Loading the same batch twice yields the same transcript as loading it
// once.
func (l *Ledger) LoadConfirmed(batch []Exchange) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accepted := make([]Exchange, 0, len(batch))
	for _, rec := range batch {
		if rec.OwnerID != l.ownerID {
			l.logger.Warn("dropping history record from another owner",
				"record_id", rec.ID,
				"record_owner", rec.OwnerID,
			)
			if l.onViolation != nil {
				l.onViolation(rec)
			}
			continue
		}
		rec.Status = StatusConfirmed
		accepted = append(accepted, rec)
	}

	if i := l.pendingIndex(); i >= 0 {
		accepted = append(accepted, l.entries[i])
	}
	l.entries = accepted
}

// Pending returns the in-flight exchange, if one exists.
func (l *Ledger) Pending() (Exchange, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.pendingIndex(); i >= 0 {
		return l.entries[i], true
	}
	return Exchange{}, false
}

// Exchanges returns a copy of the transcript, oldest first.
func (l *Ledger) Exchanges() []Exchange {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Exchange, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of rendered exchanges.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// pendingIndex returns the index of the pending exchange, or -1. Callers
// must hold l.mu. The pending entry is always last, but scanning keeps the
// invariant checkable rather than assumed.
func (l *Ledger) pendingIndex() int {
	for i := range l.entries {
		if l.entries[i].Status == StatusPending {
			return i
		}
	}
	return -1
}
