// ABOUTME: Tests for the history reconciler
// ABOUTME: Verifies ordering, tenant isolation filtering, and fetch-failure semantics

package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensustec/sensus-chat/internal/client"
	"github.com/sensustec/sensus-chat/internal/ledger"
)

// mockFetcher implements Fetcher for testing
type mockFetcher struct {
	records []client.HistoryRecord
	err     error
	perPage int
}

func (m *mockFetcher) History(ctx context.Context, perPage int) ([]client.HistoryRecord, error) {
	m.perPage = perPage
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

func TestReconcile_ReversesToOldestFirst(t *testing.T) {
	now := time.Now()
	fetcher := &mockFetcher{records: []client.HistoryRecord{
		{ID: "3", Question: "q3", Answer: "a3", OwnerID: "A", CreatedAt: now},
		{ID: "2", Question: "q2", Answer: "a2", OwnerID: "A", CreatedAt: now.Add(-time.Minute)},
		{ID: "1", Question: "q1", Answer: "a1", OwnerID: "A", CreatedAt: now.Add(-2 * time.Minute)},
	}}

	led := ledger.New("A", nil)
	r := New(fetcher, 10, nil)
	require.NoError(t, r.Reconcile(context.Background(), led))

	entries := led.Exchanges()
	require.Len(t, entries, 3)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, "3", entries[2].ID)
	assert.Equal(t, 10, fetcher.perPage)
}

func TestReconcile_FiltersForeignTenants(t *testing.T) {
	fetcher := &mockFetcher{records: []client.HistoryRecord{
		{ID: "1", Question: "q1", Answer: "a1", OwnerID: "A"},
		{ID: "2", Question: "q2", Answer: "a2", OwnerID: "A"},
		{ID: "3", Question: "q3", Answer: "a3", OwnerID: "B"},
	}}

	led := ledger.New("A", nil)
	r := New(fetcher, 10, nil)
	require.NoError(t, r.Reconcile(context.Background(), led))

	entries := led.Exchanges()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "A", e.OwnerID)
	}
	assert.Equal(t, int64(1), r.Violations(), "exactly one isolation violation reported")
}

func TestReconcile_FetchFailureLeavesLedgerEmpty(t *testing.T) {
	fetcher := &mockFetcher{err: errors.New("boom")}

	led := ledger.New("A", nil)
	r := New(fetcher, 10, nil)
	err := r.Reconcile(context.Background(), led)
	require.Error(t, err)
	assert.Equal(t, 0, led.Len(), "no partial population on failure")
}

func TestReconcile_IdempotentAcrossRuns(t *testing.T) {
	fetcher := &mockFetcher{records: []client.HistoryRecord{
		{ID: "1", Question: "q1", Answer: "a1", OwnerID: "A"},
	}}

	led := ledger.New("A", nil)
	r := New(fetcher, 10, nil)
	require.NoError(t, r.Reconcile(context.Background(), led))
	once := led.Exchanges()

	require.NoError(t, r.Reconcile(context.Background(), led))
	assert.Equal(t, once, led.Exchanges())
}

func TestNew_DefaultPerPage(t *testing.T) {
	fetcher := &mockFetcher{}
	r := New(fetcher, 0, nil)
	require.NoError(t, r.Reconcile(context.Background(), ledger.New("A", nil)))
	assert.Equal(t, DefaultPerPage, fetcher.perPage)
}
