// Package ledger maintains the ordered transcript of one conversation
// session.
//
// # Overview
//
// The ledger is the client-side source of truth for what the user sees:
// an oldest-first sequence of question/answer exchanges, scoped to exactly
// one owner. It supports the optimistic append flow used by the
// controller:
//
//  1. AppendOptimistic(question): the question appears immediately with a
//     temporary id and pending status
//  2. Commit(tempID, serverID, answer): the server accepted; the entry
//     becomes confirmed and adopts the server's id
//  3. Retract(tempID): the server rejected or was unreachable; the entry
//     is removed as if it never existed
//
// At most one exchange may be pending at a time.
//
// # History loading
//
// LoadConfirmed replaces the confirmed portion of the transcript with a
// server-provided batch, preserving any pending entry at the end. Records
// owned by another user are dropped and reported through the OnViolation
// sink rather than rendered; the backend scopes its queries by session,
// but the ledger does not take that on faith.
package ledger
