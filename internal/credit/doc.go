// Package credit models the client-side view of a user's message balance,
// separating the displayed authoritative value from the advisory value
// used to gate submissions.
package credit
