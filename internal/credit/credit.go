// ABOUTME: Pure credit-balance arithmetic for the metered chat flow
// ABOUTME: No I/O and no failure modes; the server value always wins

package credit

// Balance tracks message credits for one session. Two counts are kept:
// Authoritative is the last server-reported value and is what gets
// displayed; Available is the local guard value after optimistic debits.
// After a failed submission the debit is deliberately not restored, so a
// retry can never spend a credit the server may already have charged.
type Balance struct {
	// Authoritative is the last value reported by the server.
	Authoritative int

	// Available is the optimistic spendable count. It only decreases
	// locally; every authoritative update resets it.
	Available int

	// Known is false while the true spend is unresolved (after a failed
	// submission, until the next authoritative value arrives).
	Known bool
}

// New returns a known balance with the given credit count.
func New(credits int) Balance {
	if credits < 0 {
		credits = 0
	}
	return Balance{Authoritative: credits, Available: credits, Known: true}
}

// CanSubmit reports whether a submission is allowed against this balance.
func (b Balance) CanSubmit() bool {
	return b.Available > 0
}

// OptimisticDebit returns the balance after a local advisory decrement.
// Callers must check CanSubmit first; the count never goes below zero.
func (b Balance) OptimisticDebit() Balance {
	if b.Available > 0 {
		b.Available--
	}
	return b
}

// Authoritate replaces the balance with the server-reported value. The
// server is the only source of truth for spend, so this applies
// unconditionally regardless of the local optimistic count.
func (b Balance) Authoritate(serverCredits int) Balance {
	return New(serverCredits)
}

// MarkUnknown flags the balance as unresolved after a failed submission.
// The optimistic debit stays applied and the displayed value is left at
// the last authoritative figure.
func (b Balance) MarkUnknown() Balance {
	b.Known = false
	return b
}

// Display is the credit count to show the user: always the last
// authoritative value, never the mid-flight optimistic one.
func (b Balance) Display() int {
	return b.Authoritative
}
