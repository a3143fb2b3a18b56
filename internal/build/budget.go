package build

import "fmt"

// InfiniteRespec marks a respec budget with no ceiling.
const InfiniteRespec = -1

// Ledger is the budget ledger (C3): a pure in-memory state machine
// tracking free/respec spend against their ceilings. Counters are
// monotonic — they only increase.
type Ledger struct {
	freeAvailable   int
	respecAvailable int // InfiniteRespec means unbounded
	freeUsed        int
	respecUsed      int
}

// NewLedger creates a Ledger with the given ceilings. respecAvailable
// may be InfiniteRespec.
func NewLedger(freeAvailable, respecAvailable int) *Ledger {
	return &Ledger{freeAvailable: freeAvailable, respecAvailable: respecAvailable}
}

// Snapshot is a read-only view of ledger state, embedded in a
// hillclimb progress snapshot.
type Snapshot struct {
	FreeUsed        int
	FreeAvailable   int
	RespecUsed      int
	RespecAvailable int // InfiniteRespec means unbounded
}

// Snapshot returns the ledger's current read-only state.
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		FreeUsed:        l.freeUsed,
		FreeAvailable:   l.freeAvailable,
		RespecUsed:      l.respecUsed,
		RespecAvailable: l.respecAvailable,
	}
}

// FreeRemaining returns the unspent free-point budget.
func (l *Ledger) FreeRemaining() int {
	return l.freeAvailable - l.freeUsed
}

// RespecRemaining returns the unspent respec budget, or -1 if unbounded.
func (l *Ledger) RespecRemaining() int {
	if l.respecAvailable == InfiniteRespec {
		return InfiniteRespec
	}
	return l.respecAvailable - l.respecUsed
}

// CanApply reports whether mutation m's costs fit within the remaining
// budgets.
func (l *Ledger) CanApply(m Mutation) bool {
	if m.FreeCost > l.FreeRemaining() {
		return false
	}
	if m.RespecCost > 0 && l.respecAvailable != InfiniteRespec && m.RespecCost > l.RespecRemaining() {
		return false
	}
	return true
}

// Apply debits the ledger's counters for mutation m. It panics if m
// violates the budget invariants — this is programmer error (the
// caller must check CanApply first), not a user-facing error.
func (l *Ledger) Apply(m Mutation) {
	if !l.CanApply(m) {
		panic(fmt.Sprintf("build: ledger.Apply called with mutation exceeding budget: %+v (ledger=%+v)", m, l.Snapshot()))
	}
	l.freeUsed += m.FreeCost
	l.respecUsed += m.RespecCost
}
