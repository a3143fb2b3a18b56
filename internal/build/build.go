// Package build models a character build (C1): an immutable value type
// passed by value between components, plus the budget ledger (C3) that
// tracks free/respec spend, and the single-step mutation shape (C1's
// TreeMutation) applied to produce a new build.
package build

import (
	"sort"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

// Class is the character class enum.
type Class string

const (
	ClassWarrior    Class = "Warrior"
	ClassRanger     Class = "Ranger"
	ClassWitch      Class = "Witch"
	ClassMonk       Class = "Monk"
	ClassMercenary  Class = "Mercenary"
	ClassSorceress  Class = "Sorceress"
)

// ValidClasses enumerates the six supported classes.
var ValidClasses = []Class{ClassWarrior, ClassRanger, ClassWitch, ClassMonk, ClassMercenary, ClassSorceress}

// IsValid reports whether c is one of the six supported classes.
func (c Class) IsValid() bool {
	for _, v := range ValidClasses {
		if v == c {
			return true
		}
	}
	return false
}

// Build is an immutable value type: a build is never mutated in place,
// only replaced by applying a Mutation (see Apply below).
type Build struct {
	Class       Class
	Level       int
	Ascendancy  string // empty string means no ascendancy chosen
	Allocated   map[int]bool
	ItemsSkills []byte // opaque payload passed through to the oracle unexamined
}

// Clone returns a deep copy of b's allocated-node set, leaving the
// opaque ItemsSkills payload shared (it is never mutated).
func (b Build) Clone() Build {
	allocated := make(map[int]bool, len(b.Allocated))
	for id, v := range b.Allocated {
		allocated[id] = v
	}
	return Build{
		Class:       b.Class,
		Level:       b.Level,
		Ascendancy:  b.Ascendancy,
		Allocated:   allocated,
		ItemsSkills: b.ItemsSkills,
	}
}

// SortedAllocated returns the allocated node ids in ascending order, for
// deterministic serialization and tie-breaking.
func (b Build) SortedAllocated() []int {
	ids := make([]int, 0, len(b.Allocated))
	for id := range b.Allocated {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// IsConnected reports whether every allocated node is reachable from the
// class start node using only allocated nodes — the invariant every
// valid build must satisfy.
func (b Build) IsConnected(graph *treegraph.Graph) bool {
	startID, ok := graph.ClassStart(string(b.Class))
	if !ok {
		return false
	}
	if !b.Allocated[startID] {
		return false
	}
	reachable := graph.BFSReachable(startID, b.Allocated)
	for id := range b.Allocated {
		if !reachable[id] {
			return false
		}
	}
	return true
}

// Mutation is one of two shapes: "add" (a single new node, costing
// one free point) or "swap" (one allocated node traded for one
// adjacent unallocated node, costing one respec point).
type Mutation struct {
	NodesToAdd    []int
	NodesToRemove []int
	FreeCost      int
	RespecCost    int
}

// NewAddMutation builds an "add" mutation for a single node.
func NewAddMutation(node int) Mutation {
	return Mutation{NodesToAdd: []int{node}, FreeCost: 1}
}

// NewSwapMutation builds a "swap" mutation trading oldNode for newNode.
func NewSwapMutation(oldNode, newNode int) Mutation {
	return Mutation{NodesToAdd: []int{newNode}, NodesToRemove: []int{oldNode}, RespecCost: 1}
}

// Apply returns a new Build with the mutation's nodes added/removed,
// leaving b untouched. Callers are responsible for validating
// connectivity and budget before committing the result (see
// internal/neighbor and internal/hillclimb).
func (b Build) Apply(m Mutation) Build {
	next := b.Clone()
	for _, id := range m.NodesToRemove {
		delete(next.Allocated, id)
	}
	for _, id := range m.NodesToAdd {
		next.Allocated[id] = true
	}
	return next
}

// LowestAddedNode returns the smallest node id added by m, used as the
// final tie-break when ranking candidate mutations.
func (m Mutation) LowestAddedNode() int {
	lowest := -1
	for _, id := range m.NodesToAdd {
		if lowest == -1 || id < lowest {
			lowest = id
		}
	}
	return lowest
}
