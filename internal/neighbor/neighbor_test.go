package neighbor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/neighbor"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

func lineGraph(t *testing.T) *treegraph.Graph {
	t.Helper()
	g, err := treegraph.Load([]byte(`{
		"nodes": [
			{"id":1,"stat":"start","type":"small","adjacent":[2]},
			{"id":2,"stat":"a","type":"small","adjacent":[1,3]},
			{"id":3,"stat":"b","type":"notable","adjacent":[2,4]},
			{"id":4,"stat":"c","type":"keystone","adjacent":[3]}
		],
		"class_starts": {"Witch": 1}
	}`))
	require.NoError(t, err)
	return g
}

// forkGraph branches at the start node: 1 connects to both 2 and 3, so a
// build holding {1,2} can trade 2 for 3 and stay connected, and a build
// holding only {1} has two add candidates of different node types.
func forkGraph(t *testing.T) *treegraph.Graph {
	t.Helper()
	g, err := treegraph.Load([]byte(`{
		"nodes": [
			{"id":1,"stat":"start","type":"small","adjacent":[2,3]},
			{"id":2,"stat":"a","type":"small","adjacent":[1]},
			{"id":3,"stat":"b","type":"keystone","adjacent":[1]}
		],
		"class_starts": {"Witch": 1}
	}`))
	require.NoError(t, err)
	return g
}

func TestFreeFirstRule(t *testing.T) {
	g := lineGraph(t)
	cur := build.Build{Class: build.ClassWitch, Allocated: map[int]bool{1: true, 2: true}}
	ledger := build.NewLedger(10, 10)

	candidates := neighbor.Generate(cur, g, ledger)
	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		assert.Zero(t, c.Mutation.RespecCost, "no swap should be present while free budget remains")
	}
}

func TestSwapsAppearOnlyWhenFreeExhausted(t *testing.T) {
	g := forkGraph(t)
	cur := build.Build{Class: build.ClassWitch, Allocated: map[int]bool{1: true, 2: true}}
	ledger := build.NewLedger(0, 10)

	candidates := neighbor.Generate(cur, g, ledger)
	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		assert.Equal(t, 1, c.Mutation.RespecCost)
	}
}

func TestEmptyWhenBothBudgetsExhausted(t *testing.T) {
	g := lineGraph(t)
	cur := build.Build{Class: build.ClassWitch, Allocated: map[int]bool{1: true, 2: true}}
	ledger := build.NewLedger(0, 0)

	candidates := neighbor.Generate(cur, g, ledger)
	assert.Empty(t, candidates)
}

func TestRankedByNodeTypeWeight(t *testing.T) {
	g := forkGraph(t)
	cur := build.Build{Class: build.ClassWitch, Allocated: map[int]bool{1: true}}
	ledger := build.NewLedger(10, 0)

	candidates := neighbor.Generate(cur, g, ledger)
	require.Len(t, candidates, 2)
	assert.Equal(t, 3, candidates[0].Mutation.NodesToAdd[0], "keystone (weight 100) ranks ahead of the lower-id small node (weight 20)")
}

func TestCandidatesAreConnectivityValidated(t *testing.T) {
	g := lineGraph(t)
	// Node 3 removal (if it were allocated without 2) would disconnect 4;
	// instead, check that an add candidate never produces a disconnected
	// build — all generated candidates must already validate connected.
	cur := build.Build{Class: build.ClassWitch, Allocated: map[int]bool{1: true, 2: true}}
	ledger := build.NewLedger(10, 10)
	for _, c := range neighbor.Generate(cur, g, ledger) {
		next := cur.Apply(c.Mutation)
		assert.True(t, next.IsConnected(g))
	}
}
