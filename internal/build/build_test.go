package build_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

func testGraphJSON() []byte {
	return []byte(`{
		"nodes": [
			{"id":1,"stat":"start","type":"small","adjacent":[2]},
			{"id":2,"stat":"a","type":"small","adjacent":[1,3]},
			{"id":3,"stat":"b","type":"notable","adjacent":[2]},
			{"id":4,"stat":"isolated","type":"small","adjacent":[]}
		],
		"class_starts": {"Witch": 1}
	}`)
}

func mustGraph(t *testing.T) *treegraph.Graph {
	t.Helper()
	g, err := treegraph.Load(testGraphJSON())
	require.NoError(t, err)
	return g
}

func TestApplyAddThenRemoveIsIdentity(t *testing.T) {
	b := build.Build{Class: build.ClassWitch, Level: 90, Allocated: map[int]bool{1: true}}
	orig := b.Clone()

	added := b.Apply(build.NewAddMutation(2))
	restored := added.Apply(build.Mutation{NodesToRemove: []int{2}})

	assert.Equal(t, orig.Allocated, restored.Allocated)
}

func TestIsConnectedDetectsOrphan(t *testing.T) {
	g := mustGraph(t)

	connected := build.Build{Class: build.ClassWitch, Allocated: map[int]bool{1: true, 2: true, 3: true}}
	assert.True(t, connected.IsConnected(g))

	disconnected := build.Build{Class: build.ClassWitch, Allocated: map[int]bool{1: true, 4: true}}
	assert.False(t, disconnected.IsConnected(g))
}

func TestLedgerInvariants(t *testing.T) {
	l := build.NewLedger(2, 1)
	require.True(t, l.CanApply(build.NewAddMutation(10)))

	l.Apply(build.NewAddMutation(10))
	l.Apply(build.NewAddMutation(11))
	assert.False(t, l.CanApply(build.NewAddMutation(12)), "free budget exhausted")

	require.True(t, l.CanApply(build.NewSwapMutation(10, 12)))
	l.Apply(build.NewSwapMutation(10, 12))
	assert.False(t, l.CanApply(build.NewSwapMutation(11, 13)), "respec budget exhausted")

	snap := l.Snapshot()
	assert.Equal(t, 2, snap.FreeUsed)
	assert.Equal(t, 1, snap.RespecUsed)
}

func TestLedgerApplyPanicsOnViolation(t *testing.T) {
	l := build.NewLedger(0, 0)
	assert.Panics(t, func() {
		l.Apply(build.NewAddMutation(1))
	})
}

func TestInfiniteRespecNeverExhausted(t *testing.T) {
	l := build.NewLedger(0, build.InfiniteRespec)
	for i := 0; i < 1000; i++ {
		require.True(t, l.CanApply(build.NewSwapMutation(i, i+1000)))
		l.Apply(build.NewSwapMutation(i, i+1000))
	}
	assert.Equal(t, build.InfiniteRespec, l.RespecRemaining())
}
