package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/gate"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/hillclimb"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/logging"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/oracle"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/session"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

func testGraph(t *testing.T) *treegraph.Graph {
	t.Helper()
	g, err := treegraph.Load([]byte(`{
		"nodes": [
			{"id":1,"stat":"start","type":"small","adjacent":[2]},
			{"id":2,"stat":"+12 to maximum Life","type":"small","adjacent":[1,3]},
			{"id":3,"stat":"10% increased Damage","type":"notable","adjacent":[2,4]},
			{"id":4,"stat":"+5% to Fire Resistance","type":"small","adjacent":[3]}
		],
		"class_starts": {"Witch": 1}
	}`))
	require.NoError(t, err)
	return g
}

func testCoordinator(t *testing.T) *session.Coordinator {
	t.Helper()
	g := testGraph(t)
	o := oracle.New(g)
	require.NoError(t, o.Initialize())
	gt := gate.New(time.Second)
	logger := logging.New("test", "error", "json")
	return session.New(g, o, gt, logger, time.Hour)
}

func baselineRequest() session.Request {
	return session.Request{
		Baseline: build.Build{Class: build.ClassWitch, Level: 1, Allocated: map[int]bool{1: true}},
		Config: hillclimb.Config{
			Metric:        hillclimb.MetricDPS,
			FreeBudget:    5,
			RespecBudget:  5,
			MaxIterations: 10,
			Patience:      3,
		},
	}
}

func TestSubmitRunsToCompletion(t *testing.T) {
	c := testCoordinator(t)
	s := c.Submit(baselineRequest())
	require.NotEmpty(t, s.ID)

	require.NoError(t, c.Wait(context.Background(), s.ID))

	got, ok := c.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, session.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
}

// TestCancelStopsRunningSession needs a run that can't converge on its
// own within the test window, so cancellation is the only thing that
// stops it. It runs on the embedded default tree (treegraph.LoadDefault,
// 85 nodes). A MinRelativeImprovement of 1e9 means no candidate is ever
// adopted, so the free budget is never spent and every iteration
// re-evaluates the same add candidates; patience and max iterations of
// 1e6 keep that loop going until the session is cancelled.
func bigGraph(t *testing.T) *treegraph.Graph {
	t.Helper()
	g, err := treegraph.LoadDefault()
	require.NoError(t, err)
	return g
}

func TestCancelStopsRunningSession(t *testing.T) {
	g := bigGraph(t)
	o := oracle.New(g)
	require.NoError(t, o.Initialize())
	gt := gate.New(time.Second)
	logger := logging.New("test", "error", "json")
	c := session.New(g, o, gt, logger, time.Hour)

	startID, ok := g.ClassStart(string(build.ClassWitch))
	require.True(t, ok)

	req := session.Request{
		Baseline: build.Build{Class: build.ClassWitch, Level: 1, Allocated: map[int]bool{startID: true}},
		Config: hillclimb.Config{
			Metric:                 hillclimb.MetricDPS,
			FreeBudget:             5,
			RespecBudget:           build.InfiniteRespec,
			MaxIterations:          1000000,
			Patience:               1000000,
			MinRelativeImprovement: 1e9, // raises the bar so adoption never outruns cancellation
		},
	}

	s := c.Submit(req)
	require.NoError(t, c.Cancel(s.ID))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx, s.ID))

	got, ok := c.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, session.StatusCancelled, got.Status)
}

func TestCancelUnknownSessionReturnsNotFound(t *testing.T) {
	c := testCoordinator(t)
	err := c.Cancel("does-not-exist")
	assert.Error(t, err)
}

func TestStreamReceivesCompleteEvent(t *testing.T) {
	c := testCoordinator(t)
	s := c.Submit(baselineRequest())

	st, ok := c.Stream(s.ID)
	require.True(t, ok)
	ch, unsubscribe := st.Subscribe()
	defer unsubscribe()

	sawComplete := false
	timeout := time.After(5 * time.Second)
	for !sawComplete {
		select {
		case ev, open := <-ch:
			if !open {
				t.Fatal("stream closed before a complete event arrived")
			}
			if ev.Type == session.EventComplete {
				sawComplete = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for complete event")
		}
	}
}
