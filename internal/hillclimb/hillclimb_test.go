package hillclimb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/hillclimb"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/oracle"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

func lineGraph(t *testing.T) *treegraph.Graph {
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

func testOracle(t *testing.T, g *treegraph.Graph) *oracle.Oracle {
	t.Helper()
	o := oracle.New(g)
	require.NoError(t, o.Initialize())
	return o
}

func TestRunZeroBudgetStopsNoValidNeighbors(t *testing.T) {
	g := lineGraph(t)
	o := testOracle(t, g)
	baseline := build.Build{Class: build.ClassWitch, Level: 1, Allocated: map[int]bool{1: true}}

	cfg := hillclimb.Config{
		Metric:        hillclimb.MetricDPS,
		FreeBudget:    0,
		RespecBudget:  0,
		MaxIterations: 50,
		Patience:      3,
	}
	result, err := hillclimb.Run(context.Background(), baseline, g, o, cfg)
	require.NoError(t, err)

	assert.Equal(t, hillclimb.ReasonNoValidNeighbors, result.ConvergenceReason)
	assert.Equal(t, baseline.Allocated, result.Best.Allocated)
	assert.Equal(t, result.BaselineMetric, result.BestMetric)
}

func TestRunMaxIterationsOneRunsExactlyOnce(t *testing.T) {
	g := lineGraph(t)
	o := testOracle(t, g)
	baseline := build.Build{Class: build.ClassWitch, Level: 1, Allocated: map[int]bool{1: true}}

	cfg := hillclimb.Config{
		Metric:                 hillclimb.MetricDPS,
		FreeBudget:             10,
		RespecBudget:           10,
		MaxIterations:          1,
		Patience:               1,
		MinRelativeImprovement: -1, // threshold becomes 0, so any neighbor with a positive metric is adopted
	}
	result, err := hillclimb.Run(context.Background(), baseline, g, o, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Iterations)
	assert.Contains(t, []string{hillclimb.ReasonMaxIterations, hillclimb.ReasonNoImprovement}, result.ConvergenceReason)
}

func TestRunBestMetricNeverBelowBaseline(t *testing.T) {
	g := lineGraph(t)
	o := testOracle(t, g)
	baseline := build.Build{Class: build.ClassWitch, Level: 1, Allocated: map[int]bool{1: true}}

	cfg := hillclimb.Config{
		Metric:        hillclimb.MetricDPS,
		FreeBudget:    10,
		RespecBudget:  10,
		MaxIterations: 20,
		Patience:      3,
	}
	result, err := hillclimb.Run(context.Background(), baseline, g, o, cfg)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.BestMetric, result.BaselineMetric)
}

func TestRunCancelStopsImmediately(t *testing.T) {
	g := lineGraph(t)
	o := testOracle(t, g)
	baseline := build.Build{Class: build.ClassWitch, Level: 1, Allocated: map[int]bool{1: true}}

	cfg := hillclimb.Config{
		Metric:        hillclimb.MetricDPS,
		FreeBudget:    10,
		RespecBudget:  10,
		MaxIterations: 50,
		Patience:      5,
		Cancel:        func() bool { return true },
	}
	result, err := hillclimb.Run(context.Background(), baseline, g, o, cfg)
	require.NoError(t, err)

	assert.Equal(t, hillclimb.ReasonCancelled, result.ConvergenceReason)
	assert.Equal(t, 0, result.Iterations)
}

func TestRunBalancedMetricUsesBaselineNormalization(t *testing.T) {
	g := lineGraph(t)
	o := testOracle(t, g)
	baseline := build.Build{Class: build.ClassWitch, Level: 1, Allocated: map[int]bool{1: true}}

	cfg := hillclimb.Config{
		Metric:            hillclimb.MetricBalanced,
		BalancedDPSWeight: 0.6,
		BalancedEHPWeight: 0.4,
		FreeBudget:        10,
		RespecBudget:      10,
		MaxIterations:     10,
		Patience:          3,
	}
	result, err := hillclimb.Run(context.Background(), baseline, g, o, cfg)
	require.NoError(t, err)

	// baseline-normalized balanced metric for the baseline build itself
	// always evaluates to the sum of the configured weights.
	assert.InDelta(t, 1.0, result.BaselineMetric, 1e-9)
}
