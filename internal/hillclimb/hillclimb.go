// Package hillclimb implements the Hill-Climbing Engine (C6): a
// deterministic steepest-ascent local search over the neighbor space,
// driving the Calculation Oracle and reporting progress as it goes.
package hillclimb

import (
	"context"
	"math"
	"time"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/neighbor"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/oracle"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

// Metric selects which scalar the search climbs.
type Metric string

const (
	MetricDPS      Metric = "dps"
	MetricEHP      Metric = "ehp"
	MetricBalanced Metric = "balanced"
)

// IsValid reports whether m is one of the three supported metrics.
func (m Metric) IsValid() bool {
	switch m {
	case MetricDPS, MetricEHP, MetricBalanced:
		return true
	}
	return false
}

// NegInf is the metric value assigned to a candidate the oracle rejects,
// so the optimizer always skips it in the argmax.
const NegInf = math.Inf(-1)

// Config bundles the search's tunable parameters.
type Config struct {
	Metric                Metric
	FreeBudget            int
	RespecBudget          int // build.InfiniteRespec for unlimited
	MaxIterations         int
	MaxWallTime           time.Duration
	Patience              int
	MinRelativeImprovement float64
	BalancedDPSWeight     float64
	BalancedEHPWeight     float64

	// ProgressEvery/ProgressInterval gate how often Progress fires,
	// Progress fires every N iterations or every T seconds,
	// whichever is coarser.
	ProgressEvery    int
	ProgressInterval time.Duration
	Progress         func(Snapshot)

	// Cancel is polled before each neighbor evaluation; when it
	// returns true the loop stops with reason "cancelled".
	Cancel func() bool
}

// Snapshot is the progress report handed to Config.Progress.
type Snapshot struct {
	Iteration      int
	BestMetric     float64
	ImprovementPct float64
	FreeUsed       int
	RespecUsed     int
	Elapsed        time.Duration
}

// MutationRecord pairs an adopted mutation with the iteration it was
// adopted at, for S3's free-first audit trail.
type MutationRecord struct {
	Iteration int
	Mutation  build.Mutation
}

// Result is the optimizer's final output.
type Result struct {
	Best              build.Build
	BestStats         oracle.BuildStats
	BestMetric        float64
	BaselineMetric    float64
	Iterations        int
	ConvergenceReason string
	MutationLog       []MutationRecord
	Budget            build.Snapshot
}

// Convergence reasons, exactly one of which Result.ConvergenceReason holds.
const (
	ReasonNoImprovement   = "no_improvement"
	ReasonNoValidNeighbors = "no_valid_neighbors"
	ReasonMaxIterations   = "max_iterations"
	ReasonTimeout         = "timeout"
	ReasonCancelled       = "cancelled"
)

// Run executes the steepest-ascent loop against baseline, using graph
// for connectivity validation and o for stat evaluation. ctx bounds
// the whole run defensively, on top of the cooperative cfg.Cancel
// check.
func Run(ctx context.Context, baseline build.Build, graph *treegraph.Graph, o *oracle.Oracle, cfg Config) (Result, error) {
	ledger := build.NewLedger(cfg.FreeBudget, cfg.RespecBudget)

	baselineStats, err := o.Calculate(baseline)
	if err != nil {
		return Result{}, err
	}
	baselineMetric := metricValue(cfg, baselineStats, baselineStats)

	current := baseline
	currentStats := baselineStats
	currentMetric := baselineMetric
	best := baseline
	bestStats := baselineStats
	bestMetric := baselineMetric

	start := time.Now()
	lastProgress := start
	lastProgressIter := 0
	noImprove := 0
	var mutationLog []MutationRecord

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 1
	}

	reason := ReasonMaxIterations
	iter := 0
	for iter = 1; iter <= maxIterations; iter++ {
		if cfg.MaxWallTime > 0 && time.Since(start) > cfg.MaxWallTime {
			reason = ReasonTimeout
			iter--
			break
		}
		if ctx.Err() != nil {
			reason = ReasonCancelled
			iter--
			break
		}
		if cfg.Cancel != nil && cfg.Cancel() {
			reason = ReasonCancelled
			iter--
			break
		}

		candidates := neighbor.Generate(current, graph, ledger)
		if len(candidates) == 0 {
			reason = ReasonNoValidNeighbors
			iter--
			break
		}

		bestCandidateIdx := -1
		var bestCandidateMetric float64 = NegInf
		var bestCandidateStats oracle.BuildStats
		for i, cand := range candidates {
			if cfg.Cancel != nil && cfg.Cancel() {
				reason = ReasonCancelled
				break
			}
			candidateBuild := current.Apply(cand.Mutation)
			stats, calcErr := o.Calculate(candidateBuild)
			candMetric := NegInf
			if calcErr == nil {
				candMetric = metricValue(cfg, stats, baselineStats)
			}
			if better(candMetric, bestCandidateMetric, cand, candidates, bestCandidateIdx) {
				bestCandidateIdx = i
				bestCandidateMetric = candMetric
				bestCandidateStats = stats
			}
		}
		if reason == ReasonCancelled {
			iter--
			break
		}

		threshold := currentMetric * (1 + cfg.MinRelativeImprovement)
		if bestCandidateIdx >= 0 && bestCandidateMetric > threshold {
			chosen := candidates[bestCandidateIdx]
			current = current.Apply(chosen.Mutation)
			ledger.Apply(chosen.Mutation)
			currentStats = bestCandidateStats
			currentMetric = bestCandidateMetric
			mutationLog = append(mutationLog, MutationRecord{Iteration: iter, Mutation: chosen.Mutation})

			if bestCandidateMetric > bestMetric {
				best = current
				bestStats = currentStats
				bestMetric = bestCandidateMetric
			}
			noImprove = 0
		} else {
			noImprove++
			if noImprove >= cfg.Patience {
				reason = ReasonNoImprovement
				break
			}
		}

		if cfg.Progress != nil {
			enabled := cfg.ProgressEvery > 0 || cfg.ProgressInterval > 0
			iterDue := cfg.ProgressEvery <= 0 || iter-lastProgressIter >= cfg.ProgressEvery
			timeDue := cfg.ProgressInterval <= 0 || time.Since(lastProgress) >= cfg.ProgressInterval
			if enabled && iterDue && timeDue {
				cfg.Progress(snapshot(iter, bestMetric, baselineMetric, ledger, start))
				lastProgress = time.Now()
				lastProgressIter = iter
			}
		}
	}

	if iter > maxIterations {
		iter = maxIterations
	}
	if iter < 0 {
		iter = 0
	}

	if cfg.Progress != nil {
		cfg.Progress(snapshot(iter, bestMetric, baselineMetric, ledger, start))
	}

	return Result{
		Best:              best,
		BestStats:         bestStats,
		BestMetric:        bestMetric,
		BaselineMetric:    baselineMetric,
		Iterations:        iter,
		ConvergenceReason: reason,
		MutationLog:       mutationLog,
		Budget:            ledger.Snapshot(),
	}, nil
}

// better applies the search's tie-break order: higher metric wins;
// ties broken by lower respec cost, then lower free cost, then
// lowest newly-added node id.
func better(candMetric, bestMetric float64, cand neighbor.Candidate, all []neighbor.Candidate, bestIdx int) bool {
	if bestIdx < 0 {
		return true // first candidate always seeds the comparison
	}
	if candMetric != bestMetric {
		return candMetric > bestMetric
	}
	best := all[bestIdx].Mutation
	m := cand.Mutation
	if m.RespecCost != best.RespecCost {
		return m.RespecCost < best.RespecCost
	}
	if m.FreeCost != best.FreeCost {
		return m.FreeCost < best.FreeCost
	}
	return m.LowestAddedNode() < best.LowestAddedNode()
}

func metricValue(cfg Config, stats, baseline oracle.BuildStats) float64 {
	switch cfg.Metric {
	case MetricEHP:
		return stats.EffectiveHP
	case MetricBalanced:
		dpsBaseline := baseline.TotalDPS
		if dpsBaseline == 0 {
			dpsBaseline = 1
		}
		ehpBaseline := baseline.EffectiveHP
		if ehpBaseline == 0 {
			ehpBaseline = 1
		}
		return cfg.BalancedDPSWeight*(stats.TotalDPS/dpsBaseline) + cfg.BalancedEHPWeight*(stats.EffectiveHP/ehpBaseline)
	default:
		return stats.TotalDPS
	}
}

func snapshot(iter int, bestMetric, baselineMetric float64, ledger *build.Ledger, start time.Time) Snapshot {
	improvement := 0.0
	if baselineMetric != 0 {
		improvement = (bestMetric - baselineMetric) / math.Abs(baselineMetric) * 100
	}
	snap := ledger.Snapshot()
	return Snapshot{
		Iteration:      iter,
		BestMetric:     bestMetric,
		ImprovementPct: improvement,
		FreeUsed:       snap.FreeUsed,
		RespecUsed:     snap.RespecUsed,
		Elapsed:        time.Since(start),
	}
}
