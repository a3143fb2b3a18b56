package httpapi

import (
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/apperrors"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/hillclimb"
)

// OptimizeRequest is the JSON body of POST /optimize.
type OptimizeRequest struct {
	BuildCode              string  `json:"build_code"`
	Metric                 string  `json:"metric"`
	FreeBudget             int     `json:"free_budget"`
	RespecBudget           int     `json:"respec_budget"`
	MaxIterations          int     `json:"max_iterations,omitempty"`
	MaxTimeSeconds         int     `json:"max_time_seconds,omitempty"`
	Patience               int     `json:"patience,omitempty"`
	MinRelativeImprovement float64 `json:"min_relative_improvement,omitempty"`
}

// maxBuildCodeLen is the hard cap on submitted build-code size (100KB).
const maxBuildCodeLen = 100 * 1024

// validate checks the request against the service's documented
// limits, returning a ValidationError naming the first violation found.
func (r OptimizeRequest) validate() error {
	if len(r.BuildCode) == 0 {
		return apperrors.Validation("build_code is required")
	}
	if len(r.BuildCode) > maxBuildCodeLen {
		return apperrors.Validation("build_code exceeds the 100KB limit")
	}
	if !hillclimb.Metric(r.Metric).IsValid() {
		return apperrors.Validation("metric must be one of dps, ehp, balanced")
	}
	if r.FreeBudget < 0 {
		return apperrors.Validation("free_budget must be >= 0")
	}
	if r.RespecBudget < -1 {
		return apperrors.Validation("respec_budget must be >= 0, or -1 for unlimited")
	}
	if r.MaxIterations < 0 {
		return apperrors.Validation("max_iterations must be >= 0")
	}
	if r.MaxTimeSeconds < 0 {
		return apperrors.Validation("max_time_seconds must be >= 0")
	}
	if r.Patience < 0 {
		return apperrors.Validation("patience must be >= 0")
	}
	return nil
}

// SessionResponse is what POST /optimize and GET /result/{id} return.
type SessionResponse struct {
	SessionID         string   `json:"session_id"`
	Status            string   `json:"status"`
	ConvergenceReason string   `json:"convergence_reason,omitempty"`
	Iterations        int      `json:"iterations,omitempty"`
	BaselineMetric    float64  `json:"baseline_metric,omitempty"`
	BestMetric        float64  `json:"best_metric,omitempty"`
	BuildCode         string   `json:"build_code,omitempty"`
	Stats             *statsDTO `json:"stats,omitempty"`
	Error             *errorDTO `json:"error,omitempty"`
}

type statsDTO struct {
	TotalDPS     float64 `json:"total_dps"`
	EffectiveHP  float64 `json:"effective_hp"`
	Life         float64 `json:"life"`
	Mana         float64 `json:"mana"`
	EnergyShield float64 `json:"energy_shield"`
	Armour       float64 `json:"armour"`
	Evasion      float64 `json:"evasion"`
	BlockChance  float64 `json:"block_chance"`
	Resistances  resistancesDTO `json:"resistances"`
}

type resistancesDTO struct {
	Fire      float64 `json:"fire"`
	Cold      float64 `json:"cold"`
	Lightning float64 `json:"lightning"`
	Chaos     float64 `json:"chaos"`
}

type errorDTO struct {
	ErrorType string `json:"error_type"`
	Reason    string `json:"reason"`
	Details   string `json:"details,omitempty"`
	Action    string `json:"action,omitempty"`
}

func errorDTOFrom(err error) errorDTO {
	if svcErr, ok := apperrors.As(err); ok {
		return errorDTO{
			ErrorType: string(svcErr.Type),
			Reason:    svcErr.Reason,
			Details:   svcErr.Details,
			Action:    svcErr.Action,
		}
	}
	return errorDTO{ErrorType: string(apperrors.ErrTypeInternal), Reason: err.Error()}
}
