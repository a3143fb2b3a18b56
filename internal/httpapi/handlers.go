// Package httpapi implements the HTTP Surface (C10): the six
// endpoints the service exposes, translating between JSON/SSE wire
// formats and the session coordinator underneath.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/apperrors"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/buildcode"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/config"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/hillclimb"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/logging"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/oracle"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/session"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

// Server holds the dependencies every handler needs.
type Server struct {
	graph       *treegraph.Graph
	oracle      *oracle.Oracle
	coordinator *session.Coordinator
	cfg         config.Config
	logger      *logging.Logger
}

// NewServer builds a Server.
func NewServer(graph *treegraph.Graph, o *oracle.Oracle, coordinator *session.Coordinator, cfg config.Config, logger *logging.Logger) *Server {
	return &Server{graph: graph, oracle: o, coordinator: coordinator, cfg: cfg, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.HTTPStatus(err), errorDTOFrom(err))
}

// handleIndex serves GET /: a minimal service description, enough for
// a human or a health checker to confirm the server is up.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":    "passive-skill-tree-optimizer",
		"tree_nodes": s.graph.NodeCount(),
		"status":     "ok",
	})
}

// handleOptimize serves POST /optimize: decode the build code, apply
// documented defaults, and hand the session coordinator a new run.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("request body is not valid JSON"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	baseline, envelope, err := buildcode.Decode(req.BuildCode)
	if err != nil {
		writeError(w, apperrors.BuildDecode(err))
		return
	}
	if !baseline.Class.IsValid() {
		writeError(w, apperrors.UnsupportedBuild("build uses an unrecognized character class"))
		return
	}
	if !baseline.IsConnected(s.graph) {
		writeError(w, apperrors.UnsupportedBuild("build's allocated nodes are not a connected subtree"))
		return
	}

	hcCfg := hillclimb.Config{
		Metric:                 hillclimb.Metric(req.Metric),
		FreeBudget:             req.FreeBudget,
		RespecBudget:           req.RespecBudget,
		MaxIterations:          orDefault(req.MaxIterations, s.cfg.MaxIterations),
		MaxWallTime:            orDefaultDuration(req.MaxTimeSeconds, s.cfg.MaxWallTime),
		Patience:               orDefault(req.Patience, s.cfg.Patience),
		MinRelativeImprovement: orDefaultFloat(req.MinRelativeImprovement, s.cfg.MinRelImprove),
		BalancedDPSWeight:      s.cfg.BalancedDPSWeight,
		BalancedEHPWeight:      s.cfg.BalancedEHPWeight,
		ProgressEvery:          s.cfg.ProgressEvery,
		ProgressInterval:       s.cfg.ProgressInterval,
	}

	sess := s.coordinator.Submit(session.Request{
		Baseline: baseline,
		Envelope: envelope,
		Config:   hcCfg,
	})

	writeJSON(w, http.StatusAccepted, SessionResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
	})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultDuration(seconds int, def time.Duration) time.Duration {
	if seconds <= 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}

// handleResult serves GET /result/{id}.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := s.coordinator.Get(id)
	if !ok {
		writeError(w, apperrors.SessionNotFound(id))
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func toSessionResponse(sess *session.Session) SessionResponse {
	resp := SessionResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
	}
	if sess.Result != nil {
		resp.ConvergenceReason = sess.Result.ConvergenceReason
		resp.Iterations = sess.Result.Iterations
		resp.BaselineMetric = sess.Result.BaselineMetric
		resp.BestMetric = sess.Result.BestMetric
		resp.Stats = &statsDTO{
			TotalDPS:     sess.Result.BestStats.TotalDPS,
			EffectiveHP:  sess.Result.BestStats.EffectiveHP,
			Life:         sess.Result.BestStats.Life,
			Mana:         sess.Result.BestStats.Mana,
			EnergyShield: sess.Result.BestStats.EnergyShield,
			Armour:       sess.Result.BestStats.Armour,
			Evasion:      sess.Result.BestStats.Evasion,
			BlockChance:  sess.Result.BestStats.BlockChance,
			Resistances: resistancesDTO{
				Fire:      sess.Result.BestStats.Resistances.Fire,
				Cold:      sess.Result.BestStats.Resistances.Cold,
				Lightning: sess.Result.BestStats.Resistances.Lightning,
				Chaos:     sess.Result.BestStats.Resistances.Chaos,
			},
		}
	}
	if sess.Err != nil {
		dto := errorDTOFrom(sess.Err)
		resp.Error = &dto
	}
	return resp
}

// handleCancel serves POST /cancel/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.coordinator.Cancel(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// handleExport serves GET /export/{id}: re-encodes the session's best
// build back into wire format, preserving every untouched XML
// fragment from the original submission.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, ok := s.coordinator.Get(id)
	if !ok {
		writeError(w, apperrors.SessionNotFound(id))
		return
	}
	if sess.Status != session.StatusCompleted || sess.Result == nil {
		writeError(w, apperrors.Validation("session has no completed result to export"))
		return
	}

	code, err := buildcode.Encode(sess.Result.Best, sess.Request.Envelope)
	if err != nil {
		writeError(w, apperrors.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"build_code": code})
}
