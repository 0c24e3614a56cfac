package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/copyleftdev/vrp/internal/checker"
	"github.com/copyleftdev/vrp/internal/config"
	"github.com/copyleftdev/vrp/internal/construction"
	"github.com/copyleftdev/vrp/internal/errors"
	"github.com/copyleftdev/vrp/internal/metrics"
	"github.com/copyleftdev/vrp/internal/solver"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const component = "server"

// errRateLimited is returned when solve submissions exceed the configured rate.
var errRateLimited = errors.New("rate limit exceeded")

// SolveState represents the state of a solve run. Fields are guarded by the
// server mutex.
type SolveState struct {
	ID              string
	Status          string
	StartTime       time.Time
	EndTime         *time.Time
	Problem         *construction.Problem
	Solver          *solver.Solver
	Result          *solver.Result
	Err             error
	CheckErrors     []string
	CancelRequested bool
}

// Server implements the HTTP and JSON-RPC API of the refinement service.
// It manages solve runs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	limiter *rate.Limiter

	runs   map[string]*SolveState
	runsMu sync.RWMutex
	wg     sync.WaitGroup
}

// NewServer creates a new server instance with the given config and logger.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RateLimit.RPS > 0 {
		limit = rate.Limit(cfg.RateLimit.RPS)
	}
	return &Server{
		cfg:     cfg,
		logger:  logger.Named(component),
		limiter: rate.NewLimiter(limit, max(cfg.RateLimit.Burst, 1)),
		runs:    make(map[string]*SolveState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/solve/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Instrument records request counts and durations by route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := fmt.Sprint(rw.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

type solveIDParams struct {
	SolveID string `json:"solve_id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "solve.start":
		var problem ProblemRequest
		if err = decodeParams(request.Params, &problem); err == nil {
			result, err = s.startSolve(&problem)
		}
	case "solve.status":
		var params solveIDParams
		if err = decodeParams(request.Params, &params); err == nil {
			result, err = s.solveStatus(params.SolveID)
		}
	case "solve.cancel":
		var params solveIDParams
		if err = decodeParams(request.Params, &params); err == nil {
			err = s.cancelSolve(params.SolveID)
		}
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

func decodeParams(params []json.RawMessage, target interface{}) error {
	if len(params) == 0 {
		return errors.New("missing required parameters")
	}
	if err := json.Unmarshal(params[0], target); err != nil {
		return errors.Errorf("invalid parameter format: %v", err)
	}
	return nil
}

// startSolve validates the problem and starts a solver run in the background.
// Returns: {"solve_id": "<uuid>", "status": "running"}
// Only valid requests count against the rate limit.
func (s *Server) startSolve(request *ProblemRequest) (map[string]interface{}, error) {
	problem, err := request.BuildProblem()
	if err != nil {
		return nil, errors.Errorf("invalid problem: %v", err)
	}

	id := uuid.New().String()
	solverConfig, err := s.solverConfig(request.Refinement)
	if err != nil {
		return nil, err
	}
	solverConfig.Logger = s.logger.With(zap.String("solve_id", id))

	sv, err := solver.New(problem, solverConfig)
	if err != nil {
		return nil, err
	}

	if !s.limiter.Allow() {
		return nil, errRateLimited
	}

	state := &SolveState{
		ID:        id,
		Status:    StatusRunning,
		StartTime: time.Now(),
		Problem:   problem,
		Solver:    sv,
	}

	s.runsMu.Lock()
	s.pruneRuns(state.StartTime)
	s.runs[id] = state
	s.runsMu.Unlock()

	s.wg.Add(1)
	go s.runSolve(state)

	s.logger.Info("Solve started",
		zap.String("solve_id", id),
		zap.Int("jobs", problem.Jobs.Size()),
		zap.Int("vehicles", len(problem.Fleet.Vehicles)),
	)

	return map[string]interface{}{
		"solve_id": id,
		"status":   StatusRunning,
	}, nil
}

// solverConfig merges the configured refinement parameters with the request
// overrides.
func (s *Server) solverConfig(overrides *RefinementOverrides) (solver.Config, error) {
	r := s.cfg.Refinement
	c := solver.DefaultConfig()
	c.Workers = r.Workers
	c.Seed = r.Seed
	c.Selection = r.Selection
	c.MaxGenerations = r.MaxGenerations
	c.MaxTime = r.MaxTime
	c.StagnationWindow = r.StagnationWindow
	c.StagnationThreshold = r.StagnationThreshold
	c.Acceptance.MaxSize = r.PopulationSize
	c.Acceptance.InitialTemperature = r.InitialTemperature
	c.Acceptance.Cooling = r.Cooling

	if overrides == nil {
		return c, nil
	}
	if overrides.MaxGenerations != nil {
		c.MaxGenerations = *overrides.MaxGenerations
	}
	if overrides.Workers != nil {
		c.Workers = *overrides.Workers
	}
	if overrides.Seed != nil {
		c.Seed = *overrides.Seed
	}
	if overrides.PopulationSize != nil {
		c.Acceptance.MaxSize = *overrides.PopulationSize
	}
	if overrides.Selection != nil {
		c.Selection = *overrides.Selection
	}
	if overrides.MaxTime != nil {
		maxTime, err := parseDuration(overrides.MaxTime)
		if err != nil {
			return c, errors.Errorf("invalid max_time: %v", err)
		}
		c.MaxTime = maxTime
	}
	return c, nil
}

// pruneRuns drops runs finished longer than the retention ago. The caller
// must hold the write lock.
func (s *Server) pruneRuns(now time.Time) {
	retention := s.cfg.Runs.Retention
	if retention <= 0 {
		return
	}
	for id, state := range s.runs {
		if state.EndTime != nil && now.Sub(*state.EndTime) > retention {
			delete(s.runs, id)
			s.logger.Debug("Solve pruned", zap.String("solve_id", id))
		}
	}
}

// runSolve executes the solver and records its outcome
func (s *Server) runSolve(state *SolveState) {
	defer s.wg.Done()

	result, err := state.Solver.Solve(context.Background())

	var checkErrors []string
	if err == nil && s.cfg.Checker.Enabled {
		c := checker.New(state.Problem, checker.Config{
			SkipDistanceCheck: s.cfg.Checker.SkipDistance,
			Tolerance:         s.cfg.Checker.Tolerance,
		})
		for _, e := range multierr.Errors(c.Check(result.Best().Solution)) {
			checkErrors = append(checkErrors, e.Error())
		}
		if len(checkErrors) > 0 {
			s.logger.Warn("Solution failed routing check",
				zap.String("solve_id", state.ID),
				zap.Strings("errors", checkErrors),
			)
		}
	}

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	switch {
	case err != nil:
		s.logger.Error("Solve failed", zap.String("solve_id", state.ID), zap.Error(err))
		state.Status = StatusFailed
		state.Err = err
	case result.Cancelled:
		state.Status = StatusCancelled
	default:
		state.Status = StatusCompleted
	}
	state.Result = result
	state.CheckErrors = checkErrors

	now := time.Now()
	state.EndTime = &now
}

// solveStatus returns the current status and best solution of a run.
func (s *Server) solveStatus(id string) (map[string]interface{}, error) {
	if id == "" {
		return nil, errors.New("solve_id is required")
	}

	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	state, exists := s.runs[id]
	if !exists {
		return nil, errors.New("solve not found")
	}

	response := map[string]interface{}{
		"solve_id":   state.ID,
		"status":     state.Status,
		"generation": state.Solver.Generation(),
		"start_time": state.StartTime.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Err != nil {
		response["error"] = state.Err.Error()
	}
	if len(state.CheckErrors) > 0 {
		response["check_errors"] = state.CheckErrors
	}
	if best, ok := state.Solver.Best(); ok {
		response["best_cost"] = best.Cost.Total()
		response["best_solution"] = newSolutionResponse(best)
	}

	return response, nil
}

// cancelSolve requests a running solve to stop after its in-flight
// generations complete.
func (s *Server) cancelSolve(id string) error {
	if id == "" {
		return errors.New("solve_id is required")
	}

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	state, exists := s.runs[id]
	if !exists {
		return errors.New("solve not found")
	}
	if state.Status != StatusRunning {
		return errors.Errorf("cannot cancel solve with status: %s", state.Status)
	}

	state.CancelRequested = true
	state.Solver.Stop()

	s.logger.Info("Solve cancellation requested", zap.String("solve_id", id))
	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Debug("JSON-RPC error",
		zap.Int("code", code),
		zap.String("message", message),
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

// Close stops all running solves and waits for them to finish.
func (s *Server) Close() error {
	s.runsMu.RLock()
	for _, state := range s.runs {
		state.Solver.Stop()
	}
	s.runsMu.RUnlock()

	s.wg.Wait()
	return nil
}

// handleSolve handles POST /api/v1/solve
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var request ProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("Invalid request body: %v", err),
		})
		return
	}

	result, err := s.startSolve(&request)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errRateLimited) {
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

// handleStatus handles GET /api/v1/status/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.solveStatus(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancel handles DELETE /api/v1/solve/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.cancelSolve(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
