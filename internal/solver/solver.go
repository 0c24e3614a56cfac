// Package solver runs the population based ruin and recreate refinement of a
// routing problem.
package solver

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/copyleftdev/vrp/internal/construction"
	"github.com/copyleftdev/vrp/internal/errors"
	"github.com/copyleftdev/vrp/internal/metrics"
	"github.com/copyleftdev/vrp/internal/refinement"
	"github.com/copyleftdev/vrp/internal/refinement/acceptance"
	"github.com/copyleftdev/vrp/internal/refinement/objectives"
	"github.com/copyleftdev/vrp/internal/refinement/recreate"
	"github.com/copyleftdev/vrp/internal/refinement/ruin"
	"github.com/copyleftdev/vrp/internal/refinement/termination"
)

const component = "solver"

// Config contains the refinement parameters of a run.
type Config struct {
	// Workers is the number of generations computed concurrently.
	Workers int
	// Seed makes runs with a single worker reproducible. Zero picks a time
	// based seed.
	Seed int64
	// Acceptance configures the population.
	Acceptance acceptance.Config
	// Selection names the parent selection policy (uniform or rank).
	Selection string

	// MaxGenerations stops the run after that many generations.
	MaxGenerations int
	// MaxTime stops the run after that much wall time. Zero disables it.
	MaxTime time.Duration
	// StagnationWindow enables stagnation detection over that many
	// generations when at least 2.
	StagnationWindow int
	// StagnationThreshold is the coefficient of variation of the best cost
	// below which the run counts as stagnated.
	StagnationThreshold float64

	// Objective, Ruin, Recreate and Initial default to the standard ones.
	Objective objectives.Objective
	Ruin      refinement.Ruin
	Recreate  refinement.Recreate
	Initial   refinement.Recreate

	Logger *zap.Logger
}

// DefaultConfig returns the default run parameters.
func DefaultConfig() Config {
	return Config{
		Workers:             4,
		Acceptance:          acceptance.DefaultConfig(),
		Selection:           "uniform",
		MaxGenerations:      2000,
		MaxTime:             30 * time.Second,
		StagnationWindow:    200,
		StagnationThreshold: 0.001,
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxGenerations < 0 {
		return fmt.Errorf("max generations must not be negative, got %d", c.MaxGenerations)
	}
	if c.MaxTime < 0 {
		return fmt.Errorf("max time must not be negative, got %v", c.MaxTime)
	}
	if c.StagnationWindow == 1 || c.StagnationWindow < 0 {
		return fmt.Errorf("stagnation window must be 0 or at least 2, got %d", c.StagnationWindow)
	}
	if c.StagnationThreshold < 0 {
		return fmt.Errorf("stagnation threshold must not be negative, got %v", c.StagnationThreshold)
	}
	return c.Acceptance.Validate()
}

// Result is the outcome of a run.
type Result struct {
	// Population is ranked best first.
	Population  []refinement.Individual
	Generations int
	Elapsed     time.Duration
	// Cancelled is set when the run was stopped from outside.
	Cancelled bool
}

// Best returns the best individual.
func (r *Result) Best() refinement.Individual {
	return r.Population[0]
}

// Solver refines solutions of one problem. A Solver runs once.
type Solver struct {
	problem     *construction.Problem
	config      Config
	logger      *zap.Logger
	selection   refinement.Selection
	objective   objectives.Objective
	ruin        refinement.Ruin
	recreate    refinement.Recreate
	initial     refinement.Recreate
	seed        int64
	termination termination.Termination

	mu         sync.Mutex
	rctx       *refinement.Context
	acceptance *acceptance.Population
	stopped    bool
	err        error
	cancel     context.CancelFunc
}

// New creates a solver for the problem.
func New(problem *construction.Problem, config Config) (*Solver, error) {
	const op = "New"

	if problem == nil {
		return nil, errors.New("problem is required").WithOperation(op).WithComponent(component)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration").WithOperation(op).WithComponent(component)
	}
	selection, err := refinement.NewSelection(config.Selection)
	if err != nil {
		return nil, errors.Wrap(err, "invalid selection").WithOperation(op).WithComponent(component)
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Solver{
		problem:   problem,
		config:    config,
		logger:    config.Logger,
		selection: selection,
		objective: config.Objective,
		ruin:      config.Ruin,
		recreate:  config.Recreate,
		initial:   config.Initial,
		seed:      seed,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named(component)
	if s.objective == nil {
		s.objective = objectives.Default()
	}
	if s.ruin == nil {
		s.ruin = ruin.Default()
	}
	if s.recreate == nil {
		s.recreate = recreate.Default()
	}
	if s.initial == nil {
		s.initial = recreate.NewCheapest()
	}

	s.acceptance, err = acceptance.NewPopulation(config.Acceptance, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, errors.Wrap(err, "invalid acceptance").WithOperation(op).WithComponent(component)
	}
	s.rctx = refinement.NewContext(problem, s.objective)

	return s, nil
}

// Solve builds an initial solution and refines it until a termination
// condition holds. Cancelling ctx or calling Stop ends the run after the
// in-flight generations complete; the population found so far is returned.
// A malformed problem stops the run with an error.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	const op = "Solve"

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil, errors.New("solver already started").WithOperation(op).WithComponent(component)
	}
	ctx, s.cancel = context.WithCancel(ctx)
	if s.stopped {
		s.cancel()
	}
	s.mu.Unlock()
	defer s.cancel()

	s.termination = s.buildTermination(ctx)
	s.logger.Info("Starting refinement",
		zap.Int("jobs", s.problem.Jobs.Size()),
		zap.Int("actors", len(s.problem.Fleet.Actors)),
		zap.Int("workers", s.config.Workers),
		zap.Int64("seed", s.seed),
	)

	s.rctx.StartTime = time.Now()
	initial, err := s.construct(rand.New(rand.NewSource(s.seed)))
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.rctx.Apply(s.acceptance, initial)
	metrics.BestCost.Set(initial.Cost.Total())
	if s.termination.IsTermination(s.rctx) {
		s.stopped = true
	}
	s.mu.Unlock()

	p := pool.New().WithMaxGoroutines(s.config.Workers)
	for w := 0; w < s.config.Workers; w++ {
		random := rand.New(rand.NewSource(s.seed + int64(w) + 1))
		p.Go(func() {
			s.work(ctx, random)
		})
	}
	p.Wait()

	if s.err != nil {
		return nil, s.fail(s.err)
	}

	result := &Result{
		Population:  s.Population(),
		Generations: s.Generation(),
		Elapsed:     time.Since(s.rctx.StartTime),
		Cancelled:   ctx.Err() != nil,
	}
	metrics.Runs.WithLabelValues("completed").Inc()
	s.logger.Info("Refinement finished",
		zap.Int("generations", result.Generations),
		zap.Duration("elapsed", result.Elapsed),
		zap.Bool("cancelled", result.Cancelled),
		zap.Stringer("best_cost", result.Best().Cost),
	)
	return result, nil
}

func (s *Solver) fail(err error) error {
	metrics.Runs.WithLabelValues("failed").Inc()

	fields := []zap.Field{zap.Error(err)}
	var e *errors.Error
	if errors.As(err, &e) {
		fields = append(fields, zap.Strings("stack", e.StackTrace()))
	}
	s.logger.Error("Refinement stopped by a malformed problem", fields...)
	return err
}

// work runs generations until the run stops. Parent selection, acceptance
// and termination run under the population lock; ruin and recreate do not.
func (s *Solver) work(ctx context.Context, random *rand.Rand) {
	for {
		select {
		case <-ctx.Done():
			s.stop()
			return
		default:
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		parent := s.selection.Select(s.rctx, random)
		s.mu.Unlock()

		start := time.Now()
		candidate, err := s.generate(parent, random)
		metrics.GenerationDuration.Observe(time.Since(start).Seconds())

		s.mu.Lock()
		if err != nil {
			if s.err == nil {
				s.err = err
			}
			s.stopped = true
		}
		if s.stopped {
			metrics.Candidates.WithLabelValues(metrics.OutcomeDiscarded).Inc()
			s.mu.Unlock()
			return
		}
		s.accept(candidate)
		s.mu.Unlock()
	}
}

// accept must be called with the lock held.
func (s *Solver) accept(candidate refinement.Individual) {
	previous, _ := s.rctx.Best()

	if s.rctx.Apply(s.acceptance, candidate) {
		metrics.Candidates.WithLabelValues(metrics.OutcomeAccepted).Inc()
	} else {
		metrics.Candidates.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
	s.rctx.Generation++
	metrics.Generations.Inc()

	if best, _ := s.rctx.Best(); s.objective.Compare(best.Cost, previous.Cost) < 0 {
		metrics.BestCost.Set(best.Cost.Total())
		s.logger.Debug("Best solution improved",
			zap.Int("generation", s.rctx.Generation),
			zap.Stringer("cost", best.Cost),
		)
	}

	if s.termination.IsTermination(s.rctx) {
		s.stopped = true
	}
}

func (s *Solver) construct(random *rand.Rand) (individual refinement.Individual, err error) {
	defer errors.Recover(&err, "construct", component)

	ictx := construction.NewInsertionContext(s.problem, s.problem.NewSolution(), random)
	s.initial.Run(ictx)
	return s.rctx.Evaluate(ictx.Solution), nil
}

func (s *Solver) generate(parent refinement.Individual, random *rand.Rand) (individual refinement.Individual, err error) {
	defer errors.Recover(&err, "generate", component)

	return refinement.Generate(s.problem, s.objective, parent.Solution, s.ruin, s.recreate, random), nil
}

func (s *Solver) buildTermination(ctx context.Context) termination.Termination {
	terminations := []termination.Termination{
		termination.MaxGeneration{Limit: s.config.MaxGenerations},
		termination.NewCancellation(ctx),
	}
	if s.config.MaxTime > 0 {
		terminations = append(terminations, termination.NewMaxTime(s.config.MaxTime))
	}
	if s.config.StagnationWindow >= 2 {
		terminations = append(terminations, termination.NewCostVariation(s.config.StagnationWindow, s.config.StagnationThreshold))
	}
	return termination.NewComposite(terminations...)
}

func (s *Solver) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Best returns the best individual found so far.
func (s *Solver) Best() (refinement.Individual, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rctx.Best()
}

// Population returns a copy of the current population, best first.
func (s *Solver) Population() []refinement.Individual {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]refinement.Individual(nil), s.rctx.Population...)
}

// Generation returns the number of finished generations.
func (s *Solver) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rctx.Generation
}

// Stop ends a running Solve after the in-flight generations complete.
func (s *Solver) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.stopped = true
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
