// Package refinement defines the population based ruin and recreate search.
package refinement

import (
	"math/rand"
	"time"

	"github.com/copyleftdev/vrp/internal/construction"
	"github.com/copyleftdev/vrp/internal/models"
	"github.com/copyleftdev/vrp/internal/refinement/objectives"
)

// Individual is a solution with its cost.
type Individual struct {
	Solution *models.Solution
	Cost     objectives.Cost
}

// Context is the state of one refinement run. Population is kept best first
// and is only replaced with the result of an Acceptance.
type Context struct {
	Problem    *construction.Problem
	Objective  objectives.Objective
	Population []Individual
	Generation int
	StartTime  time.Time
}

// NewContext creates a context with an empty population at generation 0.
func NewContext(problem *construction.Problem, objective objectives.Objective) *Context {
	if objective == nil {
		objective = objectives.Default()
	}
	return &Context{
		Problem:   problem,
		Objective: objective,
		StartTime: time.Now(),
	}
}

// Best returns the best individual.
func (c *Context) Best() (Individual, bool) {
	if len(c.Population) == 0 {
		return Individual{}, false
	}
	return c.Population[0], true
}

// Evaluate computes the cost of a solution.
func (c *Context) Evaluate(solution *models.Solution) Individual {
	return Individual{Solution: solution, Cost: c.Objective.Fitness(solution)}
}

// Ruin removes jobs from the context solution, adds them to its required
// list and returns them.
type Ruin interface {
	Run(ctx *construction.InsertionContext) []models.Job
}

// Recreate inserts the required jobs of the context solution.
type Recreate interface {
	Run(ctx *construction.InsertionContext)
}

// Acceptance merges a candidate into the population and returns the new
// population and whether the candidate was kept.
type Acceptance interface {
	Accept(ctx *Context, candidate Individual) ([]Individual, bool)
}

// Termination decides whether the run stops.
type Termination interface {
	IsTermination(ctx *Context) bool
}

// Selection picks a parent from a non-empty population.
type Selection interface {
	Select(ctx *Context, random *rand.Rand) Individual
}

// Generate produces a candidate from the parent: the parent is cloned,
// ruined and recreated. The parent itself is not modified.
func Generate(problem *construction.Problem, objective objectives.Objective, parent *models.Solution,
	ruin Ruin, recreate Recreate, random *rand.Rand) Individual {
	solution := parent.Clone()
	ictx := construction.NewInsertionContext(problem, solution, random)

	ruin.Run(ictx)
	ictx.Finalize()
	solution.RequeueUnassigned()
	recreate.Run(ictx)

	return Individual{Solution: solution, Cost: objective.Fitness(solution)}
}

// Apply replaces the population with the result of the acceptance.
func (c *Context) Apply(acceptance Acceptance, candidate Individual) bool {
	population, accepted := acceptance.Accept(c, candidate)
	c.Population = population
	return accepted
}
