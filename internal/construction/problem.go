// Package construction builds and repairs solutions by inserting jobs into
// routes.
package construction

import (
	"math/rand"

	"github.com/copyleftdev/vrp/internal/construction/constraints"
	"github.com/copyleftdev/vrp/internal/models"
)

// Problem is the immutable problem definition shared by all generations.
type Problem struct {
	Fleet     *models.Fleet
	Jobs      *models.Jobs
	Pipeline  *constraints.Pipeline
	Transport models.TransportCost
	Activity  models.ActivityCost
}

// NewProblem creates a problem with the default constraint pipeline for
// single-dimensional loads.
func NewProblem(fleet *models.Fleet, jobs *models.Jobs, transport models.TransportCost, activity models.ActivityCost) *Problem {
	if activity == nil {
		activity = models.SimpleActivityCost{}
	}
	return &Problem{
		Fleet:     fleet,
		Jobs:      jobs,
		Pipeline:  DefaultPipeline[models.SingleDimLoad](transport, activity),
		Transport: transport,
		Activity:  activity,
	}
}

// DefaultPipeline creates the standard constraint modules for load type L.
func DefaultPipeline[L models.Load[L]](transport models.TransportCost, activity models.ActivityCost) *constraints.Pipeline {
	return constraints.NewPipeline(
		constraints.NewTransport(transport, activity),
		constraints.NewCapacity[L](),
		constraints.Skills{},
		constraints.FleetUsage{},
		constraints.TourSize{},
	)
}

// NewSolution creates a solution with every job required.
func (p *Problem) NewSolution() *models.Solution {
	return models.NewSolution(p.Fleet, p.Jobs)
}

// InsertionContext is the state a ruin or recreate step works on. The
// solution and random source are owned by the step.
type InsertionContext struct {
	Problem  *Problem
	Solution *models.Solution
	Random   *rand.Rand
}

// NewInsertionContext creates an insertion context.
func NewInsertionContext(problem *Problem, solution *models.Solution, random *rand.Rand) *InsertionContext {
	return &InsertionContext{Problem: problem, Solution: solution, Random: random}
}

// RemoveJob removes the job from its route, recomputes the route state and
// adds the job to the required list. It reports whether the job was assigned.
func (ctx *InsertionContext) RemoveJob(job models.Job) bool {
	rc := ctx.Solution.RemoveJob(job)
	if rc == nil {
		return false
	}
	ctx.Problem.Pipeline.AcceptRouteState(rc)
	ctx.Solution.Required = append(ctx.Solution.Required, rootJob(job))
	return true
}

// Finalize drops empty routes and recomputes all route states.
func (ctx *InsertionContext) Finalize() {
	ctx.Problem.Pipeline.AcceptSolutionState(ctx.Solution)
}

func rootJob(job models.Job) models.Job {
	if single, ok := job.(*models.Single); ok {
		return single.Root()
	}
	return job
}
