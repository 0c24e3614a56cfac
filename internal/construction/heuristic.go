package construction

import (
	"cmp"
	"math"
	"slices"

	"github.com/copyleftdev/vrp/internal/models"
)

// JobSelector orders the pending jobs before they are evaluated.
type JobSelector interface {
	Select(ctx *InsertionContext, jobs []models.Job) []models.Job
}

// JobEvaluation is the outcome of evaluating one pending job on all
// candidate routes.
type JobEvaluation struct {
	Job models.Job
	// Result is the cheapest insertion.
	Result InsertionResult
	// Regret is the cost difference between the two cheapest routes or
	// +Inf when only one route is feasible.
	Regret models.Cost
	// Order is the job position in the problem.
	Order int
}

// ResultSelector picks which evaluated job is inserted next.
type ResultSelector interface {
	Select(evaluations []JobEvaluation) int
}

// InsertionHeuristic inserts required jobs one at a time until none is
// left. Jobs without any feasible insertion become unassigned.
type InsertionHeuristic struct {
	JobSelector    JobSelector
	ResultSelector ResultSelector
	// Sequential evaluates only the first selected job per step.
	Sequential bool
}

// Process inserts every required job of the context's solution.
func (h *InsertionHeuristic) Process(ctx *InsertionContext) {
	for len(ctx.Solution.Required) > 0 {
		jobs := h.JobSelector.Select(ctx, slices.Clone(ctx.Solution.Required))
		if h.Sequential && len(jobs) > 1 {
			jobs = jobs[:1]
		}

		routes := ctx.CandidateRoutes()
		evaluations := make([]JobEvaluation, 0, len(jobs))
		for _, job := range jobs {
			evaluation := evaluateJob(ctx, job, routes)
			if !evaluation.Result.Success {
				ctx.MarkUnassigned(job, evaluation.Result.Code)
				continue
			}
			evaluations = append(evaluations, evaluation)
		}

		if len(evaluations) == 0 {
			continue
		}
		ctx.Apply(evaluations[h.ResultSelector.Select(evaluations)].Result)
	}

	ctx.Finalize()
}

func evaluateJob(ctx *InsertionContext, job models.Job, routes []*models.RouteContext) JobEvaluation {
	perRoute := EvaluatePerRoute(ctx, job, routes)
	best := bestOf(job, perRoute)

	regret := math.Inf(1)
	if best.Success {
		for _, result := range perRoute {
			if result.Success && result.Route != best.Route {
				regret = min(regret, result.Cost-best.Cost)
			}
		}
	}

	return JobEvaluation{Job: job, Result: best, Regret: regret, Order: ctx.Problem.Jobs.Index(job)}
}

// ProblemOrder keeps jobs in problem order.
type ProblemOrder struct{}

func (ProblemOrder) Select(ctx *InsertionContext, jobs []models.Job) []models.Job {
	slices.SortStableFunc(jobs, func(a, b models.Job) int {
		return cmp.Compare(ctx.Problem.Jobs.Index(a), ctx.Problem.Jobs.Index(b))
	})
	return jobs
}

// ShuffledOrder shuffles jobs with the context random source.
type ShuffledOrder struct{}

func (ShuffledOrder) Select(ctx *InsertionContext, jobs []models.Job) []models.Job {
	jobs = ProblemOrder{}.Select(ctx, jobs)
	ctx.Random.Shuffle(len(jobs), func(i, j int) { jobs[i], jobs[j] = jobs[j], jobs[i] })
	return jobs
}

// DemandOrder puts jobs with the largest demand first.
type DemandOrder struct{}

func (DemandOrder) Select(ctx *InsertionContext, jobs []models.Job) []models.Job {
	jobs = ProblemOrder{}.Select(ctx, jobs)
	slices.SortStableFunc(jobs, func(a, b models.Job) int {
		return cmp.Compare(DemandSize(b), DemandSize(a))
	})
	return jobs
}

// DemandSize returns the total peak demand of the job over all load
// dimensions.
func DemandSize(job models.Job) int {
	total := 0
	for _, part := range jobParts(job) {
		switch d := part.Dimensions()[models.DimensionDemand].(type) {
		case models.Demand[models.SingleDimLoad]:
			total += d.Peak().Value
		case models.Demand[models.MultiDimLoad]:
			for _, v := range d.Peak().Values {
				total += v
			}
		}
	}
	return total
}

func jobParts(job models.Job) []*models.Single {
	switch j := job.(type) {
	case *models.Single:
		return []*models.Single{j}
	case *models.Multi:
		return j.Jobs()
	}
	return nil
}

// CheapestResult picks the globally cheapest insertion.
type CheapestResult struct{}

func (CheapestResult) Select(evaluations []JobEvaluation) int {
	return selectBest(evaluations, func(a, b JobEvaluation) int {
		return cmp.Compare(a.Result.Cost, b.Result.Cost)
	})
}

// RegretResult picks the job which loses most when not inserted into its
// best route.
type RegretResult struct{}

func (RegretResult) Select(evaluations []JobEvaluation) int {
	return selectBest(evaluations, func(a, b JobEvaluation) int {
		if c := cmp.Compare(b.Regret, a.Regret); c != 0 {
			return c
		}
		return cmp.Compare(a.Result.Cost, b.Result.Cost)
	})
}

// DifficultyResult picks the job with the fewest feasible alternatives.
type DifficultyResult struct{}

func (DifficultyResult) Select(evaluations []JobEvaluation) int {
	return selectBest(evaluations, func(a, b JobEvaluation) int {
		if c := cmp.Compare(a.Result.Feasible, b.Result.Feasible); c != 0 {
			return c
		}
		return cmp.Compare(a.Result.Cost, b.Result.Cost)
	})
}

// selectBest returns the index of the smallest evaluation, breaking ties by
// problem order.
func selectBest(evaluations []JobEvaluation, compare func(a, b JobEvaluation) int) int {
	best := 0
	for i := 1; i < len(evaluations); i++ {
		c := compare(evaluations[i], evaluations[best])
		if c < 0 || (c == 0 && evaluations[i].Order < evaluations[best].Order) {
			best = i
		}
	}
	return best
}
