package construction

import (
	"slices"

	"github.com/copyleftdev/vrp/internal/construction/constraints"
	"github.com/copyleftdev/vrp/internal/models"
)

// Placement is an activity to insert at a tour index.
type Placement struct {
	Activity *models.Activity
	Index    int
}

// InsertionResult is the best insertion of a job found on one or more
// routes. Feasible counts the feasible alternatives seen.
type InsertionResult struct {
	Job        models.Job
	Route      *models.RouteContext
	Placements []Placement
	Cost       models.Cost
	Feasible   int
	Code       int
	Success    bool
}

func failure(job models.Job, code int) InsertionResult {
	return InsertionResult{Job: job, Code: code}
}

// CandidateRoutes returns the solution routes followed by one empty route
// for the first available actor of every actor group.
func (ctx *InsertionContext) CandidateRoutes() []*models.RouteContext {
	routes := slices.Clone(ctx.Solution.Routes)
	for _, actor := range ctx.Solution.Registry.NextByGroup() {
		rc := models.NewRouteContext(actor)
		ctx.Problem.Pipeline.AcceptRouteState(rc)
		routes = append(routes, rc)
	}
	return routes
}

// Evaluate returns the cheapest feasible insertion of the job across the
// routes. Ties keep the earlier route.
func Evaluate(ctx *InsertionContext, job models.Job, routes []*models.RouteContext) InsertionResult {
	return bestOf(job, EvaluatePerRoute(ctx, job, routes))
}

// EvaluatePerRoute returns the cheapest insertion of the job on every route.
func EvaluatePerRoute(ctx *InsertionContext, job models.Job, routes []*models.RouteContext) []InsertionResult {
	results := make([]InsertionResult, 0, len(routes))
	for _, rc := range routes {
		results = append(results, EvaluateRoute(ctx, rc, job))
	}
	return results
}

func bestOf(job models.Job, results []InsertionResult) InsertionResult {
	if len(results) == 0 {
		return failure(job, constraints.CodeNoActors)
	}

	best := failure(job, constraints.CodeUnknown)
	feasible := 0
	for _, result := range results {
		feasible += result.Feasible
		if !result.Success {
			if !best.Success && result.Code != constraints.CodeUnknown {
				best.Code = result.Code
			}
			continue
		}
		if !best.Success || result.Cost < best.Cost {
			best = result
		}
	}
	best.Feasible = feasible
	return best
}

// EvaluateRoute returns the cheapest insertion of the job into one route.
func EvaluateRoute(ctx *InsertionContext, rc *models.RouteContext, job models.Job) InsertionResult {
	pipeline := ctx.Problem.Pipeline

	verdict := pipeline.EvaluateJob(rc, job)
	if verdict.IsHard() {
		return failure(job, verdict.Code)
	}

	switch j := job.(type) {
	case *models.Single:
		return evaluateSingle(pipeline, rc, j, verdict.Cost)
	case *models.Multi:
		return evaluateMulti(pipeline, rc, j, verdict.Cost)
	}
	return failure(job, constraints.CodeUnknown)
}

func evaluateSingle(pipeline *constraints.Pipeline, rc *models.RouteContext, job *models.Single, jobCost models.Cost) InsertionResult {
	pos := bestPosition(pipeline, rc, job, 1, rc.Tour().LastInsertionIndex())
	if !pos.ok {
		return InsertionResult{Job: job, Code: pos.code}
	}
	return InsertionResult{
		Job:        job,
		Route:      rc,
		Placements: []Placement{{Activity: pos.activity, Index: pos.index}},
		Cost:       jobCost + pos.cost,
		Feasible:   pos.feasible,
		Success:    true,
	}
}

// evaluateMulti tries every permutation at every start index, inserting the
// parts contiguously into a scratch copy of the route.
func evaluateMulti(pipeline *constraints.Pipeline, rc *models.RouteContext, job *models.Multi, jobCost models.Cost) InsertionResult {
	best := failure(job, constraints.CodeUnknown)
	feasible := 0
	parts := job.Jobs()

	for _, perm := range job.Permutations() {
		for start := 1; start <= rc.Tour().LastInsertionIndex(); start++ {
			scratch := rc.Clone()
			placements := make([]Placement, 0, len(perm))
			cost := jobCost
			ok := true

			for k, idx := range perm {
				index := start + k
				pos := bestPosition(pipeline, scratch, parts[idx], index, index)
				if !pos.ok {
					ok = false
					if pos.code != constraints.CodeUnknown {
						best.Code = pos.code
					}
					break
				}
				scratch.Tour().Insert(pos.activity, index)
				pipeline.AcceptRouteState(scratch)
				placements = append(placements, Placement{Activity: pos.activity, Index: index})
				cost += pos.cost
			}

			if !ok {
				continue
			}
			feasible++
			if !best.Success || cost < best.Cost {
				best = InsertionResult{Job: job, Route: rc, Placements: placements, Cost: cost, Success: true}
			}
		}
	}

	best.Feasible = feasible
	return best
}

type position struct {
	activity *models.Activity
	index    int
	cost     models.Cost
	feasible int
	code     int
	ok       bool
}

// bestPosition tries every index in [from, to], place and time window of
// the job and returns the cheapest feasible one. Ties keep the first.
func bestPosition(pipeline *constraints.Pipeline, rc *models.RouteContext, job *models.Single, from, to int) position {
	tour := rc.Tour()
	result := position{code: constraints.CodeUnknown}

	for index := from; index <= to; index++ {
		prev, next := tour.Get(index-1), tour.Get(index)
		if splitsMulti(prev, next) {
			continue
		}
		for _, place := range job.Places() {
			times := place.Times
			if len(times) == 0 {
				times = []models.TimeWindow{models.MaxTimeWindow()}
			}
			for _, tw := range times {
				target := models.NewActivity(job, place.Location, place.Duration, tw)
				v := pipeline.EvaluateActivity(rc, &constraints.ActivityContext{
					Index:  index - 1,
					Prev:   prev,
					Target: target,
					Next:   next,
				})
				if v.IsHard() {
					result.code = v.Code
					continue
				}
				result.feasible++
				if !result.ok || v.Cost < result.cost {
					result.activity = target
					result.index = index
					result.cost = v.Cost
					result.ok = true
				}
			}
		}
	}

	return result
}

// splitsMulti reports whether an insertion between prev and next would land
// between two parts of the same multi job.
func splitsMulti(prev, next *models.Activity) bool {
	if prev == nil || next == nil || prev.Job == nil || next.Job == nil {
		return false
	}
	return prev.Job.Multi() != nil && prev.Job.Multi() == next.Job.Multi()
}

// Apply inserts a successful result into the solution.
func (ctx *InsertionContext) Apply(result InsertionResult) {
	rc := result.Route
	if !ctx.Solution.Registry.IsUsed(rc.Actor()) {
		ctx.Solution.Registry.Use(rc.Actor())
		ctx.Solution.Routes = append(ctx.Solution.Routes, rc)
	}
	for _, p := range result.Placements {
		rc.Tour().Insert(p.Activity, p.Index)
	}
	ctx.Problem.Pipeline.AcceptRouteState(rc)
	ctx.removeRequired(result.Job)
}

// MarkUnassigned moves a required job to the unassigned list.
func (ctx *InsertionContext) MarkUnassigned(job models.Job, code int) {
	ctx.removeRequired(job)
	ctx.Solution.Unassigned = append(ctx.Solution.Unassigned, models.UnassignedJob{Job: job, Code: code})
}

func (ctx *InsertionContext) removeRequired(job models.Job) {
	if i := slices.Index(ctx.Solution.Required, job); i >= 0 {
		ctx.Solution.Required = slices.Delete(ctx.Solution.Required, i, i+1)
	}
}
