// Package ruin provides operators removing jobs from a solution.
package ruin

import (
	"cmp"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/copyleftdev/vrp/internal/construction"
	"github.com/copyleftdev/vrp/internal/models"
)

// Ruin removes jobs from the context solution and returns them. Removed
// jobs are added to the solution's required list.
type Ruin interface {
	Run(ctx *construction.InsertionContext) []models.Job
}

// RemovalLimits bound how many items an operator removes per call.
type RemovalLimits struct {
	Min int
	Max int
	// MaxRatio caps removal to a fraction of the available items when positive.
	MaxRatio float64
}

// DefaultLimits removes between 1 and 8 items, at most a third of them.
func DefaultLimits() RemovalLimits {
	return RemovalLimits{Min: 1, Max: 8, MaxRatio: 0.3}
}

// Validate checks the limits are consistent.
func (l RemovalLimits) Validate() error {
	if l.Min < 0 || l.Max < l.Min {
		return fmt.Errorf("invalid removal limits [%d, %d]", l.Min, l.Max)
	}
	if l.MaxRatio < 0 || l.MaxRatio > 1 {
		return fmt.Errorf("invalid removal ratio %v", l.MaxRatio)
	}
	return nil
}

// Count returns how many of the available items to remove.
func (l RemovalLimits) Count(random *rand.Rand, available int) int {
	if available <= 0 {
		return 0
	}
	upper := min(l.Max, available)
	if l.MaxRatio > 0 {
		upper = min(upper, max(1, int(math.Ceil(l.MaxRatio*float64(available)))))
	}
	lower := min(l.Min, upper)
	if upper <= lower {
		return upper
	}
	return lower + random.Intn(upper-lower+1)
}

func mustValidate(l RemovalLimits) RemovalLimits {
	if err := l.Validate(); err != nil {
		panic(err)
	}
	return l
}

func removeAll(ctx *construction.InsertionContext, jobs []models.Job) []models.Job {
	removed := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if ctx.RemoveJob(job) {
			removed = append(removed, job)
		}
	}
	return removed
}

// RandomJobRemoval removes randomly chosen jobs.
type RandomJobRemoval struct {
	limits RemovalLimits
}

// NewRandomJobRemoval creates the operator. Invalid limits panic.
func NewRandomJobRemoval(limits RemovalLimits) *RandomJobRemoval {
	return &RandomJobRemoval{limits: mustValidate(limits)}
}

func (r *RandomJobRemoval) Run(ctx *construction.InsertionContext) []models.Job {
	assigned := ctx.Solution.AssignedJobs()
	count := r.limits.Count(ctx.Random, len(assigned))

	picked := make([]models.Job, 0, count)
	for _, i := range ctx.Random.Perm(len(assigned))[:count] {
		picked = append(picked, assigned[i])
	}
	return removeAll(ctx, picked)
}

// RandomRouteRemoval removes every job of randomly chosen routes.
type RandomRouteRemoval struct {
	limits RemovalLimits
}

// NewRandomRouteRemoval creates the operator; limits apply to routes.
func NewRandomRouteRemoval(limits RemovalLimits) *RandomRouteRemoval {
	return &RandomRouteRemoval{limits: mustValidate(limits)}
}

func (r *RandomRouteRemoval) Run(ctx *construction.InsertionContext) []models.Job {
	routes := ctx.Solution.Routes
	count := r.limits.Count(ctx.Random, len(routes))

	var picked []models.Job
	for _, i := range ctx.Random.Perm(len(routes))[:count] {
		picked = append(picked, routes[i].Tour().Jobs()...)
	}
	return removeAll(ctx, picked)
}

// NeighbourRemoval removes the jobs closest to a randomly chosen epicenter job.
type NeighbourRemoval struct {
	limits RemovalLimits
}

// NewNeighbourRemoval creates the operator.
func NewNeighbourRemoval(limits RemovalLimits) *NeighbourRemoval {
	return &NeighbourRemoval{limits: mustValidate(limits)}
}

func (r *NeighbourRemoval) Run(ctx *construction.InsertionContext) []models.Job {
	assigned := assignedActivities(ctx.Solution)
	if len(assigned) == 0 {
		return nil
	}
	count := r.limits.Count(ctx.Random, len(assigned))
	epicenter := assigned[ctx.Random.Intn(len(assigned))]

	transport := ctx.Problem.Transport
	distance := func(a assignedJob) models.Distance {
		d := transport.Distance(epicenter.profile, epicenter.location, a.location, 0)
		if d < 0 {
			return math.Inf(1)
		}
		return d
	}

	slices.SortStableFunc(assigned, func(a, b assignedJob) int {
		return cmp.Compare(distance(a), distance(b))
	})

	picked := make([]models.Job, 0, count)
	for _, a := range assigned[:count] {
		picked = append(picked, a.job)
	}
	return removeAll(ctx, picked)
}

// WorstJobRemoval removes the jobs whose removal saves the most route cost.
// Skip adds randomness: up to Skip of the worst jobs are passed over.
type WorstJobRemoval struct {
	limits RemovalLimits
	skip   int
}

// NewWorstJobRemoval creates the operator.
func NewWorstJobRemoval(limits RemovalLimits, skip int) *WorstJobRemoval {
	return &WorstJobRemoval{limits: mustValidate(limits), skip: max(0, skip)}
}

func (r *WorstJobRemoval) Run(ctx *construction.InsertionContext) []models.Job {
	type saving struct {
		job   models.Job
		value models.Cost
	}

	pipeline := ctx.Problem.Pipeline
	var savings []saving
	for _, rc := range ctx.Solution.Routes {
		before := rc.Statistic().Cost
		for _, job := range rc.Tour().Jobs() {
			scratch := rc.Clone()
			scratch.Tour().RemoveJob(job)
			pipeline.AcceptRouteState(scratch)
			savings = append(savings, saving{job: job, value: before - scratch.Statistic().Cost})
		}
	}

	count := r.limits.Count(ctx.Random, len(savings))
	slices.SortStableFunc(savings, func(a, b saving) int { return cmp.Compare(b.value, a.value) })

	offset := 0
	if r.skip > 0 {
		offset = ctx.Random.Intn(min(r.skip, len(savings)-count) + 1)
	}

	picked := make([]models.Job, 0, count)
	for _, s := range savings[offset : offset+count] {
		picked = append(picked, s.job)
	}
	return removeAll(ctx, picked)
}

type assignedJob struct {
	job      models.Job
	location models.Location
	profile  models.Profile
}

// assignedActivities returns one entry per assigned root job located at its
// first activity.
func assignedActivities(solution *models.Solution) []assignedJob {
	var out []assignedJob
	for _, rc := range solution.Routes {
		seen := make(map[models.Job]bool)
		for _, activity := range rc.Tour().Activities() {
			root := activity.RootJob()
			if root == nil || seen[root] {
				continue
			}
			seen[root] = true
			out = append(out, assignedJob{job: root, location: activity.Place.Location, profile: rc.Actor().Vehicle.Profile})
		}
	}
	return out
}

// WeightedGroup is a sequence of operators applied together.
type WeightedGroup struct {
	Ruins  []Ruin
	Weight float64
}

// CompositeRuin picks one group per call by roulette wheel selection.
type CompositeRuin struct {
	groups []WeightedGroup
	total  float64
}

// NewCompositeRuin creates the operator. Weights must be positive.
func NewCompositeRuin(groups ...WeightedGroup) *CompositeRuin {
	if len(groups) == 0 {
		panic("ruin: composite requires at least one group")
	}
	total := 0.0
	for _, g := range groups {
		if g.Weight <= 0 || len(g.Ruins) == 0 {
			panic(fmt.Sprintf("ruin: invalid group with weight %v and %d operators", g.Weight, len(g.Ruins)))
		}
		total += g.Weight
	}
	return &CompositeRuin{groups: groups, total: total}
}

func (c *CompositeRuin) Run(ctx *construction.InsertionContext) []models.Job {
	group := c.groups[len(c.groups)-1]
	pick := ctx.Random.Float64() * c.total
	for _, g := range c.groups {
		pick -= g.Weight
		if pick < 0 {
			group = g
			break
		}
	}

	var removed []models.Job
	for _, r := range group.Ruins {
		removed = append(removed, r.Run(ctx)...)
	}
	return removed
}

// Default returns the standard mix of removal operators.
func Default() *CompositeRuin {
	limits := DefaultLimits()
	return NewCompositeRuin(
		WeightedGroup{Ruins: []Ruin{NewNeighbourRemoval(limits), NewRandomJobRemoval(RemovalLimits{Min: 1, Max: 2})}, Weight: 100},
		WeightedGroup{Ruins: []Ruin{NewRandomJobRemoval(limits)}, Weight: 10},
		WeightedGroup{Ruins: []Ruin{NewRandomRouteRemoval(RemovalLimits{Min: 1, Max: 2, MaxRatio: 0.5})}, Weight: 5},
		WeightedGroup{Ruins: []Ruin{NewWorstJobRemoval(limits, 4)}, Weight: 10},
	)
}
