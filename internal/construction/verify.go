package construction

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/copyleftdev/vrp/internal/construction/constraints"
	"github.com/copyleftdev/vrp/internal/models"
)

var (
	// ErrInfeasibleAssignment is reported for a job violating a hard constraint at its position.
	ErrInfeasibleAssignment = errors.New("infeasible assignment")
	// ErrBrokenMulti is reported for a multi job whose parts are split or out of order.
	ErrBrokenMulti = errors.New("multi job parts are not contiguous in a legal order")
)

// VerifyAssignments replays the constraint pipeline over every assigned
// job at its position and returns all violations found.
func VerifyAssignments(problem *Problem, solution *models.Solution) error {
	var errs error
	for i, rc := range solution.Routes {
		for _, job := range rc.Tour().Jobs() {
			if err := verifyJob(problem.Pipeline, rc, job); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("route %d (%s): job %q: %w", i, rc.Actor().ID(), job.ID(), err))
			}
		}
	}
	return errs
}

func verifyJob(pipeline *constraints.Pipeline, rc *models.RouteContext, job models.Job) error {
	scratch := rc.Clone()
	tour := scratch.Tour()

	var placements []Placement
	for i, activity := range tour.Activities() {
		if activity.Job != nil && activity.RootJob() == job {
			placements = append(placements, Placement{Activity: activity, Index: i})
		}
	}

	if multi, ok := job.(*models.Multi); ok {
		if err := verifyMultiOrder(multi, placements); err != nil {
			return err
		}
	}

	tour.RemoveJob(job)
	pipeline.AcceptRouteState(scratch)

	if v := pipeline.EvaluateJob(scratch, job); v.IsHard() {
		return fmt.Errorf("%w: %s", ErrInfeasibleAssignment, constraints.CodeName(v.Code))
	}

	for _, p := range placements {
		v := pipeline.EvaluateActivity(scratch, &constraints.ActivityContext{
			Index:  p.Index - 1,
			Prev:   tour.Get(p.Index - 1),
			Target: p.Activity,
			Next:   tour.Get(p.Index),
		})
		if v.IsHard() {
			return fmt.Errorf("%w: %s at index %d", ErrInfeasibleAssignment, constraints.CodeName(v.Code), p.Index)
		}
		tour.Insert(p.Activity, p.Index)
		pipeline.AcceptRouteState(scratch)
	}

	return nil
}

func verifyMultiOrder(multi *models.Multi, placements []Placement) error {
	parts := multi.Jobs()
	if len(placements) != len(parts) {
		return fmt.Errorf("%w: %d of %d parts assigned", ErrBrokenMulti, len(placements), len(parts))
	}

	order := make([]int, len(placements))
	for k, p := range placements {
		if k > 0 && p.Index != placements[k-1].Index+1 {
			return fmt.Errorf("%w: gap at index %d", ErrBrokenMulti, p.Index)
		}
		order[k] = slices.Index(parts, p.Activity.Job)
	}

	for _, perm := range multi.Permutations() {
		if slices.Equal(perm, order) {
			return nil
		}
	}
	return fmt.Errorf("%w: order %v", ErrBrokenMulti, order)
}
