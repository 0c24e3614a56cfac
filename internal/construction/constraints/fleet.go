package constraints

import (
	"slices"

	"github.com/copyleftdev/vrp/internal/models"
)

// Skills rejects jobs requiring skills the vehicle does not have.
type Skills struct{}

func (Skills) Name() string { return "skills" }

func (Skills) AcceptRouteState(*models.RouteContext) {}

func (Skills) EvaluateJob(rc *models.RouteContext, job models.Job) Verdict {
	available := rc.Actor().Vehicle.Dimens.Skills()

	required := job.Dimensions().Skills()
	for _, part := range parts(job) {
		if part != job {
			required = append(slices.Clone(required), part.Dimensions().Skills()...)
		}
	}

	for _, skill := range required {
		if !slices.Contains(available, skill) {
			return Reject(CodeSkills)
		}
	}
	return Allow(0)
}

func (Skills) EvaluateActivity(*models.RouteContext, *ActivityContext) Verdict {
	return Allow(0)
}

// FleetUsage charges the actor fixed cost when a job opens a new tour.
type FleetUsage struct{}

func (FleetUsage) Name() string { return "fleet_usage" }

func (FleetUsage) AcceptRouteState(*models.RouteContext) {}

func (FleetUsage) EvaluateJob(rc *models.RouteContext, _ models.Job) Verdict {
	if rc.Tour().HasJobs() {
		return Allow(0)
	}
	return Allow(rc.Actor().Costs().Fixed)
}

func (FleetUsage) EvaluateActivity(*models.RouteContext, *ActivityContext) Verdict {
	return Allow(0)
}

// TourSize limits the number of job activities of vehicles with a tour_size
// dimension.
type TourSize struct{}

func (TourSize) Name() string { return "tour_size" }

func (TourSize) AcceptRouteState(*models.RouteContext) {}

func (TourSize) EvaluateJob(rc *models.RouteContext, job models.Job) Verdict {
	limit, ok := models.Lookup[int](rc.Actor().Vehicle.Dimens, models.DimensionTourSize)
	if !ok {
		return Allow(0)
	}
	if rc.Tour().JobActivityCount()+len(parts(job)) > limit {
		return Reject(CodeTourSize)
	}
	return Allow(0)
}

func (TourSize) EvaluateActivity(*models.RouteContext, *ActivityContext) Verdict {
	return Allow(0)
}
