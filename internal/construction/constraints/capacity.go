package constraints

import (
	"github.com/copyleftdev/vrp/internal/models"
)

// Capacity tracks the load along a route and rejects insertions which
// would exceed the vehicle capacity at any point.
type Capacity[L models.Load[L]] struct{}

// NewCapacity creates a capacity module for the load type L.
func NewCapacity[L models.Load[L]]() *Capacity[L] {
	return &Capacity[L]{}
}

func (c *Capacity[L]) Name() string { return "capacity" }

func (c *Capacity[L]) AcceptRouteState(rc *models.RouteContext) {
	activities := rc.Tour().Activities()
	n := len(activities)

	var start L
	for _, activity := range activities {
		if demand, ok := demandOf[L](activity); ok {
			start = start.Add(demand.Delivery[0])
		}
	}

	current := make([]L, n)
	maxPast := make([]L, n)
	maxFuture := make([]L, n)

	current[0], maxPast[0] = start, start
	for i := 1; i < n; i++ {
		current[i] = current[i-1]
		if demand, ok := demandOf[L](activities[i]); ok {
			current[i] = current[i].Add(demand.Change())
		}
		maxPast[i] = maxPast[i-1].Max(current[i])
	}

	maxFuture[n-1] = current[n-1]
	for i := n - 2; i >= 0; i-- {
		maxFuture[i] = current[i].Max(maxFuture[i+1])
	}

	rc.State.Put(models.StateCurrentLoad, current)
	rc.State.Put(models.StateMaxPastLoad, maxPast)
	rc.State.Put(models.StateMaxFutureLoad, maxFuture)
}

func (c *Capacity[L]) EvaluateJob(rc *models.RouteContext, job models.Job) Verdict {
	capacity, hasCapacity := models.CapacityOf[L](rc.Actor().Vehicle.Dimens)

	for _, part := range parts(job) {
		demand, ok := models.DemandOf[L](part.Dimensions())
		if !ok {
			continue
		}
		peak := demand.Peak()
		if !peak.IsNotEmpty() {
			continue
		}
		if !hasCapacity || !capacity.CanFit(peak) {
			return Reject(CodeCapacity)
		}
	}

	return Allow(0)
}

func (c *Capacity[L]) EvaluateActivity(rc *models.RouteContext, ac *ActivityContext) Verdict {
	demand, ok := demandOf[L](ac.Target)
	if !ok {
		return Allow(0)
	}

	capacity, ok := models.CapacityOf[L](rc.Actor().Vehicle.Dimens)
	if !ok {
		if demand.Peak().IsNotEmpty() {
			return Reject(CodeCapacity)
		}
		return Allow(0)
	}

	current, _ := models.ActivityStateValue[L](rc.State, models.StateCurrentLoad, ac.Index)
	maxPast, _ := models.ActivityStateValue[L](rc.State, models.StateMaxPastLoad, ac.Index)
	maxFuture, _ := models.ActivityStateValue[L](rc.State, models.StateMaxFutureLoad, ac.Index)

	if demand.Delivery[0].IsNotEmpty() && !capacity.CanFit(maxPast.Add(demand.Delivery[0])) {
		return Reject(CodeCapacity)
	}
	if demand.Pickup[0].IsNotEmpty() && !capacity.CanFit(maxFuture.Add(demand.Pickup[0])) {
		return Reject(CodeCapacity)
	}
	if demand.Pickup[1].IsNotEmpty() && !capacity.CanFit(current.Add(demand.Pickup[1])) {
		return Reject(CodeCapacity)
	}

	return Allow(0)
}

func demandOf[L models.Load[L]](activity *models.Activity) (models.Demand[L], bool) {
	if activity == nil || activity.Job == nil {
		return models.Demand[L]{}, false
	}
	return models.DemandOf[L](activity.Job.Dimensions())
}

func parts(job models.Job) []*models.Single {
	switch j := job.(type) {
	case *models.Single:
		return []*models.Single{j}
	case *models.Multi:
		return j.Jobs()
	}
	return nil
}
