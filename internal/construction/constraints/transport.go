package constraints

import (
	"github.com/copyleftdev/vrp/internal/models"
)

// Transport checks time windows and reachability, keeps the route schedule
// and statistic up to date, and reports the travel cost delta of insertions.
type Transport struct {
	transport models.TransportCost
	activity  models.ActivityCost
}

// NewTransport creates the transport module.
func NewTransport(transport models.TransportCost, activity models.ActivityCost) *Transport {
	return &Transport{transport: transport, activity: activity}
}

func (t *Transport) Name() string { return "transport" }

func (t *Transport) AcceptRouteState(rc *models.RouteContext) {
	actor := rc.Actor()
	tour := rc.Tour()
	profile := actor.Vehicle.Profile
	costs := actor.Costs()
	activities := tour.Activities()
	n := len(activities)

	start := activities[0]
	start.Schedule = models.Schedule{Arrival: actor.Detail.Time.Start, Departure: actor.Detail.Time.Start}

	var stat models.Statistic
	var activityCost models.Cost
	distances := make([]models.Distance, n)

	for i := 1; i < n; i++ {
		prev, current := activities[i-1], activities[i]
		departure := prev.Schedule.Departure
		driving := max(0, t.transport.Duration(profile, prev.Place.Location, current.Place.Location, departure))
		distance := max(0, t.transport.Distance(profile, prev.Place.Location, current.Place.Location, departure))

		arrival := departure + driving
		serviceStart := max(arrival, current.Place.Time.Start)
		serving := t.activity.Duration(actor, current, arrival)
		current.Schedule = models.Schedule{Arrival: arrival, Departure: serviceStart + serving}

		distances[i] = distances[i-1] + distance
		stat.Distance += distance
		stat.Driving += driving
		stat.Waiting += serviceStart - arrival
		stat.Serving += serving
		activityCost += t.activity.Cost(actor, current, arrival)
	}

	stat.Duration = activities[n-1].Schedule.Departure - start.Schedule.Departure
	stat.Cost = stat.Distance*costs.PerDistance + stat.Driving*costs.PerDrivingTime + activityCost
	if tour.HasJobs() {
		stat.Cost += costs.Fixed
	}

	latest := make([]models.Timestamp, n)
	last := activities[n-1]
	latest[n-1] = last.Place.Time.End
	if !tour.HasEnd() && last.Job != nil {
		latest[n-1] = min(last.Place.Time.End, actor.Detail.Time.End-t.activity.Duration(actor, last, last.Schedule.Arrival))
	}
	for i := n - 2; i >= 0; i-- {
		current, next := activities[i], activities[i+1]
		serving := t.activity.Duration(actor, current, current.Schedule.Arrival)
		driving := max(0, t.transport.Duration(profile, current.Place.Location, next.Place.Location, current.Schedule.Departure))
		latest[i] = min(current.Place.Time.End, latest[i+1]-driving-serving)
	}

	rc.State.Put(models.StateStatistic, stat)
	rc.State.Put(models.StateDistance, distances)
	rc.State.Put(models.StateLatestArrival, latest)
}

func (t *Transport) EvaluateJob(*models.RouteContext, models.Job) Verdict {
	return Allow(0)
}

func (t *Transport) EvaluateActivity(rc *models.RouteContext, ac *ActivityContext) Verdict {
	actor := rc.Actor()
	profile := actor.Vehicle.Profile
	costs := actor.Costs()
	prev, target, next := ac.Prev, ac.Target, ac.Next

	departure := prev.Schedule.Departure
	toTarget := t.transport.Duration(profile, prev.Place.Location, target.Place.Location, departure)
	toTargetDistance := t.transport.Distance(profile, prev.Place.Location, target.Place.Location, departure)
	if toTarget < 0 || toTargetDistance < 0 {
		return Reject(CodeReachable)
	}

	arrival := departure + toTarget
	if arrival > target.Place.Time.End || arrival > actor.Detail.Time.End {
		return Reject(CodeTimeWindow)
	}
	targetDeparture := max(arrival, target.Place.Time.Start) + t.activity.Duration(actor, target, arrival)
	target.Schedule = models.Schedule{Arrival: arrival, Departure: targetDeparture}

	cost := toTargetDistance*costs.PerDistance + toTarget*costs.PerDrivingTime +
		t.activity.Cost(actor, target, arrival)

	if next == nil {
		if targetDeparture > actor.Detail.Time.End {
			return Reject(CodeTimeWindow)
		}
		return Allow(cost)
	}

	toNext := t.transport.Duration(profile, target.Place.Location, next.Place.Location, targetDeparture)
	toNextDistance := t.transport.Distance(profile, target.Place.Location, next.Place.Location, targetDeparture)
	if toNext < 0 || toNextDistance < 0 {
		return Reject(CodeReachable)
	}

	nextArrival := targetDeparture + toNext
	latest, ok := models.ActivityStateValue[models.Timestamp](rc.State, models.StateLatestArrival, ac.Index+1)
	if !ok {
		latest = next.Place.Time.End
	}
	if nextArrival > latest {
		return Reject(CodeTimeWindow)
	}

	oldDriving := max(0, t.transport.Duration(profile, prev.Place.Location, next.Place.Location, departure))
	oldDistance := max(0, t.transport.Distance(profile, prev.Place.Location, next.Place.Location, departure))
	oldWaiting := max(0, next.Place.Time.Start-(departure+oldDriving))
	newWaiting := max(0, next.Place.Time.Start-nextArrival)

	cost += toNextDistance*costs.PerDistance + toNext*costs.PerDrivingTime
	cost -= oldDistance*costs.PerDistance + oldDriving*costs.PerDrivingTime
	cost += (newWaiting - oldWaiting) * costs.PerWaitingTime

	return Allow(cost)
}
