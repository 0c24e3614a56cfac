// Package checker verifies the schedules and distances recorded in a solution
// against the routing matrix.
package checker

import (
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/copyleftdev/vrp/internal/construction"
	"github.com/copyleftdev/vrp/internal/models"
)

// Config holds checker parameters.
type Config struct {
	// SkipDistanceCheck disables the comparison of cumulative distances, for
	// solutions produced without distance information.
	SkipDistanceCheck bool
	// Tolerance is the maximum absolute difference accepted between a
	// recomputed and a recorded value.
	Tolerance float64
}

// DefaultConfig returns the default checker parameters.
func DefaultConfig() Config {
	return Config{Tolerance: 1}
}

// Checker recomputes arrivals and distances along every tour.
type Checker struct {
	transport models.TransportCost
	config    Config
}

// New creates a checker using the transport costs of the problem.
func New(problem *construction.Problem, config Config) *Checker {
	return &Checker{transport: problem.Transport, config: config}
}

// Check walks every tour leg by leg. Each arrival is recomputed from the
// recorded departure of the previous stop plus the travel duration, and the
// running distance is compared with the route distance state. Every mismatch
// is reported; use multierr.Errors to list them.
func (c *Checker) Check(solution *models.Solution) error {
	var err error
	for _, rc := range solution.Routes {
		err = multierr.Append(err, c.checkRoute(rc))
	}
	return err
}

func (c *Checker) checkRoute(rc *models.RouteContext) error {
	actor := rc.Actor()
	profile := actor.Vehicle.Profile
	activities := rc.Tour().Activities()
	tourID := actor.ID()

	distances, hasDistances := models.StateValue[[]models.Distance](rc.State, models.StateDistance)
	if !c.config.SkipDistanceCheck && !hasDistances {
		return fmt.Errorf("distance state is missing for the tour %s", tourID)
	}

	var err error
	var total models.Distance
	for i := 1; i < len(activities); i++ {
		from, to := activities[i-1], activities[i]
		departure := from.Schedule.Departure

		arrival := departure + c.transport.Duration(profile, from.Place.Location, to.Place.Location, departure)
		total += c.transport.Distance(profile, from.Place.Location, to.Place.Location, departure)

		if c.exceeds(arrival, to.Schedule.Arrival) {
			err = multierr.Append(err, fmt.Errorf("arrival time mismatch for %d stop in the tour %s, expected: '%v', got: '%v'",
				i, tourID, arrival, to.Schedule.Arrival))
		}
		if !c.config.SkipDistanceCheck && i < len(distances) && c.exceeds(total, distances[i]) {
			err = multierr.Append(err, fmt.Errorf("distance mismatch for %d stop in the tour %s, expected: '%v', got: '%v'",
				i, tourID, total, distances[i]))
		}
	}

	stat := rc.Statistic()
	if !c.config.SkipDistanceCheck && c.exceeds(total, stat.Distance) {
		err = multierr.Append(err, fmt.Errorf("distance mismatch for tour statistic %s, expected: '%v', got: '%v'",
			tourID, total, stat.Distance))
	}
	duration := activities[len(activities)-1].Schedule.Departure - activities[0].Schedule.Departure
	if c.exceeds(duration, stat.Duration) {
		err = multierr.Append(err, fmt.Errorf("duration mismatch for tour statistic %s, expected: '%v', got: '%v'",
			tourID, duration, stat.Duration))
	}

	return err
}

func (c *Checker) exceeds(expected, got float64) bool {
	return math.Abs(expected-got) > c.config.Tolerance
}
