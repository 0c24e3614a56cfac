// Package objectives ranks solutions by a multi-criteria cost.
package objectives

import (
	"cmp"
	"fmt"
	"math"
	"strings"

	"github.com/copyleftdev/vrp/internal/models"
)

// DefaultTolerance is the absolute difference under which two criterion
// values are considered equal.
const DefaultTolerance = 1e-6

// Cost is a vector of criterion values, most significant first.
type Cost []float64

// Primary returns the most significant value or zero.
func (c Cost) Primary() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[0]
}

// Total returns the least significant value or zero. With the default
// criteria this is the transport cost.
func (c Cost) Total() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1]
}

// Equal reports whether both costs have identical values.
func (c Cost) Equal(other Cost) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

func (c Cost) String() string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = fmt.Sprintf("%.3f", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Objective maps a solution to a cost and orders costs.
type Objective interface {
	Fitness(solution *models.Solution) Cost
	// Compare returns a negative number when a is better than b, zero when
	// they are equal and a positive number otherwise.
	Compare(a, b Cost) int
}

// Criterion is a single minimized value of a solution.
type Criterion interface {
	Name() string
	Value(solution *models.Solution) float64
}

// MultiObjective compares criteria lexicographically. All but the last
// criterion are compared with a tolerance; the last one is compared exactly
// so the order is total.
type MultiObjective struct {
	criteria  []Criterion
	tolerance float64
}

// NewMultiObjective creates an objective over the criteria in order of
// significance.
func NewMultiObjective(tolerance float64, criteria ...Criterion) *MultiObjective {
	if len(criteria) == 0 {
		panic("objectives: at least one criterion is required")
	}
	if tolerance < 0 {
		panic(fmt.Sprintf("objectives: negative tolerance %v", tolerance))
	}
	return &MultiObjective{criteria: criteria, tolerance: tolerance}
}

// Default returns the objective minimizing unassigned jobs, then tours,
// then transport cost.
func Default() *MultiObjective {
	return NewMultiObjective(DefaultTolerance, TotalUnassignedJobs{}, TotalRoutes{}, TotalTransportCost{})
}

// Tolerance returns the absolute difference under which two values of a
// criterion other than the last one are considered equal.
func (o *MultiObjective) Tolerance() float64 { return o.tolerance }

// Criteria returns the criteria in order of significance.
func (o *MultiObjective) Criteria() []Criterion { return o.criteria }

func (o *MultiObjective) Fitness(solution *models.Solution) Cost {
	cost := make(Cost, len(o.criteria))
	for i, criterion := range o.criteria {
		cost[i] = criterion.Value(solution)
	}
	return cost
}

func (o *MultiObjective) Compare(a, b Cost) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if i < n-1 && math.Abs(a[i]-b[i]) <= o.tolerance {
			continue
		}
		if c := cmp.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// TotalUnassignedJobs counts jobs left unassigned or still required.
type TotalUnassignedJobs struct{}

func (TotalUnassignedJobs) Name() string { return "unassigned_jobs" }

func (TotalUnassignedJobs) Value(solution *models.Solution) float64 {
	return float64(len(solution.Unassigned) + len(solution.Required))
}

// TotalRoutes counts used tours.
type TotalRoutes struct{}

func (TotalRoutes) Name() string { return "routes" }

func (TotalRoutes) Value(solution *models.Solution) float64 {
	return float64(len(solution.Routes))
}

// TotalTransportCost sums route costs.
type TotalTransportCost struct{}

func (TotalTransportCost) Name() string { return "transport_cost" }

func (TotalTransportCost) Value(solution *models.Solution) float64 {
	return solution.Statistic().Cost
}

// CostWithPenalty is the transport cost plus a fixed penalty per
// unassigned job.
type CostWithPenalty struct {
	Penalty models.Cost
}

func (CostWithPenalty) Name() string { return "cost_with_penalty" }

func (c CostWithPenalty) Value(solution *models.Solution) float64 {
	return solution.Statistic().Cost + c.Penalty*TotalUnassignedJobs{}.Value(solution)
}
