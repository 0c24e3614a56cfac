// Package models contains the problem and solution model shared by the
// construction and refinement packages.
package models

import "math"

// Location is an index into the routing matrix.
type Location = int

// Profile identifies a routing profile (a matrix set) used by a vehicle.
type Profile = int

// Timestamp is a point in time expressed in abstract time units.
type Timestamp = float64

// Duration is a time span expressed in abstract time units.
type Duration = float64

// Distance is expressed in abstract distance units.
type Distance = float64

// Cost is a generic cost value.
type Cost = float64

// TimeWindow is a closed interval [Start, End].
type TimeWindow struct {
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
}

// NewTimeWindow creates a time window.
func NewTimeWindow(start, end Timestamp) TimeWindow {
	return TimeWindow{Start: start, End: end}
}

// MaxTimeWindow returns a window which never restricts a schedule.
func MaxTimeWindow() TimeWindow {
	return TimeWindow{Start: 0, End: math.MaxFloat64}
}

// Intersects reports whether two windows overlap.
func (tw TimeWindow) Intersects(other TimeWindow) bool {
	return tw.Start <= other.End && other.Start <= tw.End
}

// Contains reports whether t lies within the window.
func (tw TimeWindow) Contains(t Timestamp) bool {
	return t >= tw.Start && t <= tw.End
}

// Schedule holds arrival and departure times of an activity.
type Schedule struct {
	Arrival   Timestamp `json:"arrival"`
	Departure Timestamp `json:"departure"`
}

// Statistic aggregates route or solution totals.
type Statistic struct {
	Cost     Cost     `json:"cost"`
	Distance Distance `json:"distance"`
	Duration Duration `json:"duration"`
	Driving  Duration `json:"driving"`
	Serving  Duration `json:"serving"`
	Waiting  Duration `json:"waiting"`
}

// Add returns the element-wise sum of two statistics.
func (s Statistic) Add(other Statistic) Statistic {
	return Statistic{
		Cost:     s.Cost + other.Cost,
		Distance: s.Distance + other.Distance,
		Duration: s.Duration + other.Duration,
		Driving:  s.Driving + other.Driving,
		Serving:  s.Serving + other.Serving,
		Waiting:  s.Waiting + other.Waiting,
	}
}
