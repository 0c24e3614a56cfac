package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// TransportCost provides travel distance and duration between locations.
// A negative value means the destination is unreachable.
type TransportCost interface {
	Duration(profile Profile, from, to Location, departure Timestamp) Duration
	Distance(profile Profile, from, to Location, departure Timestamp) Distance
}

// ActivityCost provides service duration and cost of an activity.
type ActivityCost interface {
	Duration(actor *Actor, activity *Activity, arrival Timestamp) Duration
	Cost(actor *Actor, activity *Activity, arrival Timestamp) Cost
}

// TravelCost returns the cost of driving from one location to another with
// the given actor, or false when the leg is unreachable.
func TravelCost(tc TransportCost, actor *Actor, from, to Location, departure Timestamp) (Cost, bool) {
	profile := actor.Vehicle.Profile
	distance := tc.Distance(profile, from, to, departure)
	duration := tc.Duration(profile, from, to, departure)
	if distance < 0 || duration < 0 {
		return 0, false
	}
	costs := actor.Costs()
	return distance*costs.PerDistance + duration*costs.PerDrivingTime, true
}

// MatrixTransportCost is a time independent transport cost backed by dense
// per-profile matrices.
type MatrixTransportCost struct {
	durations []*mat.Dense
	distances []*mat.Dense
	size      int
}

// NewMatrixTransportCost creates routing matrices from row-major data, one
// duration and one distance slice per profile. Every slice must hold size*size values.
func NewMatrixTransportCost(durations, distances [][]float64) (*MatrixTransportCost, error) {
	const op = "NewMatrixTransportCost"

	if len(durations) == 0 || len(durations) != len(distances) {
		return nil, NewErrorf("expected the same non-zero number of duration and distance matrices, got %d and %d",
			len(durations), len(distances)).WithOperation(op)
	}

	size := matrixSize(len(durations[0]))
	if size < 0 {
		return nil, NewErrorf("matrix of %d values is not square", len(durations[0])).WithOperation(op)
	}

	tc := &MatrixTransportCost{size: size}
	for profile := range durations {
		if len(durations[profile]) != size*size || len(distances[profile]) != size*size {
			return nil, NewErrorf("profile %d: matrices must have %d values", profile, size*size).WithOperation(op)
		}
		tc.durations = append(tc.durations, mat.NewDense(size, size, append([]float64(nil), durations[profile]...)))
		tc.distances = append(tc.distances, mat.NewDense(size, size, append([]float64(nil), distances[profile]...)))
	}

	return tc, nil
}

func matrixSize(values int) int {
	for size := 1; size*size <= values; size++ {
		if size*size == values {
			return size
		}
	}
	return -1
}

// Size returns the number of locations.
func (m *MatrixTransportCost) Size() int { return m.size }

// Profiles returns the number of routing profiles.
func (m *MatrixTransportCost) Profiles() int { return len(m.durations) }

func (m *MatrixTransportCost) Duration(profile Profile, from, to Location, _ Timestamp) Duration {
	return m.lookup(m.durations, profile, from, to)
}

func (m *MatrixTransportCost) Distance(profile Profile, from, to Location, _ Timestamp) Distance {
	return m.lookup(m.distances, profile, from, to)
}

func (m *MatrixTransportCost) lookup(matrices []*mat.Dense, profile Profile, from, to Location) float64 {
	if profile < 0 || profile >= len(matrices) {
		panic(NewErrorf("unknown routing profile %d", profile).WithComponent("MatrixTransportCost"))
	}
	if from < 0 || from >= m.size || to < 0 || to >= m.size {
		panic(NewErrorf("location out of range: %d -> %d (size %d)", from, to, m.size).WithComponent("MatrixTransportCost"))
	}
	return matrices[profile].At(from, to)
}

func (m *MatrixTransportCost) String() string {
	return fmt.Sprintf("MatrixTransportCost{size: %d, profiles: %d}", m.size, len(m.durations))
}

// SimpleActivityCost charges waiting and service time with the actor rates.
type SimpleActivityCost struct{}

func (SimpleActivityCost) Duration(_ *Actor, activity *Activity, _ Timestamp) Duration {
	return activity.Place.Duration
}

func (c SimpleActivityCost) Cost(actor *Actor, activity *Activity, arrival Timestamp) Cost {
	costs := actor.Costs()
	waiting := max(0, activity.Place.Time.Start-arrival)
	return waiting*costs.PerWaitingTime + c.Duration(actor, activity, arrival)*costs.PerServiceTime
}
