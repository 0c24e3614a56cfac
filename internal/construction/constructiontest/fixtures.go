// Package constructiontest provides problem and solution fixtures for tests
// of packages built on top of construction.
package constructiontest

import (
	"slices"

	"github.com/copyleftdev/vrp/internal/construction"
	"github.com/copyleftdev/vrp/internal/models"
	"github.com/copyleftdev/vrp/internal/models/modelstest"
)

// NewProblem creates a problem on a line matrix of the given size.
func NewProblem(size int, vehicles []*models.Vehicle, jobs ...models.Job) *construction.Problem {
	return construction.NewProblem(
		modelstest.NewFleet(vehicles...),
		models.NewJobs(jobs),
		modelstest.LineMatrix(size),
		nil,
	)
}

// Vehicles creates n identical vehicles with the given capacity.
func Vehicles(n, capacity int) []*models.Vehicle {
	vehicles := make([]*models.Vehicle, n)
	for i := range vehicles {
		vehicles[i] = modelstest.NewVehicleBuilder(string(rune('a'+i)) + "_vehicle").Capacity(capacity).Build()
	}
	return vehicles
}

// BuildSolution creates a solution where the i-th fleet actor serves the
// i-th list of jobs in the given order. Every other job stays required.
func BuildSolution(problem *construction.Problem, tours ...[]models.Job) *models.Solution {
	solution := problem.NewSolution()

	for i, jobs := range tours {
		actor := problem.Fleet.Actors[i]
		rc := models.NewRouteContext(actor)
		index := 1
		for _, job := range jobs {
			for _, part := range parts(job) {
				place := part.Places()[0]
				tw := models.MaxTimeWindow()
				if len(place.Times) > 0 {
					tw = place.Times[0]
				}
				rc.Tour().Insert(models.NewActivity(part, place.Location, place.Duration, tw), index)
				index++
			}
			solution.Required = slices.DeleteFunc(solution.Required, func(j models.Job) bool { return j == job })
		}
		problem.Pipeline.AcceptRouteState(rc)
		solution.Routes = append(solution.Routes, rc)
		solution.Registry.Use(actor)
	}

	return solution
}

func parts(job models.Job) []*models.Single {
	if multi, ok := job.(*models.Multi); ok {
		return multi.Jobs()
	}
	return []*models.Single{job.(*models.Single)}
}
