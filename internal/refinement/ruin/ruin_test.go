package ruin_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/vrp/internal/construction"
	"github.com/copyleftdev/vrp/internal/construction/constructiontest"
	"github.com/copyleftdev/vrp/internal/models"
	"github.com/copyleftdev/vrp/internal/models/modelstest"
	"github.com/copyleftdev/vrp/internal/refinement/ruin"
)

func single(id string, location models.Location) *models.Single {
	return modelstest.NewSingleBuilder(id).Location(location).Build()
}

func assertConsistent(t *testing.T, ctx *construction.InsertionContext, removed []models.Job) {
	t.Helper()
	for _, job := range removed {
		assert.Contains(t, ctx.Solution.Required, job)
		assert.Nil(t, ctx.Solution.RouteOf(job))
		if multi, ok := job.(*models.Multi); ok {
			for _, part := range multi.Jobs() {
				for _, rc := range ctx.Solution.Routes {
					assert.Equal(t, -1, rc.Tour().Index(part))
				}
			}
		}
	}
	total := len(ctx.Solution.Required) + len(ctx.Solution.AssignedJobs())
	assert.Equal(t, ctx.Problem.Jobs.Size(), total)
}

func TestRemovalLimitsCount(t *testing.T) {
	random := rand.New(rand.NewSource(7))
	tests := []struct {
		name      string
		limits    ruin.RemovalLimits
		available int
		min, max  int
	}{
		{"nothing available", ruin.RemovalLimits{Min: 1, Max: 3}, 0, 0, 0},
		{"bounded by available", ruin.RemovalLimits{Min: 5, Max: 10}, 3, 3, 3},
		{"fixed", ruin.RemovalLimits{Min: 2, Max: 2}, 10, 2, 2},
		{"ratio", ruin.RemovalLimits{Min: 1, Max: 10, MaxRatio: 0.2}, 10, 1, 2},
		{"ratio keeps one", ruin.RemovalLimits{Min: 1, Max: 10, MaxRatio: 0.01}, 10, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				n := tt.limits.Count(random, tt.available)
				assert.GreaterOrEqual(t, n, tt.min)
				assert.LessOrEqual(t, n, tt.max)
			}
		})
	}

	assert.Error(t, ruin.RemovalLimits{Min: 3, Max: 1}.Validate())
	assert.Error(t, ruin.RemovalLimits{Min: 1, Max: 1, MaxRatio: 2}.Validate())
	assert.Panics(t, func() { ruin.NewRandomJobRemoval(ruin.RemovalLimits{Min: -1}) })
}

func TestRuinRemovesMultiAtomically(t *testing.T) {
	multi := modelstest.NewPickupDelivery("pd", 8, 9, 1)
	near := single("near", 1)
	problem := constructiontest.NewProblem(10, constructiontest.Vehicles(2, 5), multi, near)
	solution := constructiontest.BuildSolution(problem, []models.Job{multi}, []models.Job{near})
	require.Len(t, solution.Routes, 2)

	ctx := construction.NewInsertionContext(problem, solution, rand.New(rand.NewSource(1)))
	removed := ruin.NewWorstJobRemoval(ruin.RemovalLimits{Min: 1, Max: 1}, 0).Run(ctx)
	ctx.Finalize()

	require.Equal(t, []models.Job{multi}, removed)
	assert.Len(t, multi.Jobs(), 2)
	assertConsistent(t, ctx, removed)
	require.Len(t, solution.Routes, 1)
	assert.Equal(t, []models.Job{near}, solution.Routes[0].Tour().Jobs())
	assert.False(t, solution.Registry.IsUsed(problem.Fleet.Actors[0]))
}

func TestRandomJobRemoval(t *testing.T) {
	jobs := []models.Job{single("a", 1), single("b", 2), single("c", 3), single("d", 4), modelstest.NewPickupDelivery("pd", 5, 6, 1)}
	problem := constructiontest.NewProblem(8, constructiontest.Vehicles(2, 10), jobs...)

	for seed := int64(1); seed <= 10; seed++ {
		solution := constructiontest.BuildSolution(problem, jobs[:2], jobs[2:])
		ctx := construction.NewInsertionContext(problem, solution, rand.New(rand.NewSource(seed)))

		removed := ruin.NewRandomJobRemoval(ruin.RemovalLimits{Min: 2, Max: 3}).Run(ctx)
		ctx.Finalize()

		assert.GreaterOrEqual(t, len(removed), 2)
		assert.LessOrEqual(t, len(removed), 3)
		assertConsistent(t, ctx, removed)
	}
}

func TestRandomRouteRemoval(t *testing.T) {
	a, b, c := single("a", 1), single("b", 2), single("c", 3)
	problem := constructiontest.NewProblem(5, constructiontest.Vehicles(2, 10), a, b, c)
	solution := constructiontest.BuildSolution(problem, []models.Job{a, b}, []models.Job{c})

	ctx := construction.NewInsertionContext(problem, solution, rand.New(rand.NewSource(3)))
	removed := ruin.NewRandomRouteRemoval(ruin.RemovalLimits{Min: 1, Max: 1}).Run(ctx)
	ctx.Finalize()

	assert.True(t, len(removed) == 1 || len(removed) == 2)
	assert.Len(t, solution.Routes, 1)
	assertConsistent(t, ctx, removed)
}

func TestNeighbourRemoval(t *testing.T) {
	jobs := []models.Job{single("a", 1), single("b", 2), single("c", 8), single("d", 9)}
	problem := constructiontest.NewProblem(10, constructiontest.Vehicles(1, 10), jobs...)

	for seed := int64(1); seed <= 10; seed++ {
		solution := constructiontest.BuildSolution(problem, jobs)
		ctx := construction.NewInsertionContext(problem, solution, rand.New(rand.NewSource(seed)))

		removed := ruin.NewNeighbourRemoval(ruin.RemovalLimits{Min: 2, Max: 2}).Run(ctx)
		ctx.Finalize()

		require.Len(t, removed, 2)
		first := removed[0].(*models.Single).Places()[0].Location
		second := removed[1].(*models.Single).Places()[0].Location
		assert.Equal(t, 1, abs(first-second))
		assertConsistent(t, ctx, removed)
	}
}

func TestWorstJobRemovalPrefersDetours(t *testing.T) {
	jobs := []models.Job{single("a", 1), single("far", 9), single("b", 2)}
	problem := constructiontest.NewProblem(10, constructiontest.Vehicles(1, 10), jobs...)
	solution := constructiontest.BuildSolution(problem, jobs)

	ctx := construction.NewInsertionContext(problem, solution, rand.New(rand.NewSource(1)))
	removed := ruin.NewWorstJobRemoval(ruin.RemovalLimits{Min: 1, Max: 1}, 0).Run(ctx)

	require.Len(t, removed, 1)
	assert.Equal(t, "far", removed[0].ID())
}

func TestCompositeRuin(t *testing.T) {
	assert.Panics(t, func() { ruin.NewCompositeRuin() })
	assert.Panics(t, func() {
		ruin.NewCompositeRuin(ruin.WeightedGroup{Ruins: []ruin.Ruin{ruin.NewRandomJobRemoval(ruin.DefaultLimits())}})
	})

	jobs := []models.Job{single("a", 1), single("b", 2), single("c", 3), single("d", 4)}
	problem := constructiontest.NewProblem(6, constructiontest.Vehicles(2, 10), jobs...)

	for seed := int64(1); seed <= 10; seed++ {
		solution := constructiontest.BuildSolution(problem, jobs[:2], jobs[2:])
		ctx := construction.NewInsertionContext(problem, solution, rand.New(rand.NewSource(seed)))

		removed := ruin.Default().Run(ctx)
		ctx.Finalize()

		assert.NotEmpty(t, removed)
		assertConsistent(t, ctx, removed)
	}
}

func TestRuinOnEmptySolution(t *testing.T) {
	problem := constructiontest.NewProblem(3, constructiontest.Vehicles(1, 1), single("a", 1))
	solution := problem.NewSolution()
	ctx := construction.NewInsertionContext(problem, solution, rand.New(rand.NewSource(1)))

	assert.Empty(t, ruin.Default().Run(ctx))
	assert.Len(t, solution.Required, 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
