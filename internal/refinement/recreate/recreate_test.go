package recreate_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/vrp/internal/construction"
	"github.com/copyleftdev/vrp/internal/construction/constructiontest"
	"github.com/copyleftdev/vrp/internal/models"
	"github.com/copyleftdev/vrp/internal/models/modelstest"
	"github.com/copyleftdev/vrp/internal/refinement/objectives"
	"github.com/copyleftdev/vrp/internal/refinement/recreate"
	"github.com/copyleftdev/vrp/internal/refinement/ruin"
)

var operators = []string{"cheapest", "regret", "difficulty", "random", "demand"}

func testJobs() []models.Job {
	return []models.Job{
		modelstest.NewSingleBuilder("a").Place(1, 1, models.NewTimeWindow(0, 50)).Demand(1).Build(),
		modelstest.NewSingleBuilder("b").Place(5, 1).Demand(2).Build(),
		modelstest.NewSingleBuilder("c").Place(7, 1, models.NewTimeWindow(10, 40)).Demand(1).Build(),
		modelstest.NewSingleBuilder("d").Place(3, 1).Demand(-2).Build(),
		modelstest.NewPickupDelivery("pd", 2, 6, 1),
		modelstest.NewSingleBuilder("big").Place(4, 1).Demand(9).Build(),
	}
}

func TestRecreateFromScratch(t *testing.T) {
	for _, name := range operators {
		t.Run(name, func(t *testing.T) {
			op, err := recreate.New(name)
			require.NoError(t, err)

			problem := constructiontest.NewProblem(9, constructiontest.Vehicles(2, 4), testJobs()...)
			ctx := construction.NewInsertionContext(problem, problem.NewSolution(), rand.New(rand.NewSource(1)))

			op.Run(ctx)

			assert.Empty(t, ctx.Solution.Required)
			require.Len(t, ctx.Solution.Unassigned, 1)
			assert.Equal(t, "big", ctx.Solution.Unassigned[0].Job.ID())
			assert.Len(t, ctx.Solution.AssignedJobs(), 5)
			assert.NoError(t, construction.VerifyAssignments(problem, ctx.Solution))
		})
	}
}

func TestRecreateIsIdempotentWithoutRemovedJobs(t *testing.T) {
	objective := objectives.Default()

	for _, name := range operators {
		t.Run(name, func(t *testing.T) {
			op, err := recreate.New(name)
			require.NoError(t, err)

			problem := constructiontest.NewProblem(9, constructiontest.Vehicles(2, 4), testJobs()...)
			ctx := construction.NewInsertionContext(problem, problem.NewSolution(), rand.New(rand.NewSource(1)))
			op.Run(ctx)

			before := objective.Fitness(ctx.Solution)
			routes := tours(ctx.Solution)

			again := construction.NewInsertionContext(problem, ctx.Solution.Clone(), rand.New(rand.NewSource(2)))
			op.Run(again)

			assert.Equal(t, before, objective.Fitness(again.Solution))
			assert.Equal(t, routes, tours(again.Solution))
		})
	}
}

func TestRecreateAfterRuinKeepsFeasibility(t *testing.T) {
	objective := objectives.Default()
	problem := constructiontest.NewProblem(9, constructiontest.Vehicles(3, 4), testJobs()...)
	random := rand.New(rand.NewSource(11))

	ctx := construction.NewInsertionContext(problem, problem.NewSolution(), random)
	recreate.NewCheapest().Run(ctx)
	solution := ctx.Solution

	ruins := ruin.Default()
	recreates := recreate.Default()

	for i := 0; i < 30; i++ {
		candidate := construction.NewInsertionContext(problem, solution.Clone(), random)
		ruins.Run(candidate)
		candidate.Finalize()
		candidate.Solution.RequeueUnassigned()
		recreates.Run(candidate)

		require.NoError(t, construction.VerifyAssignments(problem, candidate.Solution))
		assert.Empty(t, candidate.Solution.Required)
		assert.Equal(t, problem.Jobs.Size(),
			len(candidate.Solution.AssignedJobs())+len(candidate.Solution.Unassigned))

		if objective.Compare(objective.Fitness(candidate.Solution), objective.Fitness(solution)) <= 0 {
			solution = candidate.Solution
		}
	}
}

func TestCompositeValidation(t *testing.T) {
	assert.Panics(t, func() { recreate.NewComposite() })
	assert.Panics(t, func() { recreate.NewComposite(recreate.Weighted{Recreate: recreate.NewCheapest()}) })

	_, err := recreate.New("unknown")
	assert.Error(t, err)
	assert.Equal(t, "regret", recreate.NewRegret().String())
}

func tours(solution *models.Solution) [][]string {
	var out [][]string
	for _, rc := range solution.Routes {
		var ids []string
		for _, activity := range rc.Tour().Activities() {
			if activity.Job != nil {
				ids = append(ids, activity.Job.ID())
			}
		}
		out = append(out, ids)
	}
	return out
}
