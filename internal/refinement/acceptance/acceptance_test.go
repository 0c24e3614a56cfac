package acceptance_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/vrp/internal/refinement"
	"github.com/copyleftdev/vrp/internal/refinement/acceptance"
	"github.com/copyleftdev/vrp/internal/refinement/objectives"
)

func individual(cost ...float64) refinement.Individual {
	return refinement.Individual{Cost: objectives.Cost(cost)}
}

func newContext(members ...refinement.Individual) *refinement.Context {
	ctx := refinement.NewContext(nil, objectives.Default())
	ctx.Population = members
	return ctx
}

func costs(population []refinement.Individual) []objectives.Cost {
	out := make([]objectives.Cost, len(population))
	for i, member := range population {
		out[i] = member.Cost
	}
	return out
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  acceptance.Config
		wantErr bool
	}{
		{"default", acceptance.DefaultConfig(), false},
		{"zero size", acceptance.Config{MaxSize: 0, Cooling: 1}, true},
		{"negative temperature", acceptance.Config{MaxSize: 1, InitialTemperature: -1, Cooling: 1}, true},
		{"zero cooling", acceptance.Config{MaxSize: 1}, true},
		{"cooling above one", acceptance.Config{MaxSize: 1, Cooling: 1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := acceptance.NewPopulation(tt.config, nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPopulationAcceptance(t *testing.T) {
	greedy, err := acceptance.NewPopulation(acceptance.Config{MaxSize: 3, Cooling: 1}, nil)
	require.NoError(t, err)

	t.Run("empty population takes anything", func(t *testing.T) {
		population, accepted := greedy.Accept(newContext(), individual(1, 1, 100))
		assert.True(t, accepted)
		assert.Len(t, population, 1)
	})

	t.Run("new best goes first", func(t *testing.T) {
		ctx := newContext(individual(0, 1, 50), individual(0, 1, 60), individual(0, 2, 10))
		population, accepted := greedy.Accept(ctx, individual(0, 1, 40))
		assert.True(t, accepted)
		assert.Equal(t, []objectives.Cost{{0, 1, 40}, {0, 1, 50}, {0, 1, 60}}, costs(population))
		assert.Len(t, ctx.Population, 3, "context population is not modified")
	})

	t.Run("better than worst replaces it", func(t *testing.T) {
		ctx := newContext(individual(0, 1, 50), individual(0, 1, 60), individual(0, 2, 10))
		population, accepted := greedy.Accept(ctx, individual(0, 1, 55))
		assert.True(t, accepted)
		assert.Equal(t, []objectives.Cost{{0, 1, 50}, {0, 1, 55}, {0, 1, 60}}, costs(population))
	})

	t.Run("free slot is filled", func(t *testing.T) {
		ctx := newContext(individual(0, 1, 50))
		population, accepted := greedy.Accept(ctx, individual(1, 1, 10))
		assert.True(t, accepted)
		assert.Equal(t, []objectives.Cost{{0, 1, 50}, {1, 1, 10}}, costs(population))
	})

	t.Run("worse than worst is rejected without annealing", func(t *testing.T) {
		ctx := newContext(individual(0, 1, 50), individual(0, 1, 60), individual(0, 1, 70))
		population, accepted := greedy.Accept(ctx, individual(0, 1, 80))
		assert.False(t, accepted)
		assert.Equal(t, costs(ctx.Population), costs(population))
	})

	t.Run("duplicate is rejected", func(t *testing.T) {
		ctx := newContext(individual(0, 1, 50))
		_, accepted := greedy.Accept(ctx, individual(0, 1, 50))
		assert.False(t, accepted)
	})
}

func TestSimulatedAnnealing(t *testing.T) {
	hot, err := acceptance.NewPopulation(acceptance.Config{MaxSize: 2, InitialTemperature: 1e9, Cooling: 1}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	ctx := newContext(individual(0, 1, 50), individual(0, 1, 60))
	population, accepted := hot.Accept(ctx, individual(0, 1, 70))
	assert.True(t, accepted)
	assert.Equal(t, []objectives.Cost{{0, 1, 50}, {0, 1, 70}}, costs(population))

	_, accepted = hot.Accept(ctx, individual(1, 1, 10))
	assert.False(t, accepted, "more unassigned jobs are never annealed in")

	cold, err := acceptance.NewPopulation(acceptance.Config{MaxSize: 2, InitialTemperature: 1, Cooling: 0.5}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 0.25, cold.Temperature(2))

	ctx.Generation = 2000
	_, accepted = cold.Accept(ctx, individual(0, 1, 1000))
	assert.False(t, accepted)
}

func TestAnnealingNeverTradesSignificantCriteria(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
	}{
		{"cold", 1e-12},
		{"hot", 1e9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := acceptance.NewPopulation(acceptance.Config{MaxSize: 2, InitialTemperature: tt.temperature, Cooling: 1}, rand.New(rand.NewSource(1)))
			require.NoError(t, err)
			ctx := newContext(individual(0, 1, 100), individual(0, 1, 110))

			// one more tour with cheaper routing is lexicographically worse
			for i := 0; i < 1000; i++ {
				_, accepted := acc.Accept(ctx, individual(0, 2, 50))
				require.False(t, accepted, "attempt %d", i)
			}
		})
	}

	cold, err := acceptance.NewPopulation(acceptance.Config{MaxSize: 2, InitialTemperature: 1e-12, Cooling: 1}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	ctx := newContext(individual(0, 1, 100), individual(0, 1, 110))
	accepted := 0
	for i := 0; i < 1000; i++ {
		if _, ok := cold.Accept(ctx, individual(0, 1, 120)); ok {
			accepted++
		}
	}
	assert.Zero(t, accepted, "a worse transport cost is practically never accepted when cold")
}

func TestPopulationStaysSortedAndBounded(t *testing.T) {
	objective := objectives.Default()
	random := rand.New(rand.NewSource(42))
	acc, err := acceptance.NewPopulation(acceptance.Config{MaxSize: 5, InitialTemperature: 0.5, Cooling: 0.99}, random)
	require.NoError(t, err)

	ctx := newContext()
	best := objectives.Cost(nil)
	for i := 0; i < 500; i++ {
		candidate := individual(float64(random.Intn(3)), float64(1+random.Intn(3)), float64(random.Intn(1000)))
		ctx.Apply(acc, candidate)
		ctx.Generation++

		require.LessOrEqual(t, len(ctx.Population), 5)
		for j := 1; j < len(ctx.Population); j++ {
			require.LessOrEqual(t, objective.Compare(ctx.Population[j-1].Cost, ctx.Population[j].Cost), 0)
		}

		if best == nil || objective.Compare(candidate.Cost, best) < 0 {
			best = candidate.Cost
		}
		require.Equal(t, best, ctx.Population[0].Cost, "best is never lost")
	}
}
