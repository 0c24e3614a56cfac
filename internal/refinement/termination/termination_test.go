package termination

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/copyleftdev/vrp/internal/refinement"
	"github.com/copyleftdev/vrp/internal/refinement/objectives"
)

func contextWithBest(total float64) *refinement.Context {
	ctx := refinement.NewContext(nil, objectives.Default())
	ctx.Population = []refinement.Individual{{Cost: objectives.Cost{0, 1, total}}}
	return ctx
}

func TestMaxGeneration(t *testing.T) {
	tests := []struct {
		limit      int
		generation int
		want       bool
	}{
		{0, 0, true},
		{3, 0, false},
		{3, 2, false},
		{3, 3, true},
		{3, 4, true},
	}
	for _, tt := range tests {
		ctx := refinement.NewContext(nil, nil)
		ctx.Generation = tt.generation
		assert.Equal(t, tt.want, MaxGeneration{Limit: tt.limit}.IsTermination(ctx),
			"limit %d generation %d", tt.limit, tt.generation)
	}
}

func TestMaxGenerationStopsAfterN(t *testing.T) {
	const n = 7
	ctx := refinement.NewContext(nil, nil)
	term := MaxGeneration{Limit: n}

	runs := 0
	for !term.IsTermination(ctx) {
		runs++
		ctx.Generation++
	}
	assert.Equal(t, n, runs)
}

func TestMaxTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	term := &MaxTime{Limit: time.Second, now: func() time.Time { return now }}
	ctx := refinement.NewContext(nil, nil)
	ctx.StartTime = start

	assert.False(t, term.IsTermination(ctx))
	now = start.Add(999 * time.Millisecond)
	assert.False(t, term.IsTermination(ctx))
	now = start.Add(time.Second)
	assert.True(t, term.IsTermination(ctx))

	assert.True(t, NewMaxTime(0).IsTermination(ctx))
}

func TestCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	term := NewCancellation(parent)
	ctx := refinement.NewContext(nil, nil)

	assert.False(t, term.IsTermination(ctx))
	cancel()
	assert.True(t, term.IsTermination(ctx))
}

func TestCostVariation(t *testing.T) {
	assert.Panics(t, func() { NewCostVariation(1, 0.1) })
	assert.Panics(t, func() { NewCostVariation(3, -1) })

	t.Run("empty population never stops", func(t *testing.T) {
		term := NewCostVariation(2, 0.1)
		ctx := refinement.NewContext(nil, nil)
		for i := 0; i < 5; i++ {
			assert.False(t, term.IsTermination(ctx))
		}
	})

	t.Run("improving costs keep running", func(t *testing.T) {
		term := NewCostVariation(3, 0.01)
		for _, total := range []float64{100, 80, 60, 40} {
			assert.False(t, term.IsTermination(contextWithBest(total)))
		}
	})

	t.Run("stagnation stops", func(t *testing.T) {
		term := NewCostVariation(3, 0.01)
		assert.False(t, term.IsTermination(contextWithBest(100)))
		assert.False(t, term.IsTermination(contextWithBest(50)))
		assert.False(t, term.IsTermination(contextWithBest(50)))
		assert.True(t, term.IsTermination(contextWithBest(50.1)))
	})
}

type countingTermination struct {
	calls int
	stop  bool
}

func (c *countingTermination) IsTermination(*refinement.Context) bool {
	c.calls++
	return c.stop
}

func TestComposite(t *testing.T) {
	first := &countingTermination{stop: true}
	second := &countingTermination{}
	term := NewComposite(first, second)

	assert.True(t, term.IsTermination(refinement.NewContext(nil, nil)))
	assert.Equal(t, 1, second.calls)

	assert.False(t, NewComposite(&countingTermination{}, &countingTermination{}).IsTermination(refinement.NewContext(nil, nil)))
	assert.False(t, NewComposite().IsTermination(refinement.NewContext(nil, nil)))
}
