// Package acceptance decides which candidates enter the population.
package acceptance

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/copyleftdev/vrp/internal/refinement"
)

// Config holds population acceptance parameters.
type Config struct {
	// MaxSize is the maximum number of population members.
	MaxSize int
	// InitialTemperature enables simulated annealing acceptance of worse
	// candidates when positive.
	InitialTemperature float64
	// Cooling multiplies the temperature once per generation.
	Cooling float64
}

// DefaultConfig returns the default acceptance parameters.
func DefaultConfig() Config {
	return Config{MaxSize: 4, InitialTemperature: 0.05, Cooling: 0.999}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if c.MaxSize < 1 {
		return fmt.Errorf("population size must be positive, got %d", c.MaxSize)
	}
	if c.InitialTemperature < 0 {
		return fmt.Errorf("temperature must not be negative, got %v", c.InitialTemperature)
	}
	if c.Cooling <= 0 || c.Cooling > 1 {
		return fmt.Errorf("cooling must be in (0, 1], got %v", c.Cooling)
	}
	return nil
}

// Population keeps a bounded population sorted best first. A new best is
// always accepted; a candidate better than the worst member replaces it or
// fills a free slot; a worse candidate may replace the worst member with
// simulated annealing probability. Candidates with a cost equal to an
// existing member are rejected.
type Population struct {
	config Config
	random *rand.Rand
}

// NewPopulation creates the acceptance. The random source must not be
// shared with other goroutines.
func NewPopulation(config Config, random *rand.Rand) (*Population, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Population{config: config, random: random}, nil
}

// Temperature returns the annealing temperature at the generation.
func (p *Population) Temperature(generation int) float64 {
	return p.config.InitialTemperature * math.Pow(p.config.Cooling, float64(generation))
}

func (p *Population) Accept(ctx *refinement.Context, candidate refinement.Individual) ([]refinement.Individual, bool) {
	objective := ctx.Objective
	population := slices.Clone(ctx.Population)

	for _, member := range population {
		if member.Cost.Equal(candidate.Cost) {
			return population, false
		}
	}

	switch {
	case len(population) == 0 || objective.Compare(candidate.Cost, population[0].Cost) < 0:
	case len(population) < p.config.MaxSize:
	case objective.Compare(candidate.Cost, population[len(population)-1].Cost) < 0:
	case p.anneal(ctx, candidate, population[0]):
		population = population[:len(population)-1]
	default:
		return population, false
	}

	// insert after equal members to keep the order stable
	index := len(population)
	for i, member := range population {
		if objective.Compare(candidate.Cost, member.Cost) < 0 {
			index = i
			break
		}
	}
	population = slices.Insert(population, index, candidate)

	if len(population) > p.config.MaxSize {
		population = population[:p.config.MaxSize]
	}
	return population, true
}

// anneal accepts a worse candidate with probability exp(-delta/T) where
// delta is its relative increase of the last criterion over the best member.
// A candidate worse in any more significant criterion is never accepted.
func (p *Population) anneal(ctx *refinement.Context, candidate, best refinement.Individual) bool {
	temperature := p.Temperature(ctx.Generation)
	if temperature <= 0 || p.random == nil {
		return false
	}
	if len(candidate.Cost) == 0 || len(candidate.Cost) != len(best.Cost) {
		return false
	}

	var tolerance float64
	if t, ok := ctx.Objective.(interface{ Tolerance() float64 }); ok {
		tolerance = t.Tolerance()
	}
	last := len(candidate.Cost) - 1
	for i := 0; i < last; i++ {
		if math.Abs(candidate.Cost[i]-best.Cost[i]) > tolerance {
			return false
		}
	}

	base := math.Max(math.Abs(best.Cost[last]), 1)
	delta := (candidate.Cost[last] - best.Cost[last]) / base
	if delta <= 0 {
		return false
	}
	return p.random.Float64() < math.Exp(-delta/temperature)
}
