// Package recreate provides operators inserting required jobs back into a
// solution.
package recreate

import (
	"fmt"

	"github.com/copyleftdev/vrp/internal/construction"
)

// Recreate inserts the required jobs of the context solution.
type Recreate interface {
	Run(ctx *construction.InsertionContext)
}

// Heuristic runs a construction insertion heuristic.
type Heuristic struct {
	name      string
	heuristic *construction.InsertionHeuristic
}

func (h *Heuristic) Run(ctx *construction.InsertionContext) {
	h.heuristic.Process(ctx)
}

func (h *Heuristic) String() string { return h.name }

// NewCheapest inserts the globally cheapest job first.
func NewCheapest() *Heuristic {
	return &Heuristic{name: "cheapest", heuristic: &construction.InsertionHeuristic{
		JobSelector:    construction.ProblemOrder{},
		ResultSelector: construction.CheapestResult{},
	}}
}

// NewRegret inserts the job with the largest regret first.
func NewRegret() *Heuristic {
	return &Heuristic{name: "regret", heuristic: &construction.InsertionHeuristic{
		JobSelector:    construction.ProblemOrder{},
		ResultSelector: construction.RegretResult{},
	}}
}

// NewDifficulty inserts the job with the fewest feasible alternatives first.
func NewDifficulty() *Heuristic {
	return &Heuristic{name: "difficulty", heuristic: &construction.InsertionHeuristic{
		JobSelector:    construction.ProblemOrder{},
		ResultSelector: construction.DifficultyResult{},
	}}
}

// NewRandom inserts jobs one by one in random order.
func NewRandom() *Heuristic {
	return &Heuristic{name: "random", heuristic: &construction.InsertionHeuristic{
		JobSelector:    construction.ShuffledOrder{},
		ResultSelector: construction.CheapestResult{},
		Sequential:     true,
	}}
}

// NewDemand inserts jobs one by one, largest demand first.
func NewDemand() *Heuristic {
	return &Heuristic{name: "demand", heuristic: &construction.InsertionHeuristic{
		JobSelector:    construction.DemandOrder{},
		ResultSelector: construction.CheapestResult{},
		Sequential:     true,
	}}
}

// New returns a recreate operator by name.
func New(name string) (*Heuristic, error) {
	switch name {
	case "cheapest":
		return NewCheapest(), nil
	case "regret":
		return NewRegret(), nil
	case "difficulty":
		return NewDifficulty(), nil
	case "random":
		return NewRandom(), nil
	case "demand":
		return NewDemand(), nil
	default:
		return nil, fmt.Errorf("unknown recreate operator %q", name)
	}
}

// Weighted is a recreate operator with a selection weight.
type Weighted struct {
	Recreate Recreate
	Weight   float64
}

// Composite picks one operator per call by roulette wheel selection.
type Composite struct {
	recreates []Weighted
	total     float64
}

// NewComposite creates the operator. Weights must be positive.
func NewComposite(recreates ...Weighted) *Composite {
	if len(recreates) == 0 {
		panic("recreate: composite requires at least one operator")
	}
	total := 0.0
	for _, r := range recreates {
		if r.Weight <= 0 {
			panic(fmt.Sprintf("recreate: non-positive weight %v", r.Weight))
		}
		total += r.Weight
	}
	return &Composite{recreates: recreates, total: total}
}

func (c *Composite) Run(ctx *construction.InsertionContext) {
	selected := c.recreates[len(c.recreates)-1].Recreate
	pick := ctx.Random.Float64() * c.total
	for _, r := range c.recreates {
		pick -= r.Weight
		if pick < 0 {
			selected = r.Recreate
			break
		}
	}
	selected.Run(ctx)
}

// Default returns the standard mix of recreate operators.
func Default() *Composite {
	return NewComposite(
		Weighted{Recreate: NewCheapest(), Weight: 100},
		Weighted{Recreate: NewRegret(), Weight: 90},
		Weighted{Recreate: NewRandom(), Weight: 50},
		Weighted{Recreate: NewDifficulty(), Weight: 20},
		Weighted{Recreate: NewDemand(), Weight: 10},
	)
}
