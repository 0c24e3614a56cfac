// Package termination decides when a refinement run stops.
package termination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/vrp/internal/refinement"
)

// Termination decides whether the run stops.
type Termination interface {
	IsTermination(ctx *refinement.Context) bool
}

// MaxGeneration stops once the generation counter reaches the limit.
type MaxGeneration struct {
	Limit int
}

func (m MaxGeneration) IsTermination(ctx *refinement.Context) bool {
	return ctx.Generation >= m.Limit
}

// MaxTime stops once the run lasted longer than the limit.
type MaxTime struct {
	Limit time.Duration
	now   func() time.Time
}

// NewMaxTime creates a wall clock limit.
func NewMaxTime(limit time.Duration) *MaxTime {
	return &MaxTime{Limit: limit, now: time.Now}
}

func (m *MaxTime) IsTermination(ctx *refinement.Context) bool {
	return m.now().Sub(ctx.StartTime) >= m.Limit
}

// Cancellation stops when the context is done.
type Cancellation struct {
	ctx context.Context
}

// NewCancellation creates a termination observing ctx.
func NewCancellation(ctx context.Context) *Cancellation {
	return &Cancellation{ctx: ctx}
}

func (c *Cancellation) IsTermination(*refinement.Context) bool {
	return c.ctx.Err() != nil
}

// CostVariation stops when the coefficient of variation of the best cost
// over the trailing window of generations drops below the threshold.
type CostVariation struct {
	window    int
	threshold float64

	mu      sync.Mutex
	history []float64
}

// NewCostVariation creates the stagnation check. A window below two panics.
func NewCostVariation(window int, threshold float64) *CostVariation {
	if window < 2 {
		panic(fmt.Sprintf("termination: cost variation window must be at least 2, got %d", window))
	}
	if threshold < 0 {
		panic(fmt.Sprintf("termination: negative cost variation threshold %v", threshold))
	}
	return &CostVariation{window: window, threshold: threshold}
}

func (c *CostVariation) IsTermination(ctx *refinement.Context) bool {
	best, ok := ctx.Best()
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, best.Cost.Total())
	if len(c.history) > c.window {
		c.history = c.history[len(c.history)-c.window:]
	}
	if len(c.history) < c.window {
		return false
	}

	mean, std := stat.MeanStdDev(c.history, nil)
	if mean == 0 {
		return std == 0
	}
	return std/abs(mean) < c.threshold
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Composite stops when any of its conditions stops. Every condition is
// evaluated so stateful ones observe each generation.
type Composite struct {
	terminations []Termination
}

// NewComposite combines conditions with logical OR.
func NewComposite(terminations ...Termination) *Composite {
	return &Composite{terminations: terminations}
}

func (c *Composite) IsTermination(ctx *refinement.Context) bool {
	stop := false
	for _, t := range c.terminations {
		if t.IsTermination(ctx) {
			stop = true
		}
	}
	return stop
}
