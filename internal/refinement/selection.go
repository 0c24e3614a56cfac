package refinement

import (
	"fmt"
	"math/rand"
)

// UniformSelection picks any member with equal probability.
type UniformSelection struct{}

func (UniformSelection) Select(ctx *Context, random *rand.Rand) Individual {
	return ctx.Population[random.Intn(len(ctx.Population))]
}

// RankSelection prefers better members: the i-th best has weight n-i.
type RankSelection struct{}

func (RankSelection) Select(ctx *Context, random *rand.Rand) Individual {
	n := len(ctx.Population)
	total := n * (n + 1) / 2
	pick := random.Intn(total)
	for i := 0; i < n; i++ {
		pick -= n - i
		if pick < 0 {
			return ctx.Population[i]
		}
	}
	return ctx.Population[n-1]
}

// NewSelection returns the selection policy by name: uniform or rank.
func NewSelection(name string) (Selection, error) {
	switch name {
	case "", "uniform":
		return UniformSelection{}, nil
	case "rank":
		return RankSelection{}, nil
	default:
		return nil, fmt.Errorf("unknown selection policy %q", name)
	}
}
