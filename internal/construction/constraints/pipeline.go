// Package constraints implements the constraint pipeline consulted on every
// candidate insertion.
package constraints

import (
	"github.com/copyleftdev/vrp/internal/models"
)

// Violation codes reported for rejected insertions.
const (
	CodeUnknown = iota
	CodeTimeWindow
	CodeReachable
	CodeCapacity
	CodeSkills
	CodeTourSize
	CodeNoActors
)

// CodeName returns a readable name of a violation code.
func CodeName(code int) string {
	switch code {
	case CodeTimeWindow:
		return "time_window"
	case CodeReachable:
		return "unreachable"
	case CodeCapacity:
		return "capacity"
	case CodeSkills:
		return "skills"
	case CodeTourSize:
		return "tour_size"
	case CodeNoActors:
		return "no_actors"
	default:
		return "unknown"
	}
}

// Kind is the outcome class of a constraint check.
type Kind int

const (
	// Allowed insertion, possibly with an additional cost.
	Allowed Kind = iota
	// Soft violation: allowed but penalized.
	Soft
	// Hard violation: rejected.
	Hard
)

// Verdict is the outcome of a constraint check.
type Verdict struct {
	Kind Kind
	Cost models.Cost
	Code int
}

// Allow returns an allowed verdict with the given cost.
func Allow(cost models.Cost) Verdict {
	return Verdict{Kind: Allowed, Cost: cost}
}

// Penalize returns a soft violation with the given penalty.
func Penalize(cost models.Cost, code int) Verdict {
	return Verdict{Kind: Soft, Cost: cost, Code: code}
}

// Reject returns a hard violation.
func Reject(code int) Verdict {
	return Verdict{Kind: Hard, Code: code}
}

// IsHard reports whether the verdict rejects the insertion.
func (v Verdict) IsHard() bool { return v.Kind == Hard }

// ActivityContext describes inserting Target between Prev and Next. Index
// is the tour index of Prev; Next is nil when inserting at the end of an
// open tour.
type ActivityContext struct {
	Index  int
	Prev   *models.Activity
	Target *models.Activity
	Next   *models.Activity
}

// Module checks one concern of a route.
type Module interface {
	Name() string
	// AcceptRouteState recomputes the module's derived state after the route changed.
	AcceptRouteState(rc *models.RouteContext)
	// EvaluateJob checks whether the job may be served by the route at all.
	EvaluateJob(rc *models.RouteContext, job models.Job) Verdict
	// EvaluateActivity checks a concrete insertion position.
	EvaluateActivity(rc *models.RouteContext, ac *ActivityContext) Verdict
}

// Pipeline chains modules in registration order. A hard verdict from any
// module rejects the insertion; costs of all other verdicts are summed.
type Pipeline struct {
	modules []Module
}

// NewPipeline creates a pipeline of the given modules.
func NewPipeline(modules ...Module) *Pipeline {
	return &Pipeline{modules: modules}
}

// Add registers a module and returns the pipeline.
func (p *Pipeline) Add(module Module) *Pipeline {
	p.modules = append(p.modules, module)
	return p
}

// Modules returns the registered modules.
func (p *Pipeline) Modules() []Module { return p.modules }

// AcceptRouteState recomputes the state of a changed route.
func (p *Pipeline) AcceptRouteState(rc *models.RouteContext) {
	for _, m := range p.modules {
		m.AcceptRouteState(rc)
	}
}

// AcceptSolutionState drops empty routes and recomputes all route states.
func (p *Pipeline) AcceptSolutionState(s *models.Solution) {
	s.RemoveEmptyRoutes()
	for _, rc := range s.Routes {
		p.AcceptRouteState(rc)
	}
}

// EvaluateJob combines route level verdicts for the job.
func (p *Pipeline) EvaluateJob(rc *models.RouteContext, job models.Job) Verdict {
	return p.combine(func(m Module) Verdict { return m.EvaluateJob(rc, job) })
}

// EvaluateActivity combines activity level verdicts for the insertion.
func (p *Pipeline) EvaluateActivity(rc *models.RouteContext, ac *ActivityContext) Verdict {
	return p.combine(func(m Module) Verdict { return m.EvaluateActivity(rc, ac) })
}

func (p *Pipeline) combine(evaluate func(Module) Verdict) Verdict {
	result := Allow(0)
	for _, m := range p.modules {
		v := evaluate(m)
		switch v.Kind {
		case Hard:
			return v
		case Soft:
			if result.Kind == Allowed {
				result.Kind = Soft
				result.Code = v.Code
			}
		}
		result.Cost += v.Cost
	}
	return result
}
