package models

// StateKey identifies a value kept in a RouteState.
type StateKey int

// Well known state keys. Constraint modules owning a key recompute it when
// the route changes.
const (
	// StateStatistic is a route value of type Statistic.
	StateStatistic StateKey = iota + 1
	// StateLatestArrival holds []Timestamp per activity.
	StateLatestArrival
	// StateDistance holds cumulative []Distance per activity.
	StateDistance
	// StateCurrentLoad holds the load after each activity.
	StateCurrentLoad
	// StateMaxPastLoad holds the maximum load up to each activity.
	StateMaxPastLoad
	// StateMaxFutureLoad holds the maximum load from each activity onwards.
	StateMaxFutureLoad
)

// RouteState keeps derived values of a route. Stored slices are replaced,
// never mutated in place, so clones can share them.
type RouteState struct {
	values map[StateKey]any
}

// NewRouteState creates an empty state.
func NewRouteState() *RouteState {
	return &RouteState{values: make(map[StateKey]any)}
}

// Put stores a value.
func (s *RouteState) Put(key StateKey, value any) {
	s.values[key] = value
}

// Clone returns a copy sharing the stored values.
func (s *RouteState) Clone() *RouteState {
	c := NewRouteState()
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}

// StateValue returns the route value stored under key.
func StateValue[T any](s *RouteState, key StateKey) (T, bool) {
	var zero T
	raw, ok := s.values[key]
	if !ok {
		return zero, false
	}
	value, ok := raw.(T)
	if !ok {
		panic(NewErrorf("state %d holds %T, want %T", key, raw, zero).WithOperation("StateValue"))
	}
	return value, true
}

// ActivityStateValue returns the activity value stored under key at index.
func ActivityStateValue[T any](s *RouteState, key StateKey, index int) (T, bool) {
	var zero T
	values, ok := StateValue[[]T](s, key)
	if !ok || index < 0 || index >= len(values) {
		return zero, false
	}
	return values[index], true
}

// Route is an actor with its tour.
type Route struct {
	Actor *Actor
	Tour  *Tour
}

// RouteContext is a route with its derived state.
type RouteContext struct {
	Route *Route
	State *RouteState
}

// NewRouteContext creates an empty route for the actor.
func NewRouteContext(actor *Actor) *RouteContext {
	return &RouteContext{
		Route: &Route{Actor: actor, Tour: NewTour(actor)},
		State: NewRouteState(),
	}
}

// Clone returns a deep copy of the route and its state.
func (rc *RouteContext) Clone() *RouteContext {
	return &RouteContext{
		Route: &Route{Actor: rc.Route.Actor, Tour: rc.Route.Tour.Clone()},
		State: rc.State.Clone(),
	}
}

// Actor returns the route actor.
func (rc *RouteContext) Actor() *Actor { return rc.Route.Actor }

// Tour returns the route tour.
func (rc *RouteContext) Tour() *Tour { return rc.Route.Tour }

// Statistic returns the route statistic or zero when not computed.
func (rc *RouteContext) Statistic() Statistic {
	stat, _ := StateValue[Statistic](rc.State, StateStatistic)
	return stat
}

// Registry tracks which fleet actors are in use.
type Registry struct {
	fleet *Fleet
	used  map[*Actor]bool
}

// NewRegistry creates a registry with all actors available.
func NewRegistry(fleet *Fleet) *Registry {
	return &Registry{fleet: fleet, used: make(map[*Actor]bool)}
}

// Use marks the actor as used.
func (r *Registry) Use(actor *Actor) { r.used[actor] = true }

// Free marks the actor as available.
func (r *Registry) Free(actor *Actor) { delete(r.used, actor) }

// IsUsed reports whether the actor is used.
func (r *Registry) IsUsed(actor *Actor) bool { return r.used[actor] }

// Available returns unused actors in fleet order.
func (r *Registry) Available() []*Actor {
	var out []*Actor
	for _, actor := range r.fleet.Actors {
		if !r.used[actor] {
			out = append(out, actor)
		}
	}
	return out
}

// NextByGroup returns the first available actor of every actor group.
func (r *Registry) NextByGroup() []*Actor {
	seen := make(map[int]bool)
	var out []*Actor
	for _, actor := range r.Available() {
		group := r.fleet.Group(actor)
		if seen[group] {
			continue
		}
		seen[group] = true
		out = append(out, actor)
	}
	return out
}

// Clone returns a copy of the registry.
func (r *Registry) Clone() *Registry {
	c := &Registry{fleet: r.fleet, used: make(map[*Actor]bool, len(r.used))}
	for actor := range r.used {
		c.used[actor] = true
	}
	return c
}

// UnassignedJob is a job which could not be inserted with the violation
// code which rejected it last.
type UnassignedJob struct {
	Job  Job
	Code int
}

// Solution is the mutable state being optimized.
type Solution struct {
	Routes     []*RouteContext
	Registry   *Registry
	Required   []Job
	Unassigned []UnassignedJob
}

// NewSolution creates a solution with every job required and no routes.
func NewSolution(fleet *Fleet, jobs *Jobs) *Solution {
	return &Solution{
		Registry: NewRegistry(fleet),
		Required: append([]Job(nil), jobs.All()...),
	}
}

// Clone returns a deep copy.
func (s *Solution) Clone() *Solution {
	c := &Solution{
		Routes:     make([]*RouteContext, len(s.Routes)),
		Registry:   s.Registry.Clone(),
		Required:   append([]Job(nil), s.Required...),
		Unassigned: append([]UnassignedJob(nil), s.Unassigned...),
	}
	for i, rc := range s.Routes {
		c.Routes[i] = rc.Clone()
	}
	return c
}

// RouteOf returns the route serving the job or nil.
func (s *Solution) RouteOf(job Job) *RouteContext {
	for _, rc := range s.Routes {
		if rc.Route.Tour.Contains(job) {
			return rc
		}
	}
	return nil
}

// RemoveJob removes the job's root from its route and returns the route it
// was removed from. Multi jobs are always removed with all of their parts.
func (s *Solution) RemoveJob(job Job) *RouteContext {
	rc := s.RouteOf(job)
	if rc == nil {
		return nil
	}
	rc.Route.Tour.RemoveJob(job)
	return rc
}

// RemoveEmptyRoutes drops routes without jobs and frees their actors.
func (s *Solution) RemoveEmptyRoutes() {
	kept := s.Routes[:0]
	for _, rc := range s.Routes {
		if rc.Route.Tour.HasJobs() {
			kept = append(kept, rc)
			continue
		}
		s.Registry.Free(rc.Route.Actor)
	}
	for i := len(kept); i < len(s.Routes); i++ {
		s.Routes[i] = nil
	}
	s.Routes = kept
}

// AssignedJobs returns root jobs served by the routes in route order.
func (s *Solution) AssignedJobs() []Job {
	var jobs []Job
	for _, rc := range s.Routes {
		jobs = append(jobs, rc.Route.Tour.Jobs()...)
	}
	return jobs
}

// RequeueUnassigned moves unassigned jobs back to the required list.
func (s *Solution) RequeueUnassigned() {
	for _, u := range s.Unassigned {
		s.Required = append(s.Required, u.Job)
	}
	s.Unassigned = nil
}

// Statistic aggregates route statistics.
func (s *Solution) Statistic() Statistic {
	var total Statistic
	for _, rc := range s.Routes {
		total = total.Add(rc.Statistic())
	}
	return total
}
