package models

// Costs are per-unit cost coefficients of a vehicle or driver.
type Costs struct {
	Fixed          Cost `json:"fixed"`
	PerDistance    Cost `json:"per_distance"`
	PerDrivingTime Cost `json:"per_driving_time"`
	PerWaitingTime Cost `json:"per_waiting_time"`
	PerServiceTime Cost `json:"per_service_time"`
}

// Add returns the element-wise sum.
func (c Costs) Add(other Costs) Costs {
	return Costs{
		Fixed:          c.Fixed + other.Fixed,
		PerDistance:    c.PerDistance + other.PerDistance,
		PerDrivingTime: c.PerDrivingTime + other.PerDrivingTime,
		PerWaitingTime: c.PerWaitingTime + other.PerWaitingTime,
		PerServiceTime: c.PerServiceTime + other.PerServiceTime,
	}
}

// Driver represents a person operating a vehicle.
type Driver struct {
	Costs  Costs
	Dimens Dimensions
}

// VehicleDetail is one start/end/shift option of a vehicle. A nil End
// means the tour finishes at its last job.
type VehicleDetail struct {
	Start Location
	End   *Location
	Time  TimeWindow
}

// Vehicle represents a vehicle with one or more operating details.
type Vehicle struct {
	Profile Profile
	Costs   Costs
	Dimens  Dimensions
	Details []VehicleDetail
}

// ActorDetail is the comparable form of a vehicle detail.
type ActorDetail struct {
	Start  Location
	End    Location
	HasEnd bool
	Time   TimeWindow
}

// Actor is an immutable vehicle, driver and detail combination.
type Actor struct {
	Vehicle *Vehicle
	Driver  *Driver
	Detail  ActorDetail
}

// Costs returns the combined vehicle and driver costs.
func (a *Actor) Costs() Costs {
	if a.Driver == nil {
		return a.Vehicle.Costs
	}
	return a.Vehicle.Costs.Add(a.Driver.Costs)
}

// ID returns the vehicle id.
func (a *Actor) ID() string {
	return a.Vehicle.Dimens.ID()
}

// ActorGroups maps an actor to its equivalence class.
type ActorGroups func(actor *Actor) int

// GroupingFunc builds actor groups for the whole fleet.
type GroupingFunc func(actors []*Actor) ActorGroups

// Fleet holds drivers, vehicles and the derived actors.
type Fleet struct {
	Drivers  []*Driver
	Vehicles []*Vehicle
	Actors   []*Actor
	groups   ActorGroups
}

// NewFleet creates one actor per driver, vehicle and vehicle detail.
func NewFleet(drivers []*Driver, vehicles []*Vehicle, grouping GroupingFunc) *Fleet {
	var actors []*Actor
	for _, driver := range drivers {
		for _, vehicle := range vehicles {
			for _, detail := range vehicle.Details {
				ad := ActorDetail{Start: detail.Start, Time: detail.Time}
				if detail.End != nil {
					ad.End = *detail.End
					ad.HasEnd = true
				}
				actors = append(actors, &Actor{Vehicle: vehicle, Driver: driver, Detail: ad})
			}
		}
	}
	if grouping == nil {
		grouping = GroupByDetail
	}
	return &Fleet{
		Drivers:  drivers,
		Vehicles: vehicles,
		Actors:   actors,
		groups:   grouping(actors),
	}
}

// Group returns the equivalence class of the actor.
func (f *Fleet) Group(actor *Actor) int {
	return f.groups(actor)
}

// GroupByDetail treats actors with the same detail as interchangeable.
func GroupByDetail(actors []*Actor) ActorGroups {
	keys := make(map[ActorDetail]int)
	groups := make(map[*Actor]int, len(actors))
	for _, actor := range actors {
		key, ok := keys[actor.Detail]
		if !ok {
			key = len(keys)
			keys[actor.Detail] = key
		}
		groups[actor] = key
	}
	return func(actor *Actor) int { return groups[actor] }
}

// GroupByVehicleType treats actors with the same vehicle type and detail as
// interchangeable. Vehicles without a type form their own group.
func GroupByVehicleType(actors []*Actor) ActorGroups {
	type key struct {
		typeID string
		detail ActorDetail
	}
	keys := make(map[key]int)
	groups := make(map[*Actor]int, len(actors))
	for _, actor := range actors {
		typeID, ok := Lookup[string](actor.Vehicle.Dimens, DimensionTypeID)
		if !ok {
			typeID = "vehicle:" + actor.Vehicle.Dimens.ID()
		}
		k := key{typeID: typeID, detail: actor.Detail}
		g, ok := keys[k]
		if !ok {
			g = len(keys)
			keys[k] = g
		}
		groups[actor] = g
	}
	return func(actor *Actor) int { return groups[actor] }
}
