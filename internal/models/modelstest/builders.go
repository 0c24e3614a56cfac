// Package modelstest provides builders for problem and solution fixtures.
package modelstest

import (
	"fmt"

	"github.com/copyleftdev/vrp/internal/models"
)

// DefaultCosts are vehicle costs used by fixtures.
var DefaultCosts = models.Costs{Fixed: 100, PerDistance: 1, PerDrivingTime: 1}

// SingleBuilder builds single jobs.
type SingleBuilder struct {
	id     string
	places []models.Place
	dimens models.Dimensions
}

// NewSingleBuilder creates a builder for a job at location 0.
func NewSingleBuilder(id string) *SingleBuilder {
	return &SingleBuilder{id: id, dimens: models.NewDimensions().SetID(id)}
}

// Location adds a place at the location without time windows.
func (b *SingleBuilder) Location(location models.Location) *SingleBuilder {
	b.places = append(b.places, models.Place{Location: location})
	return b
}

// Place adds a fully specified place.
func (b *SingleBuilder) Place(location models.Location, duration models.Duration, times ...models.TimeWindow) *SingleBuilder {
	b.places = append(b.places, models.Place{Location: location, Duration: duration, Times: times})
	return b
}

// Demand sets a simple single-dimensional demand.
func (b *SingleBuilder) Demand(size int) *SingleBuilder {
	models.SetDemand(b.dimens, models.SimpleDemand(size))
	return b
}

// DynamicDemand sets a dynamic pickup (size > 0) or delivery (size < 0).
func (b *SingleBuilder) DynamicDemand(size int) *SingleBuilder {
	var zero models.SingleDimLoad
	demand := models.Demand[models.SingleDimLoad]{
		Pickup:   [2]models.SingleDimLoad{zero, zero},
		Delivery: [2]models.SingleDimLoad{zero, zero},
	}
	if size > 0 {
		demand.Pickup[1] = models.NewSingleDimLoad(size)
	} else {
		demand.Delivery[1] = models.NewSingleDimLoad(-size)
	}
	models.SetDemand(b.dimens, demand)
	return b
}

// Skills sets required skills.
func (b *SingleBuilder) Skills(skills ...string) *SingleBuilder {
	b.dimens.SetSkills(skills...)
	return b
}

// Build creates the job.
func (b *SingleBuilder) Build() *models.Single {
	places := b.places
	if len(places) == 0 {
		places = []models.Place{{Location: 0}}
	}
	return models.NewSingle(places, b.dimens)
}

// NewPickupDelivery creates a multi job with a dynamic pickup at from and a
// delivery at to.
func NewPickupDelivery(id string, from, to models.Location, size int) *models.Multi {
	pickup := NewSingleBuilder(id + "_p").Location(from).DynamicDemand(size).Build()
	delivery := NewSingleBuilder(id + "_d").Location(to).DynamicDemand(-size).Build()
	return models.NewMulti([]*models.Single{pickup, delivery}, models.NewDimensions().SetID(id))
}

// VehicleBuilder builds vehicles.
type VehicleBuilder struct {
	vehicle *models.Vehicle
}

// NewVehicleBuilder creates a builder for a vehicle returning to location 0
// with an unrestricted shift and the default costs.
func NewVehicleBuilder(id string) *VehicleBuilder {
	end := models.Location(0)
	return &VehicleBuilder{vehicle: &models.Vehicle{
		Costs:   DefaultCosts,
		Dimens:  models.NewDimensions().SetID(id),
		Details: []models.VehicleDetail{{Start: 0, End: &end, Time: models.MaxTimeWindow()}},
	}}
}

// Capacity sets a single-dimensional capacity.
func (b *VehicleBuilder) Capacity(capacity int) *VehicleBuilder {
	models.SetCapacity(b.vehicle.Dimens, models.NewSingleDimLoad(capacity))
	return b
}

// Details replaces the vehicle details.
func (b *VehicleBuilder) Details(details ...models.VehicleDetail) *VehicleBuilder {
	b.vehicle.Details = details
	return b
}

// Open makes the vehicle finish at its last job.
func (b *VehicleBuilder) Open() *VehicleBuilder {
	for i := range b.vehicle.Details {
		b.vehicle.Details[i].End = nil
	}
	return b
}

// Shift restricts the vehicle time.
func (b *VehicleBuilder) Shift(start, end models.Timestamp) *VehicleBuilder {
	for i := range b.vehicle.Details {
		b.vehicle.Details[i].Time = models.NewTimeWindow(start, end)
	}
	return b
}

// Costs replaces the vehicle costs.
func (b *VehicleBuilder) Costs(costs models.Costs) *VehicleBuilder {
	b.vehicle.Costs = costs
	return b
}

// Skills sets vehicle skills.
func (b *VehicleBuilder) Skills(skills ...string) *VehicleBuilder {
	b.vehicle.Dimens.SetSkills(skills...)
	return b
}

// TypeID sets the vehicle type used by type grouping.
func (b *VehicleBuilder) TypeID(typeID string) *VehicleBuilder {
	b.vehicle.Dimens.Set(models.DimensionTypeID, typeID)
	return b
}

// Build returns the vehicle.
func (b *VehicleBuilder) Build() *models.Vehicle {
	return b.vehicle
}

// DefaultDriver returns a driver without costs.
func DefaultDriver() *models.Driver {
	return &models.Driver{Dimens: models.NewDimensions().SetID("driver")}
}

// NewFleet creates a fleet with one default driver.
func NewFleet(vehicles ...*models.Vehicle) *models.Fleet {
	return models.NewFleet([]*models.Driver{DefaultDriver()}, vehicles, models.GroupByDetail)
}

// LineMatrix returns a transport cost where locations lie on a line and
// both distance and duration between i and j equal |i-j|.
func LineMatrix(size int) *models.MatrixTransportCost {
	values := make([]float64, size*size)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			values[i*size+j] = float64(abs(i - j))
		}
	}
	tc, err := models.NewMatrixTransportCost([][]float64{values}, [][]float64{values})
	if err != nil {
		panic(fmt.Sprintf("line matrix: %v", err))
	}
	return tc
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
