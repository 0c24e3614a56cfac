package server

import (
	"fmt"
	"time"

	"github.com/copyleftdev/vrp/internal/construction"
	"github.com/copyleftdev/vrp/internal/construction/constraints"
	"github.com/copyleftdev/vrp/internal/models"
	"github.com/copyleftdev/vrp/internal/refinement"
)

// ProblemRequest is the body of a solve request. Locations are indices into
// the routing matrices.
type ProblemRequest struct {
	Matrices   []MatrixDTO          `json:"matrices"`
	Vehicles   []VehicleDTO         `json:"vehicles"`
	Jobs       []JobDTO             `json:"jobs"`
	Shipments  []ShipmentDTO        `json:"shipments,omitempty"`
	Refinement *RefinementOverrides `json:"refinement,omitempty"`
}

// MatrixDTO holds the row-major routing matrices of one profile.
type MatrixDTO struct {
	Durations []float64 `json:"durations"`
	Distances []float64 `json:"distances"`
}

// VehicleDTO describes a vehicle type.
type VehicleDTO struct {
	ID       string       `json:"id"`
	TypeID   string       `json:"type_id,omitempty"`
	Profile  int          `json:"profile"`
	Start    int          `json:"start"`
	End      *int         `json:"end,omitempty"`
	Shift    *[2]float64  `json:"shift,omitempty"`
	Capacity int          `json:"capacity"`
	Skills   []string     `json:"skills,omitempty"`
	TourSize int          `json:"tour_size,omitempty"`
	Costs    models.Costs `json:"costs"`
}

// PlaceDTO is one alternative location of a job.
type PlaceDTO struct {
	Location int          `json:"location"`
	Duration float64      `json:"duration"`
	Times    [][2]float64 `json:"times,omitempty"`
}

// JobDTO is a single job. A positive demand is picked up, a negative one
// delivered.
type JobDTO struct {
	ID     string     `json:"id"`
	Places []PlaceDTO `json:"places"`
	Demand int        `json:"demand"`
	Skills []string   `json:"skills,omitempty"`
}

// ShipmentDTO is a pickup and delivery pair served by one vehicle.
type ShipmentDTO struct {
	ID       string   `json:"id"`
	Pickup   PlaceDTO `json:"pickup"`
	Delivery PlaceDTO `json:"delivery"`
	Size     int      `json:"size"`
	Skills   []string `json:"skills,omitempty"`
}

// RefinementOverrides replace the configured solver parameters for one run.
type RefinementOverrides struct {
	MaxGenerations *int    `json:"max_generations,omitempty"`
	MaxTime        *string `json:"max_time,omitempty"`
	Workers        *int    `json:"workers,omitempty"`
	Seed           *int64  `json:"seed,omitempty"`
	PopulationSize *int    `json:"population_size,omitempty"`
	Selection      *string `json:"selection,omitempty"`
}

// BuildProblem validates the request and converts it into a problem.
func (p *ProblemRequest) BuildProblem() (*construction.Problem, error) {
	if len(p.Matrices) == 0 {
		return nil, fmt.Errorf("at least one routing matrix is required")
	}
	if len(p.Vehicles) == 0 {
		return nil, fmt.Errorf("at least one vehicle is required")
	}
	if len(p.Jobs)+len(p.Shipments) == 0 {
		return nil, fmt.Errorf("at least one job is required")
	}

	durations := make([][]float64, len(p.Matrices))
	distances := make([][]float64, len(p.Matrices))
	for i, m := range p.Matrices {
		durations[i], distances[i] = m.Durations, m.Distances
	}
	transport, err := models.NewMatrixTransportCost(durations, distances)
	if err != nil {
		return nil, err
	}

	v := validator{size: transport.Size(), profiles: transport.Profiles(), ids: make(map[string]bool)}

	vehicles := make([]*models.Vehicle, 0, len(p.Vehicles))
	for _, dto := range p.Vehicles {
		vehicle, err := v.vehicle(dto)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}

	jobs := make([]models.Job, 0, len(p.Jobs)+len(p.Shipments))
	for _, dto := range p.Jobs {
		job, err := v.job(dto)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	for _, dto := range p.Shipments {
		shipment, err := v.shipment(dto)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, shipment)
	}

	grouping := models.GroupByDetail
	for _, dto := range p.Vehicles {
		if dto.TypeID != "" {
			grouping = models.GroupByVehicleType
			break
		}
	}
	driver := &models.Driver{Dimens: models.NewDimensions().SetID("driver")}
	fleet := models.NewFleet([]*models.Driver{driver}, vehicles, grouping)

	return construction.NewProblem(fleet, models.NewJobs(jobs), transport, nil), nil
}

type validator struct {
	size     int
	profiles int
	ids      map[string]bool
}

func (v validator) id(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s id is required", kind)
	}
	if v.ids[kind+"/"+id] {
		return fmt.Errorf("duplicate %s id %q", kind, id)
	}
	v.ids[kind+"/"+id] = true
	return nil
}

func (v validator) location(owner string, location int) error {
	if location < 0 || location >= v.size {
		return fmt.Errorf("%s: location %d is outside of the matrix of size %d", owner, location, v.size)
	}
	return nil
}

func (v validator) vehicle(dto VehicleDTO) (*models.Vehicle, error) {
	if err := v.id("vehicle", dto.ID); err != nil {
		return nil, err
	}
	if dto.Profile < 0 || dto.Profile >= v.profiles {
		return nil, fmt.Errorf("vehicle %s: unknown profile %d", dto.ID, dto.Profile)
	}
	if err := v.location("vehicle "+dto.ID, dto.Start); err != nil {
		return nil, err
	}
	if dto.End != nil {
		if err := v.location("vehicle "+dto.ID, *dto.End); err != nil {
			return nil, err
		}
	}
	if dto.Capacity < 0 || dto.TourSize < 0 {
		return nil, fmt.Errorf("vehicle %s: capacity and tour size must not be negative", dto.ID)
	}

	shift := models.MaxTimeWindow()
	if dto.Shift != nil {
		shift = models.NewTimeWindow(dto.Shift[0], dto.Shift[1])
		if shift.Start > shift.End {
			return nil, fmt.Errorf("vehicle %s: shift starts after it ends", dto.ID)
		}
	}

	dimens := models.NewDimensions().SetID(dto.ID)
	models.SetCapacity(dimens, models.NewSingleDimLoad(dto.Capacity))
	if len(dto.Skills) > 0 {
		dimens.SetSkills(dto.Skills...)
	}
	if dto.TypeID != "" {
		dimens.Set(models.DimensionTypeID, dto.TypeID)
	}
	if dto.TourSize > 0 {
		dimens.Set(models.DimensionTourSize, dto.TourSize)
	}

	return &models.Vehicle{
		Profile: dto.Profile,
		Costs:   dto.Costs,
		Dimens:  dimens,
		Details: []models.VehicleDetail{{Start: dto.Start, End: dto.End, Time: shift}},
	}, nil
}

func (v validator) places(owner string, dtos []PlaceDTO) ([]models.Place, error) {
	if len(dtos) == 0 {
		return nil, fmt.Errorf("%s: at least one place is required", owner)
	}
	places := make([]models.Place, 0, len(dtos))
	for _, dto := range dtos {
		if err := v.location(owner, dto.Location); err != nil {
			return nil, err
		}
		if dto.Duration < 0 {
			return nil, fmt.Errorf("%s: negative duration", owner)
		}
		place := models.Place{Location: dto.Location, Duration: dto.Duration}
		for _, tw := range dto.Times {
			if tw[0] > tw[1] {
				return nil, fmt.Errorf("%s: time window starts after it ends", owner)
			}
			place.Times = append(place.Times, models.NewTimeWindow(tw[0], tw[1]))
		}
		places = append(places, place)
	}
	return places, nil
}

func (v validator) job(dto JobDTO) (models.Job, error) {
	if err := v.id("job", dto.ID); err != nil {
		return nil, err
	}
	places, err := v.places("job "+dto.ID, dto.Places)
	if err != nil {
		return nil, err
	}
	dimens := models.NewDimensions().SetID(dto.ID)
	if dto.Demand != 0 {
		models.SetDemand(dimens, models.SimpleDemand(dto.Demand))
	}
	if len(dto.Skills) > 0 {
		dimens.SetSkills(dto.Skills...)
	}
	return models.NewSingle(places, dimens), nil
}

func (v validator) shipment(dto ShipmentDTO) (models.Job, error) {
	if err := v.id("job", dto.ID); err != nil {
		return nil, err
	}
	if dto.Size < 0 {
		return nil, fmt.Errorf("shipment %s: size must not be negative", dto.ID)
	}

	part := func(suffix string, place PlaceDTO, pickup bool) (*models.Single, error) {
		places, err := v.places("shipment "+dto.ID, []PlaceDTO{place})
		if err != nil {
			return nil, err
		}
		var zero models.SingleDimLoad
		demand := models.Demand[models.SingleDimLoad]{
			Pickup:   [2]models.SingleDimLoad{zero, zero},
			Delivery: [2]models.SingleDimLoad{zero, zero},
		}
		if pickup {
			demand.Pickup[1] = models.NewSingleDimLoad(dto.Size)
		} else {
			demand.Delivery[1] = models.NewSingleDimLoad(dto.Size)
		}
		dimens := models.NewDimensions().SetID(dto.ID + suffix)
		models.SetDemand(dimens, demand)
		if len(dto.Skills) > 0 {
			dimens.SetSkills(dto.Skills...)
		}
		return models.NewSingle(places, dimens), nil
	}

	pickup, err := part("_pickup", dto.Pickup, true)
	if err != nil {
		return nil, err
	}
	delivery, err := part("_delivery", dto.Delivery, false)
	if err != nil {
		return nil, err
	}
	dimens := models.NewDimensions().SetID(dto.ID)
	if len(dto.Skills) > 0 {
		dimens.SetSkills(dto.Skills...)
	}
	return models.NewMulti([]*models.Single{pickup, delivery}, dimens), nil
}

// SolutionResponse is the wire form of a solution.
type SolutionResponse struct {
	Cost       []float64        `json:"cost"`
	Statistic  models.Statistic `json:"statistic"`
	Tours      []TourDTO        `json:"tours"`
	Unassigned []UnassignedDTO  `json:"unassigned"`
}

// TourDTO is the route of one vehicle.
type TourDTO struct {
	VehicleID string           `json:"vehicle_id"`
	Stops     []StopDTO        `json:"stops"`
	Statistic models.Statistic `json:"statistic"`
}

// StopDTO is one visited place. JobID is empty for the depot stops.
type StopDTO struct {
	Location  int     `json:"location"`
	JobID     string  `json:"job_id,omitempty"`
	Arrival   float64 `json:"arrival"`
	Departure float64 `json:"departure"`
	Distance  float64 `json:"distance"`
}

// UnassignedDTO is a job left out of the solution with the reason why.
type UnassignedDTO struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

func newSolutionResponse(individual refinement.Individual) *SolutionResponse {
	solution := individual.Solution
	response := &SolutionResponse{
		Cost:       individual.Cost,
		Statistic:  solution.Statistic(),
		Tours:      make([]TourDTO, 0, len(solution.Routes)),
		Unassigned: make([]UnassignedDTO, 0, len(solution.Unassigned)),
	}

	for _, rc := range solution.Routes {
		distances, _ := models.StateValue[[]models.Distance](rc.State, models.StateDistance)
		tour := TourDTO{VehicleID: rc.Actor().ID(), Statistic: rc.Statistic()}
		for i, activity := range rc.Tour().Activities() {
			stop := StopDTO{
				Location:  activity.Place.Location,
				Arrival:   activity.Schedule.Arrival,
				Departure: activity.Schedule.Departure,
			}
			if activity.Job != nil {
				stop.JobID = activity.Job.ID()
			}
			if i < len(distances) {
				stop.Distance = distances[i]
			}
			tour.Stops = append(tour.Stops, stop)
		}
		response.Tours = append(response.Tours, tour)
	}

	for _, unassigned := range solution.Unassigned {
		response.Unassigned = append(response.Unassigned, UnassignedDTO{
			JobID:  unassigned.Job.ID(),
			Reason: constraints.CodeName(unassigned.Code),
		})
	}

	return response
}

func parseDuration(value *string) (time.Duration, error) {
	if value == nil {
		return 0, nil
	}
	return time.ParseDuration(*value)
}
