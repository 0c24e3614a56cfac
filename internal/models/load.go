package models

import "fmt"

// Load is an abstract capacity amount. Implementations are values: every
// operation returns a new amount.
type Load[L any] interface {
	Add(other L) L
	Sub(other L) L
	// Max returns the element-wise maximum.
	Max(other L) L
	// CanFit reports whether other fits into the receiver in every dimension.
	CanFit(other L) bool
	IsNotEmpty() bool
}

// SingleDimLoad is a single-dimensional load.
type SingleDimLoad struct {
	Value int
}

// NewSingleDimLoad creates a load with the given value.
func NewSingleDimLoad(value int) SingleDimLoad {
	return SingleDimLoad{Value: value}
}

func (l SingleDimLoad) Add(other SingleDimLoad) SingleDimLoad {
	return SingleDimLoad{Value: l.Value + other.Value}
}

func (l SingleDimLoad) Sub(other SingleDimLoad) SingleDimLoad {
	return SingleDimLoad{Value: l.Value - other.Value}
}

func (l SingleDimLoad) Max(other SingleDimLoad) SingleDimLoad {
	if other.Value > l.Value {
		return other
	}
	return l
}

func (l SingleDimLoad) CanFit(other SingleDimLoad) bool {
	return l.Value >= other.Value
}

func (l SingleDimLoad) IsNotEmpty() bool {
	return l.Value != 0
}

func (l SingleDimLoad) String() string {
	return fmt.Sprintf("%d", l.Value)
}

// MultiDimLoad is a multi-dimensional load; missing trailing dimensions are zero.
type MultiDimLoad struct {
	Values []int
}

// NewMultiDimLoad creates a load with the given values.
func NewMultiDimLoad(values ...int) MultiDimLoad {
	return MultiDimLoad{Values: append([]int(nil), values...)}
}

func (l MultiDimLoad) at(i int) int {
	if i < len(l.Values) {
		return l.Values[i]
	}
	return 0
}

func (l MultiDimLoad) combine(other MultiDimLoad, fn func(a, b int) int) MultiDimLoad {
	size := len(l.Values)
	if len(other.Values) > size {
		size = len(other.Values)
	}
	out := make([]int, size)
	for i := range out {
		out[i] = fn(l.at(i), other.at(i))
	}
	return MultiDimLoad{Values: out}
}

func (l MultiDimLoad) Add(other MultiDimLoad) MultiDimLoad {
	return l.combine(other, func(a, b int) int { return a + b })
}

func (l MultiDimLoad) Sub(other MultiDimLoad) MultiDimLoad {
	return l.combine(other, func(a, b int) int { return a - b })
}

func (l MultiDimLoad) Max(other MultiDimLoad) MultiDimLoad {
	return l.combine(other, func(a, b int) int { return max(a, b) })
}

func (l MultiDimLoad) CanFit(other MultiDimLoad) bool {
	size := max(len(l.Values), len(other.Values))
	for i := 0; i < size; i++ {
		if l.at(i) < other.at(i) {
			return false
		}
	}
	return true
}

func (l MultiDimLoad) IsNotEmpty() bool {
	for _, v := range l.Values {
		if v != 0 {
			return true
		}
	}
	return false
}

// Demand describes how a job changes the vehicle load. Index 0 of each
// pair is the static part (loaded at or returned to the depot), index 1
// is the dynamic part (picked up and delivered within the same tour).
type Demand[L Load[L]] struct {
	Pickup   [2]L
	Delivery [2]L
}

// Change returns the load difference caused by serving the demand.
func (d Demand[L]) Change() L {
	return d.Pickup[0].Add(d.Pickup[1]).Sub(d.Delivery[0]).Sub(d.Delivery[1])
}

// Peak returns the largest amount the demand ever requires on board.
func (d Demand[L]) Peak() L {
	return d.Pickup[0].Add(d.Pickup[1]).Max(d.Delivery[0].Add(d.Delivery[1]))
}

// SimpleDemand creates a single-dimensional static demand: a positive size
// is a pickup, a negative size is a delivery.
func SimpleDemand(size int) Demand[SingleDimLoad] {
	var zero SingleDimLoad
	if size > 0 {
		return Demand[SingleDimLoad]{
			Pickup:   [2]SingleDimLoad{NewSingleDimLoad(size), zero},
			Delivery: [2]SingleDimLoad{zero, zero},
		}
	}
	return Demand[SingleDimLoad]{
		Pickup:   [2]SingleDimLoad{zero, zero},
		Delivery: [2]SingleDimLoad{NewSingleDimLoad(-size), zero},
	}
}

// SetDemand stores a demand on the dimensions.
func SetDemand[L Load[L]](d Dimensions, demand Demand[L]) Dimensions {
	return d.Set(DimensionDemand, demand)
}

// DemandOf returns the demand stored on the dimensions, if any.
func DemandOf[L Load[L]](d Dimensions) (Demand[L], bool) {
	return Lookup[Demand[L]](d, DimensionDemand)
}

// SetCapacity stores a capacity on the dimensions.
func SetCapacity[L Load[L]](d Dimensions, capacity L) Dimensions {
	return d.Set(DimensionCapacity, capacity)
}

// CapacityOf returns the capacity stored on the dimensions, if any.
func CapacityOf[L Load[L]](d Dimensions) (L, bool) {
	return Lookup[L](d, DimensionCapacity)
}
