package models

import "fmt"

// Well known dimension keys.
const (
	DimensionID       = "id"
	DimensionDemand   = "demand"
	DimensionCapacity = "capacity"
	DimensionSkills   = "skills"
	DimensionTourSize = "tour_size"
	DimensionTypeID   = "type_id"
)

// Dimensions is an open set of typed attributes attached to jobs, vehicles
// and drivers. Values are type-checked on read.
type Dimensions map[string]any

// NewDimensions creates an empty attribute map.
func NewDimensions() Dimensions {
	return make(Dimensions)
}

// Set stores value under key and returns the map for chaining.
func (d Dimensions) Set(key string, value any) Dimensions {
	d[key] = value
	return d
}

// Has reports whether the key is present.
func (d Dimensions) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Clone returns a shallow copy.
func (d Dimensions) Clone() Dimensions {
	out := make(Dimensions, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Get returns the value stored under key as T.
func Get[T any](d Dimensions, key string) (T, error) {
	var zero T
	raw, ok := d[key]
	if !ok {
		return zero, &Error{Op: "Dimensions.Get", Message: fmt.Sprintf("key %q", key), Err: ErrDimensionMissing}
	}
	value, ok := raw.(T)
	if !ok {
		return zero, &Error{
			Op:      "Dimensions.Get",
			Message: fmt.Sprintf("key %q holds %T, want %T", key, raw, zero),
			Err:     ErrDimensionType,
		}
	}
	return value, nil
}

// Lookup returns the value stored under key when present. A value of the
// wrong type is a construction bug and panics.
func Lookup[T any](d Dimensions, key string) (T, bool) {
	var zero T
	if _, ok := d[key]; !ok {
		return zero, false
	}
	return MustGet[T](d, key), true
}

// MustGet returns the value stored under key or panics with a *Error.
func MustGet[T any](d Dimensions, key string) T {
	value, err := Get[T](d, key)
	if err != nil {
		panic(err)
	}
	return value
}

// SetID sets the id dimension.
func (d Dimensions) SetID(id string) Dimensions {
	return d.Set(DimensionID, id)
}

// ID returns the id dimension or an empty string when absent.
func (d Dimensions) ID() string {
	id, _ := Lookup[string](d, DimensionID)
	return id
}

// SetSkills sets the skills dimension.
func (d Dimensions) SetSkills(skills ...string) Dimensions {
	return d.Set(DimensionSkills, skills)
}

// Skills returns the skills dimension.
func (d Dimensions) Skills() []string {
	skills, _ := Lookup[[]string](d, DimensionSkills)
	return skills
}
