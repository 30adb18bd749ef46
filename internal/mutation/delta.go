package mutation

import (
	"errors"
	"math"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
)

// Handle identifies a registered delta. Re-registering the same
// (entity, field, source) triple returns the same handle. Zero is never issued.
type Handle uint64

// Bound is an optional clamp limit. The zero Bound is unset.
type Bound struct {
	Value float64
	Set   bool
}

// Limit returns a set bound at v.
func Limit(v float64) Bound { return Bound{Value: v, Set: true} }

// Delta describes a continuous rate of change on one entity field.
type Delta struct {
	Entity        ecs.EntityID
	Field         component.Field
	RatePerMinute float64
	Min           Bound
	Max           Bound
	Source        string
	ExpiresAt     uint64 // absolute tick; 0 never expires
	StopAtBound   bool   // retire once the field saturates in the rate's direction
}

var (
	ErrUnknownField = errors.New("unknown field")
	ErrFieldAbsent  = errors.New("entity does not carry field")
	ErrBadRate      = errors.New("rate must be finite")
	ErrBadBounds    = errors.New("invalid bounds")
	ErrNoSource     = errors.New("source tag required")
	ErrDeltaLimit   = errors.New("per-entity delta limit reached")
)

func (d *Delta) validate() error {
	if !d.Field.Valid() {
		return ErrUnknownField
	}
	if math.IsNaN(d.RatePerMinute) || math.IsInf(d.RatePerMinute, 0) {
		return ErrBadRate
	}
	if d.Source == "" {
		return ErrNoSource
	}
	if (d.Min.Set && math.IsNaN(d.Min.Value)) || (d.Max.Set && math.IsNaN(d.Max.Value)) {
		return ErrBadBounds
	}
	if d.Min.Set && d.Max.Set && d.Min.Value > d.Max.Value {
		return ErrBadBounds
	}
	return nil
}

// end is the last tick at or before now that the delta accrues through.
func (d *Delta) end(now uint64) uint64 {
	if d.ExpiresAt != 0 && d.ExpiresAt < now {
		return d.ExpiresAt
	}
	return now
}

func (d *Delta) expired(now uint64) bool {
	return d.ExpiresAt != 0 && d.ExpiresAt <= now
}

// narrow tightens [lo, hi] by the delta's own bounds.
func (d *Delta) narrow(lo, hi float64) (float64, float64) {
	if d.Min.Set {
		lo = max(lo, d.Min.Value)
	}
	if d.Max.Set {
		hi = min(hi, d.Max.Value)
	}
	return lo, hi
}

// clamp applies lower then upper; when contributors disagree so that
// lo > hi, the upper bound wins.
func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
