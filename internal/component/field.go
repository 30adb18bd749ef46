package component

import "fmt"

// Field is the closed set of numeric component fields the mutation engine
// may address. Each field belongs to exactly one component.
type Field uint8

const (
	FieldNone Field = iota
	FieldBloodLoss
	FieldHealth
	FieldHunger
	FieldFatigue
	FieldGrowth
	FieldMoisture
	FieldDurability
	FieldFreshness

	numFields
)

// Owner names the component that carries a field.
type Owner uint8

const (
	OwnerNone Owner = iota
	OwnerVitals
	OwnerGrowth
	OwnerCondition
)

func (o Owner) String() string {
	switch o {
	case OwnerVitals:
		return "vitals"
	case OwnerGrowth:
		return "growth"
	case OwnerCondition:
		return "condition"
	}
	return "none"
}

// FieldSpec describes one addressable field.
type FieldSpec struct {
	Name  string
	Owner Owner
	Min   float64
	Max   float64
}

var fieldSpecs = [numFields]FieldSpec{
	FieldNone:       {Name: "none"},
	FieldBloodLoss:  {Name: "bloodLoss", Owner: OwnerVitals, Min: 0, Max: 100},
	FieldHealth:     {Name: "health", Owner: OwnerVitals, Min: 0, Max: 100},
	FieldHunger:     {Name: "hunger", Owner: OwnerVitals, Min: 0, Max: 100},
	FieldFatigue:    {Name: "fatigue", Owner: OwnerVitals, Min: 0, Max: 100},
	FieldGrowth:     {Name: "growth", Owner: OwnerGrowth, Min: 0, Max: 1},
	FieldMoisture:   {Name: "moisture", Owner: OwnerGrowth, Min: 0, Max: 1},
	FieldDurability: {Name: "durability", Owner: OwnerCondition, Min: 0, Max: 100},
	FieldFreshness:  {Name: "freshness", Owner: OwnerCondition, Min: 0, Max: 1},
}

// Valid reports whether f is a concrete addressable field.
func (f Field) Valid() bool { return f > FieldNone && f < numFields }

// Spec returns the field description; ok is false for invalid fields.
func (f Field) Spec() (FieldSpec, bool) {
	if !f.Valid() {
		return FieldSpec{}, false
	}
	return fieldSpecs[f], true
}

func (f Field) String() string {
	if f < numFields {
		return fieldSpecs[f].Name
	}
	return fmt.Sprintf("field(%d)", uint8(f))
}

// ParseField resolves a field by its data-table name.
func ParseField(name string) (Field, error) {
	for f := FieldNone + 1; f < numFields; f++ {
		if fieldSpecs[f].Name == name {
			return f, nil
		}
	}
	return FieldNone, fmt.Errorf("unknown field %q", name)
}
