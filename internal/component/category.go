package component

import (
	"fmt"
	"math/bits"
	"strings"
)

// Category is a bitmask of entity kinds used to filter spatial queries.
// A filter of 0 matches every category.
type Category uint32

const (
	CategoryAgent Category = 1 << iota
	CategoryStructure
	CategoryDeity
	CategoryFlora
	CategoryFauna
	CategoryAmbient
	CategoryItem
	CategoryResource

	// NumCategories is the number of defined category bits.
	NumCategories = iota
)

var categoryNames = [NumCategories]string{
	"agent", "structure", "deity", "flora", "fauna", "ambient", "item", "resource",
}

// ParseCategory resolves a single category name.
func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if n == name {
			return Category(1) << i, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", name)
}

// ParseCategories ORs a list of category names together.
func ParseCategories(names []string) (Category, error) {
	var c Category
	for _, n := range names {
		bit, err := ParseCategory(n)
		if err != nil {
			return 0, err
		}
		c |= bit
	}
	return c, nil
}

// Matches reports whether c passes filter.
func (c Category) Matches(filter Category) bool {
	return filter == 0 || c&filter != 0
}

// Each calls fn with the bit index of every set category.
func (c Category) Each(fn func(bit int)) {
	for v := uint32(c); v != 0; v &= v - 1 {
		fn(bits.TrailingZeros32(v))
	}
}

func (c Category) String() string {
	if c == 0 {
		return "any"
	}
	var names []string
	c.Each(func(bit int) {
		if bit < NumCategories {
			names = append(names, categoryNames[bit])
		}
	})
	return strings.Join(names, "|")
}
