package price

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Class is the position of a price relative to a channel's limits. The
// numeric values match the spot-hinta JustNow response body.
type Class int

const (
	// ClassBelow is price <= lower.
	ClassBelow Class = 0
	// ClassWithin is lower < price <= upper.
	ClassWithin Class = 1
	// ClassAbove is price > upper.
	ClassAbove Class = 2
)

// ErrUnexpectedClass is returned when an oracle answers outside 0-2.
var ErrUnexpectedClass = errors.New("unexpected price class")

// ParseClass validates an oracle classification.
func ParseClass(v int) (Class, error) {
	switch Class(v) {
	case ClassBelow, ClassWithin, ClassAbove:
		return Class(v), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnexpectedClass, v)
}

func (c Class) String() string {
	switch c {
	case ClassBelow:
		return "BELOW"
	case ClassWithin:
		return "WITHIN"
	case ClassAbove:
		return "ABOVE"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Classify partitions p, in c/kWh, against the half-open band (lower, upper].
func Classify(p decimal.Decimal, lower, upper int) Class {
	if p.LessThanOrEqual(decimal.NewFromInt(int64(lower))) {
		return ClassBelow
	}
	if p.GreaterThan(decimal.NewFromInt(int64(upper))) {
		return ClassAbove
	}
	return ClassWithin
}
