// Package price normalizes spot prices and classifies them against channel limits.
package price

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit tags the representation of a price value.
type Unit string

const (
	// UnitCentsPerKWh is the canonical unit of channel limits.
	UnitCentsPerKWh Unit = "c/kWh"
	// UnitEuroPerMWh is the exchange unit; 10 EUR/MWh equals 1 c/kWh.
	UnitEuroPerMWh Unit = "EUR/MWh"
)

// ErrUnknownUnit is returned for unit tags with no known conversion.
var ErrUnknownUnit = errors.New("unknown price unit")

var euroPerMWhFactor = decimal.NewFromInt(10)

var unitAliases = map[string]Unit{
	"c/kwh":    UnitCentsPerKWh,
	"ct/kwh":   UnitCentsPerKWh,
	"snt/kwh":  UnitCentsPerKWh,
	"cent/kwh": UnitCentsPerKWh,
	"eur/mwh":  UnitEuroPerMWh,
	"€/mwh":    UnitEuroPerMWh,
}

// ParseUnit resolves a configured unit tag.
func ParseUnit(s string) (Unit, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if u, ok := unitAliases[key]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// Normalize expresses v, given in unit from, in c/kWh.
func Normalize(v decimal.Decimal, from Unit) (decimal.Decimal, error) {
	switch from {
	case UnitCentsPerKWh:
		return v, nil
	case UnitEuroPerMWh:
		return v.Div(euroPerMWhFactor), nil
	}
	return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnknownUnit, string(from))
}

// Convert expresses the canonical value v in unit to.
func Convert(v decimal.Decimal, to Unit) (decimal.Decimal, error) {
	switch to {
	case UnitCentsPerKWh:
		return v, nil
	case UnitEuroPerMWh:
		return v.Mul(euroPerMWhFactor), nil
	}
	return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnknownUnit, string(to))
}
