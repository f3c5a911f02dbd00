package reconciliation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how scaled quantities are rounded to whole units
type RoundingMode int

const (
	// HalfEven rounds ties to the nearest even integer (2.5 -> 2, 3.5 -> 4)
	HalfEven RoundingMode = iota
	// HalfAwayFromZero rounds ties away from zero (2.5 -> 3)
	HalfAwayFromZero
)

// String method for RoundingMode enum
func (m RoundingMode) String() string {
	switch m {
	case HalfEven:
		return "half_even"
	case HalfAwayFromZero:
		return "half_away_from_zero"
	default:
		return "unknown"
	}
}

// ParseRoundingMode parses the textual form used in configuration and flags
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "half_even", "nearest-even", "bank", "":
		return HalfEven, nil
	case "half_away_from_zero", "half-up", "away":
		return HalfAwayFromZero, nil
	default:
		return HalfEven, fmt.Errorf("invalid rounding mode: %s (expected half_even or half_away_from_zero)", s)
	}
}

// Scale returns round(quantity × factor) as a whole number of units.
// The product is formed in decimal arithmetic so that ties such as
// 5 × 0.5 are detected exactly.
func (m RoundingMode) Scale(quantity, factor float64) int64 {
	product := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(factor))
	switch m {
	case HalfAwayFromZero:
		return product.Round(0).IntPart()
	default:
		return product.RoundBank(0).IntPart()
	}
}
