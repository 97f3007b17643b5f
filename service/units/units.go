// Package units converts between human-readable USDC amounts and their
// integer base-unit representation. USDC uses 6 decimal places, so one
// display unit equals 1,000,000 base units. Base units are the only form
// ever sent to the backend or embedded in a transaction.
package units

import (
	"fmt"
	"math"
	"strconv"
)

// Decimals is the number of decimal places in the token's display unit.
const Decimals = 6

// PerUnit is the number of base units in one display unit.
const PerUnit = 1_000_000

// ToBaseUnits converts a display amount to base units, truncating any
// precision beyond 6 decimal places. Truncation is intentional: excess
// precision is silently dropped, never rejected and never rounded up.
func ToBaseUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("amount is not a finite number")
	}
	if amount < 0 {
		return 0, fmt.Errorf("amount cannot be negative: %v", amount)
	}
	scaled := amount * PerUnit
	// The product of a divide-then-multiply round trip can land a few ulps
	// below an exact integer; snapping keeps ToBaseUnits(ToDecimal(u)) == u
	// without disturbing genuine sub-base-unit truncation.
	nearest := math.Round(scaled)
	tolerance := math.Max(1e-9, scaled*4e-16)
	if math.Abs(scaled-nearest) <= tolerance {
		return int64(nearest), nil
	}
	return int64(math.Floor(scaled)), nil
}

// ToDecimal converts base units to a display amount. No rounding is
// applied; callers format for display themselves.
func ToDecimal(units int64) float64 {
	return float64(units) / PerUnit
}

// FormatAmount renders base units as a display string with 2 decimal
// places, the form used in history entries and CLI output.
func FormatAmount(units int64) string {
	return strconv.FormatFloat(ToDecimal(units), 'f', 2, 64)
}
