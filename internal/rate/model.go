// Package rate implements the interest-rate model for personal loans.
package rate

import (
	"math"

	"github.com/shopspring/decimal"
)

// Rate band, annual percentage. Every modeled rate is clamped into this band.
const (
	MinAnnualRate = 6.0
	MaxAnnualRate = 18.0
)

const baseRate = 8.0

// Annual returns the modeled annual interest rate in percent for the given
// principal and tenure. Smaller principals and shorter tenures price lower.
// Defined for amount > 0 and tenureMonths > 0; the caller guarantees the domain.
func Annual(amount float64, tenureMonths int) float64 {
	logAmount := math.Log10(amount)
	rate := baseRate + (6-logAmount)*0.75 - math.Max(0, (logAmount-6)*0.5)

	if tenureMonths > 12 {
		rate += (float64(tenureMonths)/12 - 1) * 0.25
	}

	return math.Min(MaxAnnualRate, math.Max(MinAnnualRate, rate))
}

// AnnualRounded returns the modeled rate rounded to two decimal places.
// The rounded value is what is shown to the applicant, carried on offers,
// and persisted on the finalized application record.
func AnnualRounded(amount float64, tenureMonths int) decimal.Decimal {
	return decimal.NewFromFloat(Annual(amount, tenureMonths)).Round(2)
}
