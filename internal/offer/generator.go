// Package offer derives candidate loan offers from a negotiated draft.
package offer

import (
	"math"

	"github.com/loangenie/loangenie/internal/domain"
	"github.com/loangenie/loangenie/internal/rate"
)

// Count is the number of offers generated per offer round.
const Count = 3

// Generate returns exactly three candidate offers for the draft's requested
// amount and tenure, in presentation order:
//
//  1. the exact requested amount,
//  2. 110% of it, rounded to the nearest 1,000 and capped at the maximum loan,
//  3. 90% of it, rounded to the nearest 1,000 and floored at the minimum loan.
//
// Each offer's rate is modeled independently from the scaled principal, so
// the three offers carry genuinely different risk pricing rather than one
// shared rate. Rates are rounded to two decimals; the rounded value is the
// one adopted into the draft and persisted if the offer is chosen.
//
// Called only once tenure is known; the caller guarantees a valid draft.
func Generate(draft domain.LoanDraft) []domain.Offer {
	amount := float64(draft.Amount)
	tenure := draft.TenureMonths

	scaledUp := amount * 1.1
	scaledDown := amount * 0.9

	return []domain.Offer{
		{
			Amount: draft.Amount,
			Rate:   rate.AnnualRounded(amount, tenure),
		},
		{
			Amount: min(domain.MaxLoanAmount, roundToThousand(scaledUp)),
			Rate:   rate.AnnualRounded(scaledUp, tenure),
		},
		{
			Amount: max(domain.MinLoanAmount, roundToThousand(scaledDown)),
			Rate:   rate.AnnualRounded(scaledDown, tenure),
		},
	}
}

func roundToThousand(v float64) int64 {
	return int64(math.Round(v/1000)) * 1000
}
