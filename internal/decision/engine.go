// Package decision implements rule-based approval for loan applications.
package decision

// Verdict is the binary outcome of evaluating an application.
type Verdict string

const (
	// Approved means every lending rule passed.
	Approved Verdict = "Approved"
	// Rejected means a lending rule matched; there are no graded outcomes.
	Rejected Verdict = "Rejected"
)

// Repayment plausibility bounds, rupees per month.
const (
	minMonthlyRepayment = 2_000
	maxMonthlyRepayment = 500_000
)

// Decide evaluates the lending rules against the finalized amount and tenure.
// It is pure and deterministic, and independent of the interest rate. Rules
// are evaluated in order and the first matching rule rejects:
//
//  1. non-positive amount or tenure,
//  2. a small principal stretched over a long tenure,
//  3. a large principal demanded over a short tenure,
//  4. an implied monthly repayment outside plausible bounds.
//
// The rules are an illustrative deterministic heuristic, not an
// underwriting standard.
func Decide(amount int64, tenureMonths int) Verdict {
	if amount <= 0 || tenureMonths <= 0 {
		return Rejected
	}

	if amount < 100_000 && tenureMonths > 36 {
		return Rejected
	}

	if amount > 2_500_000 && tenureMonths < 12 {
		return Rejected
	}

	monthlyRepayment := float64(amount) / float64(tenureMonths)
	if monthlyRepayment < minMonthlyRepayment || monthlyRepayment > maxMonthlyRepayment {
		return Rejected
	}

	return Approved
}
