package domain

import (
	"github.com/shopspring/decimal"
)

// Loan amount bounds accepted by the conversational flow, in rupees.
const (
	MinLoanAmount int64 = 50_000
	MaxLoanAmount int64 = 10_000_000
)

// LoanDraft holds the in-progress loan parameters being negotiated within
// one dialogue session. Mutated only by the dialogue controller and reset
// to its zero value on each new conversation.
type LoanDraft struct {
	Amount         int64
	TenureMonths   int
	Purpose        string
	NegotiatedRate decimal.Decimal
}

// Offer is one immutable candidate (amount, rate) pairing presented for
// the applicant to choose among. Offers are session-scoped and discarded
// once a choice is made.
type Offer struct {
	Amount int64           `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}
