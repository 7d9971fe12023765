package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplicationStatus is the lifecycle state of a loan application record.
type ApplicationStatus string

const (
	// StatusPending marks a draft record that has not yet been decided.
	StatusPending ApplicationStatus = "Pending"
	// StatusApproved marks a record whose application was approved.
	StatusApproved ApplicationStatus = "Approved"
	// StatusRejected marks a record whose application was rejected.
	StatusRejected ApplicationStatus = "Rejected"
)

// Terminal reports whether the status is a final decision.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// LoanTypePersonal is the only loan product the conversational flow offers.
const LoanTypePersonal = "Personal"

// ApplicationRecord is the durable representation of a loan application.
// A record is created Pending with zero-valued loan fields when a dialogue
// session starts, and is mutated exactly once to a terminal status when
// the session reaches its decision.
type ApplicationRecord struct {
	ID           string            `json:"id"`
	ApplicantID  string            `json:"applicant_id"`
	Type         string            `json:"type"`
	Amount       int64             `json:"amount"`
	TenureMonths int               `json:"tenure_months"`
	InterestRate decimal.Decimal   `json:"interest_rate"`
	Status       ApplicationStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
