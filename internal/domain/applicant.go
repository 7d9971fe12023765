// Package domain contains core domain types for the Loan Genie application.
package domain

import (
	"time"
)

// Applicant represents a person negotiating loan applications with the system.
type Applicant struct {
	ApplicantID string    `json:"applicant_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GreetingName returns the name to address the applicant by, or an empty
// string when no usable name is known and a generic greeting should be used.
func (a *Applicant) GreetingName() string {
	if a == nil {
		return ""
	}
	return a.DisplayName
}
