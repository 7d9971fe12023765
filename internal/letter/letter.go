// Package letter renders decision letters from finalized application records.
//
// The dialogue core only exposes the terminal record and applicant identity;
// this package is the downstream consumer that turns them into a
// downloadable plain-text artifact.
package letter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loangenie/loangenie/internal/domain"
	"github.com/loangenie/loangenie/internal/format"
)

// ErrNotApproved is returned when a letter is requested for a record that
// was not approved. Rejected and Pending applications have no letter.
var ErrNotApproved = errors.New("no approval letter for this application")

const fallbackName = "Valued Customer"

// Render produces the approval letter for a finalized record. The record
// must be in Approved state. applicant may be nil or have no display name;
// the letter then addresses a generic recipient.
func Render(record *domain.ApplicationRecord, applicant *domain.Applicant) (string, error) {
	if record == nil || record.Status != domain.StatusApproved {
		return "", ErrNotApproved
	}

	name := applicant.GreetingName()
	if name == "" {
		name = fallbackName
	}

	var b strings.Builder

	b.WriteString("Loan Genie\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Reference No: %s\n", record.ID)
	fmt.Fprintf(&b, "Date: %s\n\n", record.UpdatedAt.Format("02/01/2006"))

	fmt.Fprintf(&b, "To,\n%s\n\n", name)
	b.WriteString("Subject: Your Personal Loan Application - Approval\n\n")

	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	b.WriteString("We are delighted to inform you that your personal loan application " +
		"with Loan Genie has been successfully reviewed and approved. We are " +
		"committed to helping you achieve your financial goals, and we are " +
		"excited to be a part of your journey.\n\n")

	b.WriteString("Approved Loan Details\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	fmt.Fprintf(&b, "%-20s %s\n", "Loan Amount", format.Currency(record.Amount))
	fmt.Fprintf(&b, "%-20s %d months\n", "Loan Tenure", record.TenureMonths)
	fmt.Fprintf(&b, "%-20s %s%% p.a. (Negotiated)\n", "Interest Rate", record.InterestRate.StringFixed(2))
	fmt.Fprintf(&b, "%-20s %s\n", "Processing Fee", "1% of loan amount")
	b.WriteString(strings.Repeat("-", 60) + "\n\n")

	b.WriteString("The loan amount will be disbursed to your registered bank account " +
		"within 2-3 working days. If you have any questions or require further " +
		"assistance, please do not hesitate to contact our customer support at " +
		"support@loangenie.com.\n\n")

	b.WriteString("Sincerely,\nThe Loan Genie Team\n\n")
	b.WriteString("This is a system-generated document and does not require a signature.\n")

	return b.String(), nil
}
