package dialogue

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/loangenie/loangenie/internal/domain"
	"github.com/loangenie/loangenie/internal/format"
	"github.com/loangenie/loangenie/internal/offer"
)

// Quick-reply actions surfaced on terminal messages. The hosting surface
// interprets them; the engine only names them.
const (
	ActionDownloadLetter      = "Download Approval Letter"
	ActionStartNewApplication = "Start New Application"
)

var (
	amountPattern      = regexp.MustCompile(`[\d,]+`)
	integerPattern     = regexp.MustCompile(`\d+`)
	affirmativePattern = regexp.MustCompile(`(?i)^(y|yes|ha)`)
)

// applyTurn advances the session's state machine with one user turn.
// Called with the manager lock held, from the delayed turn callback.
func (m *Manager) applyTurn(s *session, input string) {
	switch s.stage {
	case StageStart:
		amount, ok := parseAmount(input)
		if !ok {
			m.append(s, systemMessage("Please enter a valid loan amount. Our minimum loan amount is 50,000 and the maximum is 1 crore."))
			return
		}
		s.draft.Amount = amount
		s.stage = StageGetTenure
		m.append(s, systemMessage("Great! Now, what is the desired tenure in months?"))

	case StageGetTenure:
		tenure, ok := parseTenure(input)
		if !ok {
			m.append(s, systemMessage("Please enter a valid tenure in months."))
			return
		}
		s.draft.TenureMonths = tenure
		s.stage = StageGenerateOffers
		m.enterGenerateOffers(s)

	case StageOfferChoice:
		choice, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil || choice < 1 || choice > len(s.offers) {
			m.append(s, systemMessage("Invalid choice. Please type '1', '2', or '3'."))
			return
		}
		selected := s.offers[choice-1]
		s.draft.Amount = selected.Amount
		s.draft.NegotiatedRate = selected.Rate
		s.offers = nil
		s.stage = StageGetPurpose
		m.append(s, systemMessage(fmt.Sprintf(
			"You've selected a loan of %s at %s%%. Now, what is the purpose of this loan? (e.g., Education, Wedding, Business, Other)",
			format.Currency(selected.Amount), selected.Rate.StringFixed(2))))

	case StageGetPurpose:
		s.draft.Purpose = input
		s.stage = StageReviewingDetails
		m.enterReview(s)

	case StageConfirmDetails:
		if affirmativePattern.MatchString(strings.TrimSpace(input)) {
			m.append(s, systemMessage("Thank you for confirming. Processing your loan application..."))
			s.stage = StageProcessing
			m.scheduleDecision(s)
			return
		}
		// Anything but an affirmative abandons this application entirely:
		// the old record stays Pending forever and a fresh one is created.
		m.resetLocked(s)

	default:
		// Unreachable with the Stage enum; kept as a documented fallback.
		slog.Error("Unrecognized dialogue stage, resetting to start",
			"session_id", s.id, "stage", int(s.stage))
		m.append(s, systemMessage("Sorry, I didn't understand that. Let's start over. What is your desired loan amount?"))
		s.stage = StageStart
	}
}

// enterGenerateOffers is the transient offer-computation stage. It runs
// synchronously once tenure is captured and never consumes a user turn.
func (m *Manager) enterGenerateOffers(s *session) {
	s.offers = offer.Generate(s.draft)

	var b strings.Builder
	b.WriteString("Great! Based on your requested amount and tenure, here are a few options for you:\n")
	for i, o := range s.offers {
		fmt.Fprintf(&b, "%d. %s at %s%% p.a.\n", i+1, format.Currency(o.Amount), o.Rate.StringFixed(2))
	}
	b.WriteString("Please type '1', '2', or '3' to choose an option.")

	s.stage = StageOfferChoice

	msg := systemMessage(b.String())
	msg.Options = []string{"1", "2", "3"}
	m.append(s, msg)
}

// enterReview is the transient summary stage between purpose capture and
// confirmation.
func (m *Manager) enterReview(s *session) {
	text := fmt.Sprintf(
		"Thank you. Please review your loan details:\nLoan Amount: %s\nTenure: %d months\nPurpose: %s\nInterest Rate: %s%% p.a.\nIs this correct? (yes/no)",
		format.Currency(s.draft.Amount), s.draft.TenureMonths, s.draft.Purpose,
		s.draft.NegotiatedRate.StringFixed(2))

	s.stage = StageConfirmDetails

	msg := systemMessage(text)
	msg.Options = []string{"yes", "no"}
	m.append(s, msg)
}

// approvalMessages returns the terminal transcript entries for an approval.
func approvalMessages() []domain.Message {
	congrats := systemMessage("Congratulations! Your loan has been approved.")
	followUp := systemMessage("You can download the loan approval letter below.")
	followUp.Options = []string{ActionDownloadLetter, ActionStartNewApplication}
	return []domain.Message{congrats, followUp}
}

// rejectionMessages returns the terminal transcript entries for a rejection.
func rejectionMessages() []domain.Message {
	regret := systemMessage("We regret to inform you that your loan application has been rejected. This could be due to an unusually high or low loan amount requested for the selected tenure, which does not meet our lending criteria.")
	followUp := systemMessage("Would you like to start a new application?")
	followUp.Options = []string{ActionStartNewApplication}
	return []domain.Message{regret, followUp}
}

// parseAmount extracts the first number-like token (digits, optionally
// comma-grouped) and validates it against the loan amount bounds.
func parseAmount(input string) (int64, bool) {
	token := amountPattern.FindString(input)
	if token == "" {
		return 0, false
	}
	amount, err := strconv.ParseInt(strings.ReplaceAll(token, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	if amount < domain.MinLoanAmount || amount > domain.MaxLoanAmount {
		return 0, false
	}
	return amount, true
}

// parseTenure extracts the first integer token; valid iff positive.
func parseTenure(input string) (int, bool) {
	token := integerPattern.FindString(input)
	if token == "" {
		return 0, false
	}
	tenure, err := strconv.Atoi(token)
	if err != nil || tenure <= 0 {
		return 0, false
	}
	return tenure, true
}
