package dialogue

// Stage identifies where a session sits in the loan-origination flow.
//
// StageGenerateOffers and StageReviewingDetails are transient computed
// stages: the controller enters and leaves them synchronously without
// consuming a user turn.
type Stage int

const (
	// StageStart awaits the desired loan amount.
	StageStart Stage = iota
	// StageGetTenure awaits the desired tenure in months.
	StageGetTenure
	// StageGenerateOffers computes the three candidate offers.
	StageGenerateOffers
	// StageOfferChoice awaits a 1-based offer index.
	StageOfferChoice
	// StageGetPurpose awaits free-text loan purpose.
	StageGetPurpose
	// StageReviewingDetails renders the review summary.
	StageReviewingDetails
	// StageConfirmDetails awaits yes/no confirmation.
	StageConfirmDetails
	// StageProcessing runs the decision engine behind the processing delay.
	StageProcessing
	// StageApproved is the terminal approval stage.
	StageApproved
	// StageRejected is the terminal rejection stage.
	StageRejected
	// StageFailed is entered when the decision cannot be recorded; the
	// session is dead and only reset or a new session moves on from it.
	StageFailed
)

var stageNames = map[Stage]string{
	StageStart:            "start",
	StageGetTenure:        "get_tenure",
	StageGenerateOffers:   "generate_offers",
	StageOfferChoice:      "handle_amount_offer_choice",
	StageGetPurpose:       "get_purpose",
	StageReviewingDetails: "reviewing_details",
	StageConfirmDetails:   "confirm_details",
	StageProcessing:       "processing",
	StageApproved:         "approved",
	StageRejected:         "rejected",
	StageFailed:           "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the stage ends the session.
func (s Stage) Terminal() bool {
	return s == StageApproved || s == StageRejected
}

// AcceptsInput reports whether a user turn may be submitted at this stage.
// Input is disabled once processing begins and stays disabled at the
// terminal and failed stages; a new session must be started instead.
func (s Stage) AcceptsInput() bool {
	return s != StageProcessing && s != StageFailed && !s.Terminal()
}
