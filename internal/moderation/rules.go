package moderation

import "recompensa/internal/listing/models"

// Action is the moderation verdict recorded in the ledger.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionAdjust  Action = "ADJUST"
	ActionReject  Action = "REJECT"
)

// AdjustThreshold is the score at or above which a listing without banned
// content is held back for adjustment instead of being published.
const AdjustThreshold = 40

// Decision is the outcome of applying the rule tiers to scorer output.
// Transitions=false means the listing stays PENDING_REVIEW (the ADJUST tier);
// otherwise ToStatus is the terminal state to move to.
type Decision struct {
	Action      Action
	ToStatus    models.Status
	Transitions bool
	Score       int
	Reason      string
}

// Decide applies the decision tiers in order. Pure domain logic: no I/O, no
// side effects.
//
// Tier 1: any banned flag rejects regardless of everything else.
// Tier 2: score at or above the adjust threshold holds the listing.
// Tier 3: everything else publishes with reason "auto".
func Decide(score int, flags []Flag) Decision {
	for _, f := range flags {
		if f.Banned() {
			return Decision{
				Action:      ActionReject,
				ToStatus:    models.StatusBanned,
				Transitions: true,
				Score:       score,
				Reason:      JoinFlags(flags),
			}
		}
	}

	if score >= AdjustThreshold {
		return Decision{
			Action:      ActionAdjust,
			Transitions: false,
			Score:       score,
			Reason:      JoinFlags(flags),
		}
	}

	return Decision{
		Action:      ActionApprove,
		ToStatus:    models.StatusPublished,
		Transitions: true,
		Score:       score,
		Reason:      "auto",
	}
}
