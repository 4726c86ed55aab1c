package workflow

import "github.com/voyagelabs/tripflow/pkg/tripflow/domain"

// Status classifies the outcome of a session operation.
type Status string

// Session outcome statuses.
const (
	// StatusInterrupt means the run is suspended waiting for human
	// selections.
	StatusInterrupt Status = "interrupt"

	// StatusComplete means a final plan exists with no follow-up
	// directive.
	StatusComplete Status = "complete"

	// StatusNeedsFollowUp means the planner asked for another research
	// pass before committing to an itinerary.
	StatusNeedsFollowUp Status = "needs_follow_up"

	// StatusNoPlan means the run drained without a final plan. Should
	// not occur in a correctly wired graph.
	StatusNoPlan Status = "no_plan"
)

// Result is what every session operation returns: the token to use for
// the next call, the derived status, and either the pending review
// request or the drained state.
type Result struct {
	Token     string         `json:"token"`
	Status    Status         `json:"status"`
	Interrupt *ReviewRequest `json:"interrupt,omitempty"`
	State     domain.State   `json:"state"`
}

// FinalPlan returns the completed plan, or nil when the run is not
// complete.
func (r *Result) FinalPlan() *domain.FinalPlan {
	if r == nil || r.Status != StatusComplete {
		return nil
	}
	return r.State.FinalPlan
}

// deriveStatus classifies a drained (non-suspended) state.
func deriveStatus(state domain.State) Status {
	switch {
	case state.FinalPlan == nil:
		return StatusNoPlan
	case state.FinalPlan.NeedsFollowUp():
		return StatusNeedsFollowUp
	default:
		return StatusComplete
	}
}
