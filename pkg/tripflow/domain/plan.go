package domain

// IntracityHop is a short within-destination transfer linking two
// scheduled stops on one day.
type IntracityHop struct {
	Mode        string `json:"mode"`
	FromPlace   string `json:"from_place,omitempty"`
	ToPlace     string `json:"to_place,omitempty"`
	DurationMin int    `json:"duration_min,omitempty"`
}

// DayPlan is one scheduled day of the itinerary.
type DayPlan struct {
	DayNumber      int                 `json:"day_number"`
	DayDate        Date                `json:"day_date"`
	Activities     []ActivityCandidate `json:"activities,omitempty"`
	Food           []FoodCandidate     `json:"food,omitempty"`
	IntracityMoves []IntracityHop      `json:"intracity_moves,omitempty"`
	DayBudget      float64             `json:"day_budget"`
	StartTime      string              `json:"start_time,omitempty"`
	EndTime        string              `json:"end_time,omitempty"`
	Notes          string              `json:"notes,omitempty"`
}

// FinalPlan is the planner's output: either a completed day-by-day
// itinerary, or a follow-up research plan signaling that more
// candidates are needed first. A non-empty ResearchPlan is what marks
// the follow-up case; itinerary presence alone is not checked, since a
// structurally valid itinerary can coexist with a nil directive.
type FinalPlan struct {
	Days               []DayPlan           `json:"days,omitempty"`
	TotalBudget        float64             `json:"total_budget,omitempty"`
	Lodging            *LodgingCandidate   `json:"lodging,omitempty"`
	IntercityTransport *TransportCandidate `json:"intercity_transport,omitempty"`
	Currency           string              `json:"currency,omitempty"`
	Recommendations    *Recommendations    `json:"recommendations,omitempty"`
	ResearchPlan       *ResearchPlan       `json:"research_plan,omitempty"`
}

// NeedsFollowUp reports whether the planner asked for another research
// pass instead of (or before) committing to an itinerary.
func (p *FinalPlan) NeedsFollowUp() bool {
	return p != nil && !p.ResearchPlan.IsEmpty()
}
