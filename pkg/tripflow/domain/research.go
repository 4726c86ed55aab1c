package domain

// ResearchDirective instructs one research category: what to look for
// and how many candidates to gather. A nil or zero-count directive
// means the category is skipped.
type ResearchDirective struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Candidates  int    `json:"candidates_number,omitempty"`
}

// Wants reports whether a directive actually requests research.
func (d *ResearchDirective) Wants() bool {
	return d != nil && d.Candidates > 0
}

// Research category names. These double as selection-task types in the
// review payload and as keys in resume payloads.
const (
	CategoryLodging            = "lodging"
	CategoryActivities         = "activities"
	CategoryFood               = "food"
	CategoryIntercityTransport = "intercity_transport"
	CategoryRecommendations    = "recommendations"
)

// CandidateCategories lists the categories whose results await a human
// selection, in presentation order.
var CandidateCategories = []string{
	CategoryLodging,
	CategoryActivities,
	CategoryFood,
	CategoryIntercityTransport,
}

// ResearchPlan maps each candidate-bearing category to an optional
// directive. Presence of a directive gates that category's research
// node.
type ResearchPlan struct {
	Lodging            *ResearchDirective `json:"lodging_candidates,omitempty"`
	Activities         *ResearchDirective `json:"activities_candidates,omitempty"`
	Food               *ResearchDirective `json:"food_candidates,omitempty"`
	IntercityTransport *ResearchDirective `json:"intercity_transport_candidates,omitempty"`
}

// IsEmpty reports whether no category requests research.
func (p *ResearchPlan) IsEmpty() bool {
	return p == nil || (!p.Lodging.Wants() && !p.Activities.Wants() &&
		!p.Food.Wants() && !p.IntercityTransport.Wants())
}

// Categories returns the names of categories with an active directive,
// in a fixed order.
func (p *ResearchPlan) Categories() []string {
	if p == nil {
		return nil
	}
	var out []string
	if p.Lodging.Wants() {
		out = append(out, CategoryLodging)
	}
	if p.Activities.Wants() {
		out = append(out, CategoryActivities)
	}
	if p.Food.Wants() {
		out = append(out, CategoryFood)
	}
	if p.IntercityTransport.Wants() {
		out = append(out, CategoryIntercityTransport)
	}
	return out
}

// Directive returns the directive for a named category, or nil.
func (p *ResearchPlan) Directive(category string) *ResearchDirective {
	if p == nil {
		return nil
	}
	switch category {
	case CategoryLodging:
		return p.Lodging
	case CategoryActivities:
		return p.Activities
	case CategoryFood:
		return p.Food
	case CategoryIntercityTransport:
		return p.IntercityTransport
	}
	return nil
}
