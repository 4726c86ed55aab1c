package domain

import (
	"sort"
	"time"
)

// Message is one entry in the run's conversation log. The log is
// append-only and order-preserving.
type Message struct {
	Role    string    `json:"role"`
	Name    string    `json:"name,omitempty"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Message roles.
const (
	RoleHuman     = "human"
	RoleAssistant = "assistant"
)

// NewMessage builds a timestamped log entry.
func NewMessage(role, name, content string) Message {
	return Message{Role: role, Name: name, Content: content, At: time.Now().UTC()}
}

// State is the accumulating record of one planning run. It starts
// nearly empty and each node fills in its slice of the picture. The
// four candidate-bearing fields merge through the category reducers;
// everything else is last-write-wins.
//
// State is a value type: nodes receive a copy, mutate it, and return
// it. Pointer fields are treated as immutable once set; nodes replace
// them rather than editing in place, which is what makes the
// pointer-identity checks in Merge sound.
type State struct {
	Trip TripContext `json:"trip"`

	Messages               []Message `json:"messages,omitempty"`
	DestinationCoordinates string    `json:"destination_coordinates,omitempty"`

	EstimatedBudget *BudgetEstimate `json:"estimated_budget,omitempty"`
	ResearchPlan    *ResearchPlan   `json:"research_plan,omitempty"`

	Lodging            *LodgingOutput    `json:"lodging,omitempty"`
	Activities         *ActivitiesOutput `json:"activities,omitempty"`
	Food               *FoodOutput       `json:"food,omitempty"`
	IntercityTransport *TransportOutput  `json:"intercity_transport,omitempty"`

	Recommendations *Recommendations `json:"recommendations,omitempty"`
	FinalPlan       *FinalPlan       `json:"final_plan,omitempty"`
}

// NewState creates the initial state for a trip.
func NewState(trip TripContext) State {
	return State{Trip: trip}
}

// AppendMessage returns the state with a log entry appended.
func (s State) AppendMessage(role, name, content string) State {
	s.Messages = append(s.Messages[:len(s.Messages):len(s.Messages)], NewMessage(role, name, content))
	return s
}

// Clone returns an independent copy of the state for a parallel
// research branch. Pointer fields are shared; branches write to
// distinct fields by replacing pointers, never by mutating through
// them.
func (s State) Clone(string) State {
	clone := s
	clone.Messages = s.Messages[:len(s.Messages):len(s.Messages)]
	return clone
}

// Merge folds the states produced by parallel research branches back
// into one. Branches are applied in sorted-ID order so the result is
// deterministic regardless of completion order.
//
// A branch field is merged only when its pointer differs from the
// pre-fork value; untouched fields are skipped, so a branch that only
// researched food never perturbs the lodging list. Candidate fields go
// through the category reducers, messages appended by each branch are
// concatenated, and remaining fields are adopted wholesale.
func (s State) Merge(branches map[string]State) State {
	ids := make([]string, 0, len(branches))
	for id := range branches {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	merged := s
	for _, id := range ids {
		b := branches[id]

		if b.Lodging != s.Lodging {
			merged.Lodging = MergeLodging(merged.Lodging, b.Lodging)
		}
		if b.Activities != s.Activities {
			merged.Activities = MergeActivities(merged.Activities, b.Activities)
		}
		if b.Food != s.Food {
			merged.Food = MergeFood(merged.Food, b.Food)
		}
		if b.IntercityTransport != s.IntercityTransport {
			merged.IntercityTransport = MergeTransport(merged.IntercityTransport, b.IntercityTransport)
		}

		if len(b.Messages) > len(s.Messages) {
			merged.Messages = append(merged.Messages, b.Messages[len(s.Messages):]...)
		}
		if b.DestinationCoordinates != s.DestinationCoordinates {
			merged.DestinationCoordinates = b.DestinationCoordinates
		}
		if b.EstimatedBudget != s.EstimatedBudget {
			merged.EstimatedBudget = b.EstimatedBudget
		}
		if b.ResearchPlan != s.ResearchPlan {
			merged.ResearchPlan = b.ResearchPlan
		}
		if b.Recommendations != s.Recommendations {
			merged.Recommendations = b.Recommendations
		}
		if b.FinalPlan != s.FinalPlan {
			merged.FinalPlan = b.FinalPlan
		}
	}
	return merged
}

// CandidateCount returns the stored candidate count for a category,
// for status reporting and selection validation.
func (s State) CandidateCount(category string) int {
	switch category {
	case CategoryLodging:
		if s.Lodging != nil {
			return len(s.Lodging.Lodging)
		}
	case CategoryActivities:
		if s.Activities != nil {
			return len(s.Activities.Activities)
		}
	case CategoryFood:
		if s.Food != nil {
			return len(s.Food.Food)
		}
	case CategoryIntercityTransport:
		if s.IntercityTransport != nil {
			return len(s.IntercityTransport.Transport)
		}
	}
	return 0
}
