package workflow

import (
	"fmt"

	"github.com/voyagelabs/tripflow/pkg/tripflow/domain"
	"github.com/voyagelabs/tripflow/pkg/tripflow/graph"
)

// SelectionTask describes one category awaiting a human choice.
type SelectionTask struct {
	// Type is the category name, doubling as the resume payload key.
	Type string `json:"type"`
	// Task is a human-readable label.
	Task string `json:"task"`
	// Options are the stored candidates, serialized for display.
	Options []any `json:"options"`
}

// ReviewRequest is the interrupt payload: everything the caller needs
// to present choices to a human.
type ReviewRequest struct {
	Task         string               `json:"task"`
	Selections   []SelectionTask      `json:"selections"`
	ResearchPlan *domain.ResearchPlan `json:"research_plan,omitempty"`
}

// ReviewAnswer is the resume payload: the human's choices, and
// optionally a new research plan requesting another pass. A nil
// ResearchPlan means "no more research, proceed to the planner".
// Single-choice categories carry one candidate; multi-choice carry a
// list.
type ReviewAnswer struct {
	ResearchPlan       *domain.ResearchPlan       `json:"research_plan,omitempty"`
	Lodging            *domain.LodgingCandidate   `json:"lodging,omitempty"`
	IntercityTransport *domain.TransportCandidate `json:"intercity_transport,omitempty"`
	Activities         []domain.ActivityCandidate `json:"activities,omitempty"`
	Food               []domain.FoodCandidate     `json:"food,omitempty"`
}

func optionList[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// assembleTasks collects a selection task per category with stored
// candidates.
func assembleTasks(s domain.State) []SelectionTask {
	var tasks []SelectionTask
	if s.Lodging != nil && len(s.Lodging.Lodging) > 0 {
		tasks = append(tasks, SelectionTask{
			Type:    domain.CategoryLodging,
			Task:    "Choose a lodging option",
			Options: optionList(s.Lodging.Lodging),
		})
	}
	if s.IntercityTransport != nil && len(s.IntercityTransport.Transport) > 0 {
		tasks = append(tasks, SelectionTask{
			Type:    domain.CategoryIntercityTransport,
			Task:    "Choose an intercity transport option",
			Options: optionList(s.IntercityTransport.Transport),
		})
	}
	if s.Activities != nil && len(s.Activities.Activities) > 0 {
		tasks = append(tasks, SelectionTask{
			Type:    domain.CategoryActivities,
			Task:    "Choose activity options",
			Options: optionList(s.Activities.Activities),
		})
	}
	if s.Food != nil && len(s.Food.Food) > 0 {
		tasks = append(tasks, SelectionTask{
			Type:    domain.CategoryFood,
			Task:    "Choose food options",
			Options: optionList(s.Food.Food),
		})
	}
	return tasks
}

// reviewNode is the single suspension point of the graph.
//
// First entry: when any category has stored candidates, it suspends
// the run with a ReviewRequest; with nothing to choose it clears the
// research plan and passes through, so the router proceeds to the
// planner instead of re-entering the research nodes.
//
// Re-entry under resume: the caller's ReviewAnswer is applied through
// the category reducers. Narrowed selections replace the stored lists
// via the subset-replacement rule; the answer's research plan (or its
// absence) becomes the new plan and drives the follow-up routing.
func reviewNode() graph.NodeFunc[domain.State] {
	return func(ctx graph.Context, s domain.State) (domain.State, error) {
		tasks := assembleTasks(s)
		if len(tasks) == 0 {
			s.ResearchPlan = nil
			return s, nil
		}

		value, err := graph.Suspend(ctx, &ReviewRequest{
			Task:         "Make your selections for the following options",
			Selections:   tasks,
			ResearchPlan: s.ResearchPlan,
		})
		if err != nil {
			return s, err
		}

		answer, err := asReviewAnswer(value)
		if err != nil {
			return s, err
		}

		s.ResearchPlan = answer.ResearchPlan

		if answer.Lodging != nil {
			s.Lodging = domain.MergeLodging(s.Lodging,
				&domain.LodgingOutput{Lodging: []domain.LodgingCandidate{*answer.Lodging}})
		}
		if answer.IntercityTransport != nil {
			s.IntercityTransport = domain.MergeTransport(s.IntercityTransport,
				&domain.TransportOutput{Transport: []domain.TransportCandidate{*answer.IntercityTransport}})
		}
		if len(answer.Activities) > 0 {
			s.Activities = domain.MergeActivities(s.Activities,
				&domain.ActivitiesOutput{Activities: answer.Activities})
		}
		if len(answer.Food) > 0 {
			s.Food = domain.MergeFood(s.Food,
				&domain.FoodOutput{Food: answer.Food})
		}

		s = s.AppendMessage(domain.RoleHuman, NodeCombinedHumanReview, "Human review completed")
		return s, nil
	}
}

func asReviewAnswer(value any) (*ReviewAnswer, error) {
	switch v := value.(type) {
	case *ReviewAnswer:
		if v == nil {
			return &ReviewAnswer{}, nil
		}
		return v, nil
	case ReviewAnswer:
		return &v, nil
	case nil:
		return &ReviewAnswer{}, nil
	default:
		return nil, fmt.Errorf("unexpected resume payload type %T", value)
	}
}

// reviewRouter routes after review: to the research nodes named by the
// (possibly resume-supplied) plan for a follow-up pass, or to the
// planner when no category requests more research.
func reviewRouter() graph.RouterFunc[domain.State] {
	return func(_ graph.Context, s domain.State) []string {
		if s.ResearchPlan.IsEmpty() {
			return []string{NodePlanner}
		}
		var targets []string
		for _, category := range s.ResearchPlan.Categories() {
			targets = append(targets, nodeForCategory(category))
		}
		return targets
	}
}

func nodeForCategory(category string) string {
	switch category {
	case domain.CategoryLodging:
		return NodeResearchLodging
	case domain.CategoryActivities:
		return NodeResearchActivities
	case domain.CategoryFood:
		return NodeResearchFood
	case domain.CategoryIntercityTransport:
		return NodeResearchTransport
	}
	return NodePlanner
}
