// Package workflow wires the trip planning state machine: budget
// estimation, research-plan generation, the parallel research fan-out,
// the human review interrupt, the follow-up loop, and final itinerary
// synthesis, plus the session manager that drives runs on behalf of
// callers.
package workflow

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/voyagelabs/tripflow/pkg/tripflow/domain"
	"github.com/voyagelabs/tripflow/pkg/tripflow/graph"
	"github.com/voyagelabs/tripflow/pkg/tripflow/llm"
	"github.com/voyagelabs/tripflow/pkg/tripflow/observability"
	"github.com/voyagelabs/tripflow/pkg/tripflow/tools"
)

// Node IDs of the planning graph.
const (
	NodeBudgetEstimate          = "budget_estimate"
	NodeResearchPlan            = "research_plan"
	NodeResearchLodging         = "research_lodging"
	NodeResearchActivities      = "research_activities"
	NodeResearchFood            = "research_food"
	NodeResearchTransport       = "research_intercity_transport"
	NodeResearchRecommendations = "research_recommendations"
	NodeCombinedHumanReview     = "combined_human_review"
	NodePlanner                 = "planner"
)

// Agents bundles the per-category research agents.
type Agents struct {
	Lodging            llm.Agent
	Activities         llm.Agent
	Food               llm.Agent
	IntercityTransport llm.Agent
	Recommendations    llm.Agent
}

func jsonString(v any) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(encoded)
}

// budgetNode estimates the trip budget. A failed call is fatal to the
// run; there is no safe default budget.
func budgetNode(gen llm.Generator) graph.NodeFunc[domain.State] {
	return func(ctx graph.Context, s domain.State) (domain.State, error) {
		var estimate domain.BudgetEstimate
		if err := gen.Generate(ctx, budgetPrompt(s.Trip), &estimate); err != nil {
			return s, fmt.Errorf("estimate budget: %w", err)
		}
		s.EstimatedBudget = &estimate
		s = s.AppendMessage(domain.RoleAssistant, NodeBudgetEstimate,
			"Estimated budget: "+jsonString(estimate))
		return s, nil
	}
}

// researchPlanNode decides candidate counts per category and resolves
// the destination coordinates. The plan call is fatal on failure; the
// geocode is best-effort.
func researchPlanNode(gen llm.Generator, geocoder tools.Geocoder) graph.NodeFunc[domain.State] {
	return func(ctx graph.Context, s domain.State) (domain.State, error) {
		var plan domain.ResearchPlan
		if err := gen.Generate(ctx, researchPlanPrompt(s.Trip, s.EstimatedBudget), &plan); err != nil {
			return s, fmt.Errorf("research plan: %w", err)
		}
		s.ResearchPlan = &plan

		if geocoder != nil {
			place := s.Trip.Destination + ", " + s.Trip.DestinationCountry
			coords, err := geocoder.Geocode(ctx, place)
			if err != nil {
				ctx.Logger().Warn("geocode failed",
					slog.String("place", place),
					slog.String("error", err.Error()))
			} else {
				s.DestinationCoordinates = coords
			}
		}

		s = s.AppendMessage(domain.RoleAssistant, NodeResearchPlan,
			"Research plan: "+jsonString(plan))
		return s, nil
	}
}

// runResearch executes an agent brief and carves the JSON payload out
// of its reply. A nil payload with a nil error means the agent replied
// with no parseable structure; the caller falls back to the category
// default.
func runResearch(ctx graph.Context, agent llm.Agent, nodeName, brief string) (json.RawMessage, error) {
	reply, err := agent.Research(ctx, brief)
	if err != nil {
		return nil, err
	}
	payload, err := llm.ExtractJSON(reply)
	if err != nil {
		ctx.Logger().Warn("agent reply carried no JSON payload",
			slog.String("node", nodeName),
			slog.String("error", err.Error()))
		return nil, nil
	}
	return payload, nil
}

// unwrapList unwraps {key: [...]} envelopes; a bare array passes
// through unchanged.
func unwrapList(payload json.RawMessage, key string) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return payload
	}
	if inner, ok := envelope[key]; ok && inner != nil {
		return inner
	}
	return payload
}

// lodgingNode researches accommodation. No-ops when the plan carries
// no lodging directive; degrades to an empty output on agent failure.
func lodgingNode(agent llm.Agent, metrics *observability.Metrics) graph.NodeFunc[domain.State] {
	return func(ctx graph.Context, s domain.State) (domain.State, error) {
		directive := s.ResearchPlan.Directive(domain.CategoryLodging)
		if !directive.Wants() {
			return s, nil
		}

		out := &domain.LodgingOutput{Lodging: []domain.LodgingCandidate{}}
		var budget float64
		if s.EstimatedBudget != nil {
			budget = s.EstimatedBudget.Lodging
		}

		payload, err := runResearch(ctx, agent, NodeResearchLodging,
			researchBrief(domain.CategoryLodging, s, directive, budget))
		if err != nil {
			ctx.Logger().Error("lodging research failed", slog.String("error", err.Error()))
			s = s.AppendMessage(domain.RoleAssistant, NodeResearchLodging, "Research failed: "+err.Error())
			s.Lodging = domain.MergeLodging(s.Lodging, out)
			return s, nil
		}
		if payload != nil {
			items, derr := llm.DecodeList(unwrapList(payload, "lodging"),
				func(c domain.LodgingCandidate) bool { return c.Valid() }, ctx.Logger())
			if derr != nil {
				ctx.Logger().Warn("lodging payload not a list", slog.String("error", derr.Error()))
			} else {
				out.Lodging = items
			}
		}

		metrics.RecordCandidates(ctx, domain.CategoryLodging, len(out.Lodging))
		s.Lodging = domain.MergeLodging(s.Lodging, out)
		s = s.AppendMessage(domain.RoleAssistant, NodeResearchLodging,
			fmt.Sprintf("Found %d lodging options", len(out.Lodging)))
		return s, nil
	}
}

// activitiesNode researches activities.
func activitiesNode(agent llm.Agent, metrics *observability.Metrics) graph.NodeFunc[domain.State] {
	return func(ctx graph.Context, s domain.State) (domain.State, error) {
		directive := s.ResearchPlan.Directive(domain.CategoryActivities)
		if !directive.Wants() {
			return s, nil
		}

		out := &domain.ActivitiesOutput{Activities: []domain.ActivityCandidate{}}
		var budget float64
		if s.EstimatedBudget != nil {
			budget = s.EstimatedBudget.Activities
		}

		payload, err := runResearch(ctx, agent, NodeResearchActivities,
			researchBrief(domain.CategoryActivities, s, directive, budget))
		if err != nil {
			ctx.Logger().Error("activities research failed", slog.String("error", err.Error()))
			s = s.AppendMessage(domain.RoleAssistant, NodeResearchActivities, "Research failed: "+err.Error())
			s.Activities = domain.MergeActivities(s.Activities, out)
			return s, nil
		}
		if payload != nil {
			items, derr := llm.DecodeList(unwrapList(payload, "activities"),
				func(c domain.ActivityCandidate) bool { return c.Valid() }, ctx.Logger())
			if derr != nil {
				ctx.Logger().Warn("activities payload not a list", slog.String("error", derr.Error()))
			} else {
				out.Activities = items
			}
		}

		metrics.RecordCandidates(ctx, domain.CategoryActivities, len(out.Activities))
		s.Activities = domain.MergeActivities(s.Activities, out)
		s = s.AppendMessage(domain.RoleAssistant, NodeResearchActivities,
			fmt.Sprintf("Found %d activity options", len(out.Activities)))
		return s, nil
	}
}

// foodNode researches dining options.
func foodNode(agent llm.Agent, metrics *observability.Metrics) graph.NodeFunc[domain.State] {
	return func(ctx graph.Context, s domain.State) (domain.State, error) {
		directive := s.ResearchPlan.Directive(domain.CategoryFood)
		if !directive.Wants() {
			return s, nil
		}

		out := &domain.FoodOutput{Food: []domain.FoodCandidate{}}
		var budget float64
		if s.EstimatedBudget != nil {
			budget = s.EstimatedBudget.Food
		}

		payload, err := runResearch(ctx, agent, NodeResearchFood,
			researchBrief(domain.CategoryFood, s, directive, budget))
		if err != nil {
			ctx.Logger().Error("food research failed", slog.String("error", err.Error()))
			s = s.AppendMessage(domain.RoleAssistant, NodeResearchFood, "Research failed: "+err.Error())
			s.Food = domain.MergeFood(s.Food, out)
			return s, nil
		}
		if payload != nil {
			items, derr := llm.DecodeList(unwrapList(payload, "food"),
				func(c domain.FoodCandidate) bool { return c.Valid() }, ctx.Logger())
			if derr != nil {
				ctx.Logger().Warn("food payload not a list", slog.String("error", derr.Error()))
			} else {
				out.Food = items
			}
		}

		metrics.RecordCandidates(ctx, domain.CategoryFood, len(out.Food))
		s.Food = domain.MergeFood(s.Food, out)
		s = s.AppendMessage(domain.RoleAssistant, NodeResearchFood,
			fmt.Sprintf("Found %d food options", len(out.Food)))
		return s, nil
	}
}

// transportNode researches intercity transport.
func transportNode(agent llm.Agent, metrics *observability.Metrics) graph.NodeFunc[domain.State] {
	return func(ctx graph.Context, s domain.State) (domain.State, error) {
		directive := s.ResearchPlan.Directive(domain.CategoryIntercityTransport)
		if !directive.Wants() {
			return s, nil
		}

		out := &domain.TransportOutput{Transport: []domain.TransportCandidate{}}
		var budget float64
		if s.EstimatedBudget != nil {
			budget = s.EstimatedBudget.IntercityTransport
		}

		payload, err := runResearch(ctx, agent, NodeResearchTransport,
			researchBrief(domain.CategoryIntercityTransport, s, directive, budget))
		if err != nil {
			ctx.Logger().Error("transport research failed", slog.String("error", err.Error()))
			s = s.AppendMessage(domain.RoleAssistant, NodeResearchTransport, "Research failed: "+err.Error())
			s.IntercityTransport = domain.MergeTransport(s.IntercityTransport, out)
			return s, nil
		}
		if payload != nil {
			items, derr := llm.DecodeList(unwrapList(payload, "transport"),
				func(c domain.TransportCandidate) bool { return c.Valid() }, ctx.Logger())
			if derr != nil {
				ctx.Logger().Warn("transport payload not a list", slog.String("error", derr.Error()))
			} else {
				out.Transport = items
			}
		}

		metrics.RecordCandidates(ctx, domain.CategoryIntercityTransport, len(out.Transport))
		s.IntercityTransport = domain.MergeTransport(s.IntercityTransport, out)
		s = s.AppendMessage(domain.RoleAssistant, NodeResearchTransport,
			fmt.Sprintf("Found %d transport options", len(out.Transport)))
		return s, nil
	}
}

// recommendationsNode gathers destination-wide advice. It runs on
// every initial fan-out regardless of the research plan and is
// last-write-wins rather than reducer-merged.
func recommendationsNode(agent llm.Agent) graph.NodeFunc[domain.State] {
	return func(ctx graph.Context, s domain.State) (domain.State, error) {
		payload, err := runResearch(ctx, agent, NodeResearchRecommendations,
			recommendationsBrief(s.Trip))
		if err != nil {
			ctx.Logger().Error("recommendations research failed", slog.String("error", err.Error()))
			s = s.AppendMessage(domain.RoleAssistant, NodeResearchRecommendations, "Research failed: "+err.Error())
			if s.Recommendations == nil {
				s.Recommendations = &domain.Recommendations{}
			}
			return s, nil
		}

		rec := &domain.Recommendations{}
		if payload != nil {
			if derr := json.Unmarshal(payload, rec); derr != nil {
				ctx.Logger().Warn("recommendations payload undecodable", slog.String("error", derr.Error()))
				rec = &domain.Recommendations{}
			}
		}
		s.Recommendations = rec
		s = s.AppendMessage(domain.RoleAssistant, NodeResearchRecommendations,
			"Collected destination recommendations")
		return s, nil
	}
}

// plannerNode synthesizes the final itinerary. A failed call is fatal.
func plannerNode(gen llm.Generator) graph.NodeFunc[domain.State] {
	return func(ctx graph.Context, s domain.State) (domain.State, error) {
		var plan domain.FinalPlan
		if err := gen.Generate(ctx, plannerPrompt(s), &plan); err != nil {
			return s, fmt.Errorf("synthesize plan: %w", err)
		}
		s.FinalPlan = &plan
		s = s.AppendMessage(domain.RoleAssistant, NodePlanner,
			"Final plan: "+jsonString(plan))
		return s, nil
	}
}
