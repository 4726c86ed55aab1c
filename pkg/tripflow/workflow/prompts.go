package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voyagelabs/tripflow/pkg/tripflow/domain"
)

// contextSummary renders the trip facts every prompt embeds.
func contextSummary(trip domain.TripContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trip: %s -> %s, %s.\n", trip.CurrentLocation, trip.Destination, trip.DestinationCountry)
	fmt.Fprintf(&b, "Group: %s, %d adults, %d children, %d infants.\n",
		trip.GroupType, trip.Adults(), trip.Children(), trip.Infants())
	fmt.Fprintf(&b, "Dates: %s to %s (%d days).\n", trip.DateFrom, trip.DateTo, trip.Days())
	fmt.Fprintf(&b, "Total budget: %.0f %s.\n", trip.Budget, trip.Currency)
	if trip.TripPurpose != "" {
		fmt.Fprintf(&b, "Purpose: %s.\n", trip.TripPurpose)
	}
	if trip.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s.\n", trip.Notes)
	}
	return b.String()
}

func budgetPrompt(trip domain.TripContext) string {
	return "Create a budget breakdown for the following trip.\n" +
		contextSummary(trip) +
		"Respond with a JSON object with keys: budget_level ($..$$$$), currency, " +
		"intercity_transport, local_transport, food, activities, lodging, other, " +
		"budget_per_day, notes. Category amounts must sum to the total budget."
}

func researchPlanPrompt(trip domain.TripContext, budget *domain.BudgetEstimate) string {
	budgetJSON := "unknown"
	if budget != nil {
		if encoded, err := json.Marshal(budget); err == nil {
			budgetJSON = string(encoded)
		}
	}
	return "Set candidate counts for travel research.\n" +
		contextSummary(trip) +
		"Budget plan: " + budgetJSON + "\n" +
		"Longer trips need more options. Families need more lodging and food " +
		"options. Couples need more activities. Use whole numbers, 0 to skip a " +
		"category.\n" +
		"Respond with a JSON object with keys lodging_candidates, " +
		"activities_candidates, food_candidates, intercity_transport_candidates, " +
		"each {name, description, candidates_number} or null."
}

// researchBrief builds the natural-language brief handed to a
// tool-using research agent.
func researchBrief(category string, s domain.State, directive *domain.ResearchDirective, categoryBudget float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a travel research assistant specializing in %s.\n", category)
	b.WriteString("Use only the provided tools. Avoid fabricating data.\n\n")
	b.WriteString(contextSummary(s.Trip))
	if s.DestinationCoordinates != "" {
		fmt.Fprintf(&b, "Destination coordinates: %s.\n", s.DestinationCoordinates)
	}
	if categoryBudget > 0 {
		fmt.Fprintf(&b, "Budget for %s: %.0f %s.\n", category, categoryBudget, s.Trip.Currency)
	}
	if directive != nil {
		if directive.Description != "" {
			fmt.Fprintf(&b, "Research focus: %s.\n", directive.Description)
		}
		if directive.Candidates > 0 {
			fmt.Fprintf(&b, "Return exactly %d options.\n", directive.Candidates)
		}
	}
	fmt.Fprintf(&b, "\nRespond with a JSON object of the form {%q: [...]} where each "+
		"item carries the tool's location_id as its id field.\n", wrapperKey(category))
	return b.String()
}

func wrapperKey(category string) string {
	if category == domain.CategoryIntercityTransport {
		return "transport"
	}
	return category
}

func recommendationsBrief(trip domain.TripContext) string {
	return "You are a travel advisor providing safety, cultural, and practical " +
		"recommendations.\nUse only facts from the provided tools.\n\n" +
		contextSummary(trip) +
		"Respond with a JSON object with keys such as safety_level, safety_notes, " +
		"travel_advisories, cultural_considerations, local_customs, " +
		"language_barriers, child_friendly_rating, weather_conditions, " +
		"seasonal_considerations, best_time_to_visit, currency_info, payment_methods."
}

func plannerPrompt(s domain.State) string {
	stateJSON, _ := json.Marshal(s)
	return "You are a trip planning assistant. Synthesize the research results " +
		"below into a detailed day-by-day itinerary.\n" +
		"Use only candidates already present in the research results; do not " +
		"invent new ones. Distribute activities and food across the trip days, " +
		"attach the chosen lodging and intercity transport, and make day budgets " +
		"sum to the total. If more candidates are needed first, respond with only " +
		"a research_plan and no days.\n\n" +
		"Research results: " + string(stateJSON) + "\n\n" +
		"Respond with a JSON object with keys: days, total_budget, lodging, " +
		"intercity_transport, currency, recommendations, research_plan."
}
