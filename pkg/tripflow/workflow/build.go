package workflow

import (
	"fmt"

	"github.com/voyagelabs/tripflow/pkg/tripflow/domain"
	"github.com/voyagelabs/tripflow/pkg/tripflow/graph"
	"github.com/voyagelabs/tripflow/pkg/tripflow/llm"
	"github.com/voyagelabs/tripflow/pkg/tripflow/observability"
	"github.com/voyagelabs/tripflow/pkg/tripflow/tools"
)

// BuildOptions carries the collaborators the graph nodes depend on.
type BuildOptions struct {
	// Generator backs the structured-output calls (budget, plan,
	// planner). Required.
	Generator llm.Generator
	// Agents are the per-category research agents. Required.
	Agents Agents
	// Geocoder resolves destination coordinates. Optional; nil skips
	// geocoding.
	Geocoder tools.Geocoder
	// Metrics records candidate counts per research pass. Optional.
	Metrics *observability.Metrics
}

// BuildGraph wires the planning state machine:
//
//	budget_estimate -> research_plan -> {five research nodes} ->
//	combined_human_review -> (subset of research nodes | planner) -> End
//
// The research fan-out runs the five category nodes in parallel; each
// no-ops internally when the plan carries no directive for it, so an
// absent category never blocks the review convergence. The review
// router re-enters only the categories a resume-supplied plan names.
func BuildGraph(opts BuildOptions) (*graph.CompiledGraph[domain.State], error) {
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NoopMetrics()
	}

	g := graph.New[domain.State]()

	g.AddNode(NodeBudgetEstimate, budgetNode(opts.Generator))
	g.AddNode(NodeResearchPlan, researchPlanNode(opts.Generator, opts.Geocoder))
	g.AddNode(NodeResearchLodging, lodgingNode(opts.Agents.Lodging, opts.Metrics))
	g.AddNode(NodeResearchActivities, activitiesNode(opts.Agents.Activities, opts.Metrics))
	g.AddNode(NodeResearchFood, foodNode(opts.Agents.Food, opts.Metrics))
	g.AddNode(NodeResearchTransport, transportNode(opts.Agents.IntercityTransport, opts.Metrics))
	g.AddNode(NodeResearchRecommendations, recommendationsNode(opts.Agents.Recommendations))
	g.AddNode(NodeCombinedHumanReview, reviewNode())
	g.AddNode(NodePlanner, plannerNode(opts.Generator))

	g.SetEntry(NodeBudgetEstimate)
	g.AddEdge(NodeBudgetEstimate, NodeResearchPlan)

	// Parallel research fan-out, converging on the review node.
	for _, node := range []string{
		NodeResearchLodging,
		NodeResearchActivities,
		NodeResearchFood,
		NodeResearchTransport,
		NodeResearchRecommendations,
	} {
		g.AddEdge(NodeResearchPlan, node)
		g.AddEdge(node, NodeCombinedHumanReview)
	}

	g.AddRouter(NodeCombinedHumanReview, reviewRouter())
	g.AddEdge(NodePlanner, graph.End)

	return g.Compile()
}
