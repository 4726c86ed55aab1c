package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagelabs/tripflow/pkg/tripflow/checkpoint"
	"github.com/voyagelabs/tripflow/pkg/tripflow/domain"
)

func newTestService(t *testing.T, plannerReply *string, agents Agents) *Service {
	t.Helper()

	compiled, err := BuildGraph(BuildOptions{
		Generator: testGenerator(plannerReply),
		Agents:    agents,
		Geocoder:  stubGeocoder{},
	})
	require.NoError(t, err)

	svc, err := NewService(Config{
		Graph: compiled,
		Store: checkpoint.NewMemoryStore(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func intPtr(n int) *int { return &n }

// TestService_StartSuspendsForReview tests the happy path up to the
// review interrupt.
func TestService_StartSuspendsForReview(t *testing.T) {
	planner := testFinalPlanJSON
	agents, _ := testAgents()
	svc := newTestService(t, &planner, agents)

	result, err := svc.Start(context.Background(), testTrip(t))

	require.NoError(t, err)
	assert.Equal(t, StatusInterrupt, result.Status)
	assert.True(t, strings.HasPrefix(result.Token, "trip_"))

	require.NotNil(t, result.Interrupt)
	types := make([]string, len(result.Interrupt.Selections))
	for i, task := range result.Interrupt.Selections {
		types[i] = task.Type
	}
	assert.ElementsMatch(t, []string{
		domain.CategoryLodging, domain.CategoryActivities,
		domain.CategoryFood, domain.CategoryIntercityTransport,
	}, types)

	// Research results accumulated across the parallel branches.
	assert.Equal(t, 2, result.State.CandidateCount(domain.CategoryLodging))
	assert.Equal(t, 2, result.State.CandidateCount(domain.CategoryActivities))
	assert.Equal(t, 2, result.State.CandidateCount(domain.CategoryFood))
	assert.Equal(t, 1, result.State.CandidateCount(domain.CategoryIntercityTransport))
	assert.NotNil(t, result.State.Recommendations)
	assert.NotNil(t, result.State.EstimatedBudget)
	assert.Equal(t, "38.71,-9.14", result.State.DestinationCoordinates)
}

// TestService_StartRejectsInvalidTrip tests validation before any
// graph work.
func TestService_StartRejectsInvalidTrip(t *testing.T) {
	planner := testFinalPlanJSON
	agents, _ := testAgents()
	svc := newTestService(t, &planner, agents)

	trip := testTrip(t)
	trip.Destination = ""

	_, err := svc.Start(context.Background(), trip)

	assert.ErrorIs(t, err, ErrInvalidTrip)
	assert.ErrorIs(t, err, domain.ErrMissingDestination)
	assert.Equal(t, 0, svc.Sessions())
}

// TestService_FinalPlan tests resuming with selections through to the
// completed itinerary.
func TestService_FinalPlan(t *testing.T) {
	planner := testFinalPlanJSON
	agents, _ := testAgents()
	svc := newTestService(t, &planner, agents)

	started, err := svc.Start(context.Background(), testTrip(t))
	require.NoError(t, err)

	result, err := svc.FinalPlan(context.Background(), started.Token, Selections{
		Lodging:            intPtr(1),
		IntercityTransport: intPtr(0),
		Activities:         []int{0},
		Food:               []int{1},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusComplete, result.Status)
	require.NotNil(t, result.FinalPlan())
	assert.Len(t, result.FinalPlan().Days, 1)

	// Selections narrowed the stored lists via subset replacement.
	require.Equal(t, 1, result.State.CandidateCount(domain.CategoryLodging))
	assert.Equal(t, "Hostel One", result.State.Lodging.Lodging[0].Name)
	require.Equal(t, 1, result.State.CandidateCount(domain.CategoryActivities))
	assert.Equal(t, "Tram Tour", result.State.Activities.Activities[0].Name)
	require.Equal(t, 1, result.State.CandidateCount(domain.CategoryFood))
	assert.Equal(t, "Time Out Market", result.State.Food.Food[0].Name)
}

// TestService_EmptySelectionKeepsAll tests that omitting a multi-choice
// category keeps every stored candidate.
func TestService_EmptySelectionKeepsAll(t *testing.T) {
	planner := testFinalPlanJSON
	agents, _ := testAgents()
	svc := newTestService(t, &planner, agents)

	started, err := svc.Start(context.Background(), testTrip(t))
	require.NoError(t, err)

	result, err := svc.FinalPlan(context.Background(), started.Token, Selections{
		Lodging:    intPtr(0),
		Activities: []int{},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusComplete, result.Status)
	assert.Equal(t, 2, result.State.CandidateCount(domain.CategoryActivities))
	assert.Equal(t, 2, result.State.CandidateCount(domain.CategoryFood))
	assert.Equal(t, 1, result.State.CandidateCount(domain.CategoryLodging))
}

// TestService_SelectionValidation tests that bad selections fail before
// the graph is touched and leave the session resumable.
func TestService_SelectionValidation(t *testing.T) {
	planner := testFinalPlanJSON
	agents, _ := testAgents()
	svc := newTestService(t, &planner, agents)

	started, err := svc.Start(context.Background(), testTrip(t))
	require.NoError(t, err)

	_, err = svc.FinalPlan(context.Background(), started.Token, Selections{
		Lodging: intPtr(7),
	})

	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, domain.CategoryLodging, selErr.Category)
	assert.Equal(t, 7, selErr.Index)
	assert.Equal(t, 2, selErr.Length)

	// The session survives the failed resume.
	result, err := svc.FinalPlan(context.Background(), started.Token, Selections{
		Lodging: intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, result.Status)
}

// TestService_SessionLookupErrors tests token handling.
func TestService_SessionLookupErrors(t *testing.T) {
	planner := testFinalPlanJSON
	agents, _ := testAgents()
	svc := newTestService(t, &planner, agents)

	_, err := svc.FinalPlan(context.Background(), "", Selections{})
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = svc.FinalPlan(context.Background(), "trip_ghost", Selections{})
	assert.ErrorIs(t, err, ErrUnknownSession)
}

// TestService_ResumeRequiresPendingReview tests that selections against
// a drained session are rejected.
func TestService_ResumeRequiresPendingReview(t *testing.T) {
	planner := testFinalPlanJSON
	agents, _ := testAgents()
	svc := newTestService(t, &planner, agents)

	started, err := svc.Start(context.Background(), testTrip(t))
	require.NoError(t, err)

	_, err = svc.FinalPlan(context.Background(), started.Token, Selections{Lodging: intPtr(0)})
	require.NoError(t, err)

	_, err = svc.FinalPlan(context.Background(), started.Token, Selections{Lodging: intPtr(0)})
	assert.ErrorIs(t, err, ErrNotSuspended)
}

// TestService_FollowUpResearchLoop tests answering the review with a
// research plan: the named categories re-run and the session suspends
// again with fresh options.
func TestService_FollowUpResearchLoop(t *testing.T) {
	planner := testFinalPlanJSON
	agents, byName := testAgents()
	svc := newTestService(t, &planner, agents)

	started, err := svc.Start(context.Background(), testTrip(t))
	require.NoError(t, err)
	lodgingCallsBefore := byName[domain.CategoryLodging].callCount()
	foodCallsBefore := byName[domain.CategoryFood].callCount()

	// Ask for more food options only.
	byName[domain.CategoryFood].mu.Lock()
	byName[domain.CategoryFood].reply = `{"food": [
		{"id": "f3", "name": "Cervejaria Ramiro", "evidence_score": 0.95}
	]}`
	byName[domain.CategoryFood].mu.Unlock()

	result, err := svc.Resume(context.Background(), started.Token, Selections{},
		&domain.ResearchPlan{
			Food: &domain.ResearchDirective{Name: "food", Description: "seafood", Candidates: 1},
		})

	require.NoError(t, err)
	assert.Equal(t, StatusInterrupt, result.Status)
	require.NotNil(t, result.Interrupt)

	// Only the food agent ran again.
	assert.Equal(t, foodCallsBefore+1, byName[domain.CategoryFood].callCount())
	assert.Equal(t, lodgingCallsBefore, byName[domain.CategoryLodging].callCount())

	// New candidate appended to the stored food list.
	assert.Equal(t, 3, result.State.CandidateCount(domain.CategoryFood))

	// Second round of selections completes the run.
	final, err := svc.FinalPlan(context.Background(), started.Token, Selections{
		Food: []int{2},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, final.Status)
	assert.Equal(t, "Cervejaria Ramiro", final.State.Food.Food[0].Name)
}

// TestService_PlannerRequestsFollowUp tests the planner-driven
// follow-up: a completed run with a follow-up directive is re-entered
// through ExtraResearch.
func TestService_PlannerRequestsFollowUp(t *testing.T) {
	followUpPlanner := `{"research_plan": {
		"activities_candidates": {"name": "activities", "description": "rainy day options", "candidates_number": 1}
	}}`
	planner := followUpPlanner
	agents, byName := testAgents()
	svc := newTestService(t, &planner, agents)

	started, err := svc.Start(context.Background(), testTrip(t))
	require.NoError(t, err)

	drained, err := svc.FinalPlan(context.Background(), started.Token, Selections{
		Lodging: intPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusNeedsFollowUp, drained.Status)

	// Next planner call commits to an itinerary.
	planner = testFinalPlanJSON

	activityCalls := byName[domain.CategoryActivities].callCount()
	result, err := svc.ExtraResearch(context.Background(), started.Token,
		drained.State.FinalPlan.ResearchPlan)

	require.NoError(t, err)
	assert.Equal(t, StatusInterrupt, result.Status)
	assert.Equal(t, activityCalls+1, byName[domain.CategoryActivities].callCount())
}

// TestService_ExtraResearchValidation tests the empty-plan guard.
func TestService_ExtraResearchValidation(t *testing.T) {
	planner := testFinalPlanJSON
	agents, _ := testAgents()
	svc := newTestService(t, &planner, agents)

	started, err := svc.Start(context.Background(), testTrip(t))
	require.NoError(t, err)

	_, err = svc.ExtraResearch(context.Background(), started.Token, &domain.ResearchPlan{})
	assert.ErrorIs(t, err, ErrEmptyResearchPlan)

	_, err = svc.ExtraResearch(context.Background(), started.Token, nil)
	assert.ErrorIs(t, err, ErrEmptyResearchPlan)
}

// TestService_DegradedAgent tests that a failing research agent leaves
// an empty category without failing the run.
func TestService_DegradedAgent(t *testing.T) {
	planner := testFinalPlanJSON
	agents, byName := testAgents()
	byName[domain.CategoryLodging].err = errors.New("upstream timeout")
	svc := newTestService(t, &planner, agents)

	result, err := svc.Start(context.Background(), testTrip(t))

	require.NoError(t, err)
	assert.Equal(t, StatusInterrupt, result.Status)

	// Lodging degraded to empty; no lodging selection task offered.
	assert.Equal(t, 0, result.State.CandidateCount(domain.CategoryLodging))
	for _, task := range result.Interrupt.Selections {
		assert.NotEqual(t, domain.CategoryLodging, task.Type)
	}

	// Other categories are unaffected.
	assert.Equal(t, 2, result.State.CandidateCount(domain.CategoryFood))
}

// TestService_Status tests the read-only status endpoint data.
func TestService_Status(t *testing.T) {
	planner := testFinalPlanJSON
	agents, _ := testAgents()
	svc := newTestService(t, &planner, agents)

	started, err := svc.Start(context.Background(), testTrip(t))
	require.NoError(t, err)

	status, err := svc.Status(started.Token)
	require.NoError(t, err)
	assert.Equal(t, StatusInterrupt, status.Status)
	assert.NotNil(t, status.Interrupt)

	_, err = svc.FinalPlan(context.Background(), started.Token, Selections{})
	require.NoError(t, err)

	status, err = svc.Status(started.Token)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, status.Status)
	assert.Nil(t, status.Interrupt)

	_, err = svc.Status("trip_ghost")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

// TestService_Sweep tests stale session cleanup.
func TestService_Sweep(t *testing.T) {
	planner := testFinalPlanJSON
	agents, _ := testAgents()
	svc := newTestService(t, &planner, agents)

	started, err := svc.Start(context.Background(), testTrip(t))
	require.NoError(t, err)
	require.Equal(t, 1, svc.Sessions())

	// Nothing is old enough yet.
	assert.Equal(t, 0, svc.Sweep(context.Background(), time.Hour))
	assert.Equal(t, 1, svc.Sessions())

	// Everything is older than a zero max age.
	assert.Equal(t, 1, svc.Sweep(context.Background(), -time.Second))
	assert.Equal(t, 0, svc.Sessions())

	_, err = svc.Status(started.Token)
	assert.ErrorIs(t, err, ErrUnknownSession)
}
