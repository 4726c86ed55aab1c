package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrip(t *testing.T) TripContext {
	t.Helper()

	dob, err := ParseDate("1990-05-01")
	require.NoError(t, err)
	from, err := ParseDate("2026-09-10")
	require.NoError(t, err)
	to, err := ParseDate("2026-09-14")
	require.NoError(t, err)

	return TripContext{
		Travellers: []Traveller{
			{Name: "Alex", DateOfBirth: dob},
		},
		Budget:             2000,
		Currency:           "EUR",
		Destination:        "Lisbon",
		DestinationCountry: "Portugal",
		DateFrom:           from,
		DateTo:             to,
		GroupType:          GroupSolo,
		CurrentLocation:    "Berlin",
	}
}

// TestStateMerge_BranchesAccumulate tests the fan-out merge: each
// branch touches its own field and all results survive.
func TestStateMerge_BranchesAccumulate(t *testing.T) {
	base := NewState(testTrip(t))
	base = base.AppendMessage(RoleAssistant, "planner", "plan ready")

	lodgingBranch := base.Clone("b1")
	lodgingBranch.Lodging = &LodgingOutput{Lodging: []LodgingCandidate{
		{Candidate: Candidate{ID: "h1", Name: "Hotel"}},
	}}
	lodgingBranch = lodgingBranch.AppendMessage(RoleAssistant, "lodging", "found 1")

	foodBranch := base.Clone("b2")
	foodBranch.Food = &FoodOutput{Food: []FoodCandidate{
		{Candidate: Candidate{ID: "f1", Name: "Tasca"}},
	}}
	foodBranch = foodBranch.AppendMessage(RoleAssistant, "food", "found 1")

	merged := base.Merge(map[string]State{
		"b1": lodgingBranch,
		"b2": foodBranch,
	})

	require.NotNil(t, merged.Lodging)
	require.NotNil(t, merged.Food)
	assert.Equal(t, "h1", merged.Lodging.Lodging[0].ID)
	assert.Equal(t, "f1", merged.Food.Food[0].ID)

	// Pre-fork message plus one from each branch.
	require.Len(t, merged.Messages, 3)
	assert.Equal(t, "plan ready", merged.Messages[0].Content)
}

// TestStateMerge_UntouchedFieldsSkipped tests that a branch sharing the
// pre-fork pointer does not re-merge that field.
func TestStateMerge_UntouchedFieldsSkipped(t *testing.T) {
	base := NewState(testTrip(t))
	base.Lodging = &LodgingOutput{Lodging: []LodgingCandidate{
		{Candidate: Candidate{Name: "Existing"}},
	}}

	// Branch does not touch lodging; re-merging an ID-less list onto
	// itself would double it under the append rule.
	branch := base.Clone("b1")
	branch.DestinationCoordinates = "38.72,-9.14"

	merged := base.Merge(map[string]State{"b1": branch})

	assert.Len(t, merged.Lodging.Lodging, 1)
	assert.Equal(t, "38.72,-9.14", merged.DestinationCoordinates)
}

// TestStateMerge_DeterministicOrder tests sorted branch application.
func TestStateMerge_DeterministicOrder(t *testing.T) {
	base := NewState(testTrip(t))

	mkBranch := func(id string) State {
		b := base.Clone(id)
		b.Lodging = &LodgingOutput{Lodging: []LodgingCandidate{
			{Candidate: Candidate{ID: id, Name: "hotel-" + id}},
		}}
		return b
	}

	merged := base.Merge(map[string]State{
		"z": mkBranch("z"),
		"a": mkBranch("a"),
		"m": mkBranch("m"),
	})

	ids := make([]string, len(merged.Lodging.Lodging))
	for i, c := range merged.Lodging.Lodging {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"a", "m", "z"}, ids)
}

// TestStateClone_MessageIsolation tests that appending to a clone never
// leaks into the original's message log.
func TestStateClone_MessageIsolation(t *testing.T) {
	base := NewState(testTrip(t))
	base = base.AppendMessage(RoleAssistant, "a", "one")

	clone := base.Clone("b1")
	clone = clone.AppendMessage(RoleAssistant, "b", "two")

	other := base.Clone("b2")
	other = other.AppendMessage(RoleAssistant, "c", "three")

	assert.Len(t, base.Messages, 1)
	assert.Equal(t, "two", clone.Messages[1].Content)
	assert.Equal(t, "three", other.Messages[1].Content)
}

// TestStateCandidateCount tests the per-category accessor.
func TestStateCandidateCount(t *testing.T) {
	s := NewState(testTrip(t))
	assert.Equal(t, 0, s.CandidateCount(CategoryLodging))

	s.Activities = &ActivitiesOutput{Activities: []ActivityCandidate{
		{Candidate: Candidate{Name: "x"}},
		{Candidate: Candidate{Name: "y"}},
	}}
	assert.Equal(t, 2, s.CandidateCount(CategoryActivities))
	assert.Equal(t, 0, s.CandidateCount("unknown"))
}
