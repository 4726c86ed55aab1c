package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagelabs/tripflow/pkg/tripflow/checkpoint"
	"github.com/voyagelabs/tripflow/pkg/tripflow/domain"
	"github.com/voyagelabs/tripflow/pkg/tripflow/workflow"
)

type generatorFunc func(ctx context.Context, prompt string, out any) error

func (f generatorFunc) Generate(ctx context.Context, prompt string, out any) error {
	return f(ctx, prompt, out)
}

type agentFunc func(ctx context.Context, brief string) (string, error)

func (f agentFunc) Research(ctx context.Context, brief string) (string, error) {
	return f(ctx, brief)
}

func fakeGenerator() generatorFunc {
	return func(ctx context.Context, prompt string, out any) error {
		switch {
		case strings.Contains(prompt, "budget breakdown"):
			return json.Unmarshal([]byte(`{"budget_level": "$$", "currency": "EUR",
				"lodging": 900, "food": 400, "activities": 250,
				"intercity_transport": 300, "local_transport": 50, "other": 100,
				"budget_per_day": 400}`), out)
		case strings.Contains(prompt, "candidate counts"):
			return json.Unmarshal([]byte(`{
				"lodging_candidates": {"name": "lodging", "candidates_number": 2},
				"food_candidates": {"name": "food", "candidates_number": 2}
			}`), out)
		case strings.Contains(prompt, "day-by-day itinerary"):
			return json.Unmarshal([]byte(`{
				"days": [{"day_number": 1, "day_date": "2026-09-10", "day_budget": 400}],
				"total_budget": 2000, "currency": "EUR"}`), out)
		default:
			return fmt.Errorf("unexpected prompt: %.60s", prompt)
		}
	}
}

func fakeAgent(payload string) agentFunc {
	return func(ctx context.Context, brief string) (string, error) {
		return payload, nil
	}
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	compiled, err := workflow.BuildGraph(workflow.BuildOptions{
		Generator: fakeGenerator(),
		Agents: workflow.Agents{
			Lodging: fakeAgent(`{"lodging": [
				{"id": "h1", "name": "Grand Hotel", "evidence_score": 0.9},
				{"id": "h2", "name": "Hostel One", "evidence_score": 0.7}
			]}`),
			Activities:         fakeAgent(`{"activities": []}`),
			Food:               fakeAgent(`{"food": [{"id": "f1", "name": "Tasca", "evidence_score": 0.8}]}`),
			IntercityTransport: fakeAgent(`{"transport": []}`),
			Recommendations:    fakeAgent(`{"safety_level": "low risk"}`),
		},
	})
	require.NoError(t, err)

	svc, err := workflow.NewService(workflow.Config{
		Graph: compiled,
		Store: checkpoint.NewMemoryStore(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	return New(svc, ":0", zerolog.Nop()).Handler()
}

const testTripJSON = `{"trip": {
	"travellers": [
		{"name": "Alex", "date_of_birth": "1990-05-01"},
		{"name": "Sam", "date_of_birth": "1992-08-21"}
	],
	"budget": 2000,
	"currency": "EUR",
	"destination": "Lisbon",
	"destination_country": "Portugal",
	"date_from": "2026-09-10",
	"date_to": "2026-09-14",
	"group_type": "couple",
	"current_location": "Berlin"
}}`

func postJSON(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, planningResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp planningResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

// TestPlanEndpoint tests a full plan request up to the review
// interrupt.
func TestPlanEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec, resp := postJSON(t, h, "/plan", testTripJSON)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workflow.StatusInterrupt, resp.Status)
	assert.True(t, strings.HasPrefix(resp.Token, "trip_"))
	assert.Equal(t, 2, resp.Candidates[domain.CategoryLodging])
	assert.Equal(t, 1, resp.Candidates[domain.CategoryFood])
	assert.Equal(t, 0, resp.Candidates[domain.CategoryActivities])
	require.NotNil(t, resp.Interrupt)
	assert.NotEmpty(t, resp.Messages)
}

// TestPlanEndpoint_InvalidTrip tests the 400 mapping for validation
// failures.
func TestPlanEndpoint_InvalidTrip(t *testing.T) {
	h := newTestHandler(t)

	rec, _ := postJSON(t, h, "/plan", `{"trip": {"destination": ""}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = postJSON(t, h, "/plan", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestFinalizeEndpoint tests driving a session to completion.
func TestFinalizeEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec, started := postJSON(t, h, "/plan", testTripJSON)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := postJSON(t, h, "/finalize/"+started.Token,
		`{"selections": {"lodging": 1, "food": [0]}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workflow.StatusComplete, resp.Status)
	require.NotNil(t, resp.FinalPlan)
	assert.Len(t, resp.FinalPlan.Days, 1)
	assert.Equal(t, 1, resp.Candidates[domain.CategoryLodging])
}

// TestFinalizeEndpoint_Errors tests the error status mapping.
func TestFinalizeEndpoint_Errors(t *testing.T) {
	h := newTestHandler(t)

	rec, _ := postJSON(t, h, "/finalize/trip_ghost", `{"selections": {}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, started := postJSON(t, h, "/plan", testTripJSON)
	require.Equal(t, http.StatusOK, rec.Code)

	// Out-of-range selection index.
	rec, _ = postJSON(t, h, "/finalize/"+started.Token, `{"selections": {"lodging": 9}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No stored candidates for activities in this run.
	rec, _ = postJSON(t, h, "/finalize/"+started.Token, `{"selections": {"activities": [0]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Valid finalize, then a second resume against the drained session.
	rec, _ = postJSON(t, h, "/finalize/"+started.Token, `{"selections": {}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = postJSON(t, h, "/finalize/"+started.Token, `{"selections": {}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestResearchEndpoint tests requesting a follow-up research pass.
func TestResearchEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec, started := postJSON(t, h, "/plan", testTripJSON)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := postJSON(t, h, "/research/"+started.Token, `{"research_plan": {
		"food_candidates": {"name": "food", "description": "cheap eats", "candidates_number": 1}
	}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workflow.StatusInterrupt, resp.Status)

	// An empty plan is a caller error.
	rec, _ = postJSON(t, h, "/research/"+started.Token, `{"research_plan": {}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestStatusEndpoint tests the read-only view.
func TestStatusEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec, started := postJSON(t, h, "/plan", testTripJSON)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/status/"+started.Token, nil)
	out := httptest.NewRecorder()
	h.ServeHTTP(out, req)

	require.Equal(t, http.StatusOK, out.Code)
	var resp planningResponse
	require.NoError(t, json.Unmarshal(out.Body.Bytes(), &resp))
	assert.Equal(t, workflow.StatusInterrupt, resp.Status)

	req = httptest.NewRequest(http.MethodGet, "/status/trip_ghost", nil)
	out = httptest.NewRecorder()
	h.ServeHTTP(out, req)
	assert.Equal(t, http.StatusNotFound, out.Code)
}

// TestHealthz tests the liveness endpoint.
func TestHealthz(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
