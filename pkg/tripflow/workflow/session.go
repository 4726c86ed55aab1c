package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voyagelabs/tripflow/pkg/tripflow/checkpoint"
	"github.com/voyagelabs/tripflow/pkg/tripflow/domain"
	"github.com/voyagelabs/tripflow/pkg/tripflow/graph"
	"github.com/voyagelabs/tripflow/pkg/tripflow/observability"
)

// Selections maps candidate categories to chosen indices into the
// session's stored candidate lists. Nil means "no selection for this
// category". For the multi-choice categories an empty non-nil list
// means "keep all stored candidates": it is treated the same as nil,
// so no narrowing happens.
type Selections struct {
	Lodging            *int  `json:"lodging,omitempty"`
	IntercityTransport *int  `json:"intercity_transport,omitempty"`
	Activities         []int `json:"activities,omitempty"`
	Food               []int `json:"food,omitempty"`
}

// session is the per-trip bookkeeping: the immutable context, the last
// drained state, and the pending review if the run is suspended.
type session struct {
	token     string
	trip      domain.TripContext
	lastState domain.State
	pending   *ReviewRequest
	updatedAt time.Time
}

// Config assembles a Service.
type Config struct {
	// Graph is the compiled planning graph, shared across sessions.
	Graph *graph.CompiledGraph[domain.State]
	// Store persists run checkpoints, keyed by session token.
	Store checkpoint.Store
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics defaults to no-op instruments.
	Metrics *observability.Metrics
	// Spans enables per-run tracing when set.
	Spans *observability.Spans
	// MaxIterations bounds one run's node executions. Zero keeps the
	// engine default.
	MaxIterations int
}

// Service owns one compiled graph and the sessions running against
// it. Sessions share nothing but the checkpoint store, which keys
// every run by its own token.
type Service struct {
	graph         *graph.CompiledGraph[domain.State]
	store         checkpoint.Store
	logger        *slog.Logger
	metrics       *observability.Metrics
	spans         *observability.Spans
	maxIterations int

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService creates a session manager.
func NewService(cfg Config) (*Service, error) {
	if cfg.Graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics()
	}
	return &Service{
		graph:         cfg.Graph,
		store:         cfg.Store,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		spans:         cfg.Spans,
		maxIterations: cfg.MaxIterations,
		sessions:      make(map[string]*session),
	}, nil
}

// Close releases the checkpoint store.
func (s *Service) Close() error {
	return s.store.Close()
}

func (s *Service) runOptions(token string) []graph.RunOption {
	opts := []graph.RunOption{
		graph.WithCheckpointing(s.store, token),
		graph.WithMetrics(s.metrics),
	}
	if s.spans != nil {
		opts = append(opts, graph.WithTracing(s.spans))
	}
	if s.maxIterations > 0 {
		opts = append(opts, graph.WithMaxIterations(s.maxIterations))
	}
	return opts
}

func (s *Service) graphContext(ctx context.Context, token string) graph.Context {
	return graph.NewContext(ctx,
		graph.WithLogger(s.logger),
		graph.WithRunID(token))
}

// Start runs the graph for a new trip from an empty state. Returns the
// session token with either a suspended review request or the drained
// result. A fatal workflow error leaves no session behind.
func (s *Service) Start(ctx context.Context, trip domain.TripContext) (*Result, error) {
	if err := trip.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTrip, err)
	}

	token := "trip_" + uuid.NewString()
	state, err := s.graph.Run(s.graphContext(ctx, token), domain.NewState(trip), s.runOptions(token)...)
	return s.recordOutcome(token, trip, state, err)
}

// Resume answers a pending review with the human's selections and an
// optional research-plan override, then continues the run.
//
// Selections are validated against the session's currently stored
// candidate lists before the graph is touched; a failed validation
// leaves the checkpoint untouched, so the same session can be resumed
// again with a corrected payload.
func (s *Service) Resume(ctx context.Context, token string, sel Selections, planOverride *domain.ResearchPlan) (*Result, error) {
	sess, err := s.lookup(token)
	if err != nil {
		return nil, err
	}
	if sess.pending == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotSuspended, token)
	}

	answer, err := buildAnswer(sess.lastState, sel, planOverride)
	if err != nil {
		return nil, err
	}

	state, err := s.graph.Resume(s.graphContext(ctx, token), s.store, token,
		graph.WithResumeValue(answer),
		graph.WithRunOptions(s.runOptions(token)...))
	return s.recordOutcome(token, sess.trip, state, err)
}

// ExtraResearch requests another research pass for the categories the
// plan names, without supplying selections. Works both on a suspended
// session (answers the pending review) and on a drained one whose
// planner asked for follow-up (replays the review node with the new
// plan injected).
func (s *Service) ExtraResearch(ctx context.Context, token string, plan *domain.ResearchPlan) (*Result, error) {
	sess, err := s.lookup(token)
	if err != nil {
		return nil, err
	}
	if plan.IsEmpty() {
		return nil, ErrEmptyResearchPlan
	}

	answer := &ReviewAnswer{ResearchPlan: plan}
	gctx := s.graphContext(ctx, token)

	var state domain.State
	if sess.pending != nil {
		state, err = s.graph.Resume(gctx, s.store, token,
			graph.WithResumeValue(answer),
			graph.WithRunOptions(s.runOptions(token)...))
	} else {
		state, err = s.graph.ResumeFrom(gctx, s.store, token, NodeCombinedHumanReview,
			graph.WithReplay(),
			graph.WithResumeValue(answer),
			graph.WithRunOptions(s.runOptions(token)...))
	}
	return s.recordOutcome(token, sess.trip, state, err)
}

// FinalPlan confirms the final selections for a suspended session and
// runs it through to the planner.
func (s *Service) FinalPlan(ctx context.Context, token string, sel Selections) (*Result, error) {
	return s.Resume(ctx, token, sel, nil)
}

// Status reports the last observed outcome for a session without
// advancing it.
func (s *Service) Status(token string) (*Result, error) {
	sess, err := s.lookup(token)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	result := &Result{Token: token, State: sess.lastState}
	if sess.pending != nil {
		result.Status = StatusInterrupt
		result.Interrupt = sess.pending
	} else {
		result.Status = deriveStatus(sess.lastState)
	}
	return result, nil
}

// Sessions returns the number of live sessions.
func (s *Service) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than maxAge along with their
// checkpoints, and returns how many were removed.
func (s *Service) Sweep(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	var expired []string
	for token, sess := range s.sessions {
		if sess.updatedAt.Before(cutoff) {
			expired = append(expired, token)
			delete(s.sessions, token)
		}
	}
	s.mu.Unlock()

	for _, token := range expired {
		if err := s.store.DeleteRun(ctx, token); err != nil {
			s.logger.Warn("failed to delete checkpoints for expired session",
				slog.String("token", token),
				slog.String("error", err.Error()))
		}
	}
	if len(expired) > 0 {
		s.logger.Info("swept expired sessions", slog.Int("count", len(expired)))
	}
	return len(expired)
}

func (s *Service) lookup(token string) (*session, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, token)
	}
	return sess, nil
}

// recordOutcome folds a run or resume outcome into the session table.
// Suspended runs record their pending review; fatal errors propagate
// without touching the stored snapshot.
func (s *Service) recordOutcome(token string, trip domain.TripContext, state domain.State, runErr error) (*Result, error) {
	var intr *graph.Interrupt
	if runErr != nil && !errors.As(runErr, &intr) {
		return nil, runErr
	}

	result := &Result{Token: token, State: state}
	var pending *ReviewRequest
	if intr != nil {
		request, ok := intr.Payload.(*ReviewRequest)
		if !ok {
			return nil, fmt.Errorf("unexpected interrupt payload type %T", intr.Payload)
		}
		pending = request
		result.Status = StatusInterrupt
		result.Interrupt = request
	} else {
		result.Status = deriveStatus(state)
	}

	s.mu.Lock()
	s.sessions[token] = &session{
		token:     token,
		trip:      trip,
		lastState: state,
		pending:   pending,
		updatedAt: time.Now(),
	}
	s.mu.Unlock()

	return result, nil
}

// buildAnswer reconciles selection indices against the stored
// candidate lists. Validation happens entirely before the graph is
// resumed.
func buildAnswer(state domain.State, sel Selections, planOverride *domain.ResearchPlan) (*ReviewAnswer, error) {
	answer := &ReviewAnswer{ResearchPlan: planOverride}

	if sel.Lodging != nil {
		if state.Lodging == nil || len(state.Lodging.Lodging) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoStoredOptions, domain.CategoryLodging)
		}
		idx := *sel.Lodging
		if idx < 0 || idx >= len(state.Lodging.Lodging) {
			return nil, &SelectionError{Category: domain.CategoryLodging, Index: idx, Length: len(state.Lodging.Lodging)}
		}
		chosen := state.Lodging.Lodging[idx]
		answer.Lodging = &chosen
	}

	if sel.IntercityTransport != nil {
		if state.IntercityTransport == nil || len(state.IntercityTransport.Transport) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoStoredOptions, domain.CategoryIntercityTransport)
		}
		idx := *sel.IntercityTransport
		if idx < 0 || idx >= len(state.IntercityTransport.Transport) {
			return nil, &SelectionError{Category: domain.CategoryIntercityTransport, Index: idx, Length: len(state.IntercityTransport.Transport)}
		}
		chosen := state.IntercityTransport.Transport[idx]
		answer.IntercityTransport = &chosen
	}

	if len(sel.Activities) > 0 {
		if state.Activities == nil || len(state.Activities.Activities) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoStoredOptions, domain.CategoryActivities)
		}
		stored := state.Activities.Activities
		for _, idx := range sel.Activities {
			if idx < 0 || idx >= len(stored) {
				return nil, &SelectionError{Category: domain.CategoryActivities, Index: idx, Length: len(stored)}
			}
			answer.Activities = append(answer.Activities, stored[idx])
		}
	}

	if len(sel.Food) > 0 {
		if state.Food == nil || len(state.Food.Food) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoStoredOptions, domain.CategoryFood)
		}
		stored := state.Food.Food
		for _, idx := range sel.Food {
			if idx < 0 || idx >= len(stored) {
				return nil, &SelectionError{Category: domain.CategoryFood, Index: idx, Length: len(stored)}
			}
			answer.Food = append(answer.Food, stored[idx])
		}
	}

	return answer, nil
}
