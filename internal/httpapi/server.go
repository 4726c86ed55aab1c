// Package httpapi exposes the trip planning sessions over HTTP. It is
// a thin JSON layer over workflow.Service; all planning semantics live
// below it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/justinas/alice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/voyagelabs/tripflow/pkg/tripflow/domain"
	"github.com/voyagelabs/tripflow/pkg/tripflow/workflow"
)

type planRequest struct {
	Trip domain.TripContext `json:"trip"`
}

type resumeRequest struct {
	Selections   workflow.Selections  `json:"selections"`
	ResearchPlan *domain.ResearchPlan `json:"research_plan,omitempty"`
}

type researchRequest struct {
	ResearchPlan *domain.ResearchPlan `json:"research_plan"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// planningResponse is the API view of a session outcome: the token to
// use for follow-up calls, the derived status, candidate counts, the
// pending review if any, and the rendered message log.
type planningResponse struct {
	Token      string                  `json:"token"`
	Status     workflow.Status         `json:"status"`
	Candidates map[string]int          `json:"candidates"`
	Interrupt  *workflow.ReviewRequest `json:"interrupt,omitempty"`
	FinalPlan  *domain.FinalPlan       `json:"final_plan,omitempty"`
	Messages   []string                `json:"messages,omitempty"`
}

func toResponse(result *workflow.Result) planningResponse {
	candidates := make(map[string]int, len(domain.CandidateCategories))
	for _, category := range domain.CandidateCategories {
		candidates[category] = result.State.CandidateCount(category)
	}

	messages := make([]string, len(result.State.Messages))
	for i, m := range result.State.Messages {
		messages[i] = fmt.Sprintf("[%s] %s: %s", m.Role, m.Name, m.Content)
	}

	return planningResponse{
		Token:      result.Token,
		Status:     result.Status,
		Candidates: candidates,
		Interrupt:  result.Interrupt,
		FinalPlan:  result.FinalPlan(),
		Messages:   messages,
	}
}

// Server serves the planning API.
type Server struct {
	service *workflow.Service
	server  *http.Server
}

// New builds the server around a session service.
func New(service *workflow.Service, addr string, logger zerolog.Logger) *Server {
	s := &Server{service: service}

	r := chi.NewRouter()
	r.Use(logMiddleware(logger))

	r.Post("/plan", s.handlePlan)
	r.Post("/resume/{token}", s.handleResume)
	r.Post("/research/{token}", s.handleResearch)
	r.Post("/finalize/{token}", s.handleFinalize)
	r.Get("/status/{token}", s.handleStatus)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler exposes the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := unmarshalRequestBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	result, err := s.service.Start(r.Context(), req.Trip)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, toResponse(result))
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := unmarshalRequestBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	result, err := s.service.Resume(r.Context(), chi.URLParam(r, "token"), req.Selections, req.ResearchPlan)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, toResponse(result))
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := unmarshalRequestBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	result, err := s.service.ExtraResearch(r.Context(), chi.URLParam(r, "token"), req.ResearchPlan)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, toResponse(result))
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := unmarshalRequestBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to parse body")
		return
	}

	result, err := s.service.FinalPlan(r.Context(), chi.URLParam(r, "token"), req.Selections)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, toResponse(result))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Status(chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, toResponse(result))
}

// writeServiceError maps session errors onto HTTP statuses: unknown
// tokens are 404, caller mistakes are 400, everything else is a 500
// with the detail kept out of the response body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var selErr *workflow.SelectionError
	switch {
	case errors.Is(err, workflow.ErrUnknownSession):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrMissingToken),
		errors.Is(err, workflow.ErrInvalidTrip),
		errors.Is(err, workflow.ErrNotSuspended),
		errors.Is(err, workflow.ErrNoStoredOptions),
		errors.Is(err, workflow.ErrEmptyResearchPlan),
		errors.As(err, &selErr):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("planning request failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.WriteHeader(status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func logMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	c := alice.New()
	c = c.Append(hlog.NewHandler(logger))
	c = c.Append(hlog.RemoteAddrHandler("ip"))
	c = c.Append(hlog.UserAgentHandler("agent"))
	c = c.Append(hlog.RequestIDHandler("req_id", "Request-Id"))
	c = c.Append(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("verb", r.Method).
			Stringer("url", r.URL).
			Int("size", size).
			Int("status", status).
			Int64("duration", duration.Milliseconds()).
			Msg("REQ")
	}))

	return c.Then
}

func unmarshalRequestBody(req *http.Request, output any) error {
	if req.Body == nil {
		return errors.New("invalid body in request")
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if err = req.Body.Close(); err != nil {
		return err
	}
	return json.Unmarshal(body, output)
}
