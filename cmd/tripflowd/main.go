// tripflowd serves the trip planning API: it wires the LLM client, the
// research agents and their tools, the checkpoint store, and the HTTP
// layer, then runs until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	lctools "github.com/tmc/langchaingo/tools"

	"github.com/voyagelabs/tripflow/internal/httpapi"
	"github.com/voyagelabs/tripflow/pkg/tripflow/checkpoint"
	"github.com/voyagelabs/tripflow/pkg/tripflow/config"
	"github.com/voyagelabs/tripflow/pkg/tripflow/domain"
	"github.com/voyagelabs/tripflow/pkg/tripflow/llm"
	"github.com/voyagelabs/tripflow/pkg/tripflow/observability"
	"github.com/voyagelabs/tripflow/pkg/tripflow/tools"
	"github.com/voyagelabs/tripflow/pkg/tripflow/workflow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tripflowd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// Best effort; a missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger := slog.Default()
	httpLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	metrics := observability.NewMetrics()
	spans := observability.NewSpans()

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}

	model, err := openai.New(
		openai.WithToken(cfg.LLM.Token),
		openai.WithModel(cfg.LLM.Model),
	)
	if err != nil {
		return fmt.Errorf("init openai model: %w", err)
	}
	generator := llm.NewClient(model, cfg.LLM.Model,
		llm.WithLogger(logger),
		llm.WithMetrics(metrics))

	agents, err := buildAgents(model, cfg, metrics)
	if err != nil {
		return err
	}

	compiled, err := workflow.BuildGraph(workflow.BuildOptions{
		Generator: generator,
		Agents:    agents,
		Geocoder:  tools.NewNominatimClient(cfg.Tools.GeocodeBaseURL, cfg.Tools.UserAgent),
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	service, err := workflow.NewService(workflow.Config{
		Graph:         compiled,
		Store:         store,
		Logger:        logger,
		Metrics:       metrics,
		Spans:         spans,
		MaxIterations: cfg.Session.MaxIterations,
	})
	if err != nil {
		return err
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepLoop(ctx, service, cfg.Session, logger)

	server := httpapi.New(service, cfg.Listen, httpLogger)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("tripflowd listening", slog.String("addr", cfg.Listen))
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

func openStore(cfg config.StoreSettings) (checkpoint.Store, error) {
	switch cfg.Kind {
	case "memory":
		return checkpoint.NewMemoryStore(), nil
	case "sqlite":
		return checkpoint.NewSQLiteStore(cfg.Path)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return checkpoint.NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

// buildAgents wires one tool-using agent per research category. The
// toolsets overlap: every agent can search the web, and the
// experience-driven categories can also read community posts.
func buildAgents(model llms.Model, cfg config.Settings, metrics *observability.Metrics) (workflow.Agents, error) {
	places := tools.NewPlacesClient(cfg.Tools.PlacesAPIKey, cfg.Tools.PlacesBaseURL)
	flights := tools.NewFlightsClient(cfg.Tools.FlightsClientID, cfg.Tools.FlightsClientSecret, cfg.Tools.FlightsBaseURL)
	web := tools.NewWebSearchTool(tools.NewWebSearchClient(cfg.Tools.WebSearchAPIKey, cfg.Tools.WebSearchBaseURL))
	community := tools.NewCommunityTool(tools.NewForumClient(cfg.Tools.CommunityBaseURL, cfg.Tools.UserAgent))

	toolsets := map[string][]lctools.Tool{
		domain.CategoryLodging: {
			tools.NewPlacesTool(places, "hotels"), web,
		},
		domain.CategoryActivities: {
			tools.NewPlacesTool(places, "attractions"), web, community,
		},
		domain.CategoryFood: {
			tools.NewPlacesTool(places, "restaurants"), web, community,
		},
		domain.CategoryIntercityTransport: {
			tools.NewFlightsTool(flights), web,
		},
		domain.CategoryRecommendations: {
			web, community,
		},
	}
	if cfg.Tools.DocsBaseURL != "" {
		docs := tools.NewDocumentTool(tools.NewDocsClient(cfg.Tools.DocsBaseURL))
		toolsets[domain.CategoryRecommendations] = append(toolsets[domain.CategoryRecommendations], docs)
	}

	built := make(map[string]*llm.ToolAgent, len(toolsets))
	for category, toolset := range toolsets {
		agent, err := llm.NewToolAgent(model, category, toolset, cfg.LLM.AgentMaxIterations,
			llm.WithAgentMetrics(metrics))
		if err != nil {
			return workflow.Agents{}, err
		}
		built[category] = agent
	}

	return workflow.Agents{
		Lodging:            built[domain.CategoryLodging],
		Activities:         built[domain.CategoryActivities],
		Food:               built[domain.CategoryFood],
		IntercityTransport: built[domain.CategoryIntercityTransport],
		Recommendations:    built[domain.CategoryRecommendations],
	}, nil
}

func sweepLoop(ctx context.Context, service *workflow.Service, cfg config.SessionSettings, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			service.Sweep(ctx, cfg.MaxAge)
		}
	}
}
