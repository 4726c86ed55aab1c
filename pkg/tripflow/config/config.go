// Package config loads tripflowd settings from a YAML file with
// TRIPFLOW_* environment overrides. Defaults are usable for local
// development with an in-memory checkpoint store; credentials for the
// LLM and the research tools must come from the file or the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default endpoints for the research tool adapters. Overridable for
// tests and self-hosted proxies.
const (
	DefaultPlacesBaseURL    = "https://api.content.tripadvisor.com/api/v1"
	DefaultFlightsBaseURL   = "https://test.api.amadeus.com"
	DefaultWebSearchBaseURL = "https://api.tavily.com"
	DefaultCommunityBaseURL = "https://www.reddit.com"
	DefaultGeocodeBaseURL   = "https://nominatim.openstreetmap.org"
)

// Settings is the full configuration of the tripflowd server.
type Settings struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	LLM     LLMSettings     `yaml:"llm"`
	Store   StoreSettings   `yaml:"store"`
	Session SessionSettings `yaml:"session"`
	Tools   ToolSettings    `yaml:"tools"`
}

// LLMSettings configures the OpenAI-compatible model backing the
// structured-output calls and the research agents.
type LLMSettings struct {
	Token string `yaml:"token"`
	Model string `yaml:"model"`
	// AgentMaxIterations bounds one research agent's tool loop.
	AgentMaxIterations int `yaml:"agent_max_iterations"`
}

// StoreSettings selects and configures the checkpoint store.
type StoreSettings struct {
	// Kind is one of "memory", "sqlite", "redis".
	Kind string `yaml:"kind"`
	// Path is the SQLite database file (kind "sqlite").
	Path string `yaml:"path"`
	// RedisAddr is the host:port of the Redis server (kind "redis").
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// SessionSettings configures session lifecycle.
type SessionSettings struct {
	// MaxAge is how long an idle session survives before the sweep
	// drops it.
	MaxAge time.Duration `yaml:"max_age"`
	// SweepInterval is how often the sweep runs.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// MaxIterations bounds one graph run. Zero keeps the engine
	// default.
	MaxIterations int `yaml:"max_iterations"`
}

// ToolSettings carries credentials and endpoints for the research
// tool adapters.
type ToolSettings struct {
	PlacesAPIKey        string `yaml:"places_api_key"`
	PlacesBaseURL       string `yaml:"places_base_url"`
	FlightsClientID     string `yaml:"flights_client_id"`
	FlightsClientSecret string `yaml:"flights_client_secret"`
	FlightsBaseURL      string `yaml:"flights_base_url"`
	WebSearchAPIKey     string `yaml:"web_search_api_key"`
	WebSearchBaseURL    string `yaml:"web_search_base_url"`
	CommunityBaseURL    string `yaml:"community_base_url"`
	// DocsBaseURL points at the self-hosted document retrieval
	// service. Empty leaves the recommendations agent without the
	// document-search tool.
	DocsBaseURL    string `yaml:"docs_base_url"`
	GeocodeBaseURL string `yaml:"geocode_base_url"`
	// UserAgent identifies tripflowd to the community and geocoding
	// services, which require one.
	UserAgent string `yaml:"user_agent"`
}

// Defaults returns usable local-development settings with no
// credentials filled in.
func Defaults() Settings {
	return Settings{
		Listen: ":8080",
		LLM: LLMSettings{
			Model:              "gpt-4o",
			AgentMaxIterations: 5,
		},
		Store: StoreSettings{
			Kind: "memory",
			Path: "tripflow.db",
		},
		Session: SessionSettings{
			MaxAge:        24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Tools: ToolSettings{
			PlacesBaseURL:    DefaultPlacesBaseURL,
			FlightsBaseURL:   DefaultFlightsBaseURL,
			WebSearchBaseURL: DefaultWebSearchBaseURL,
			CommunityBaseURL: DefaultCommunityBaseURL,
			GeocodeBaseURL:   DefaultGeocodeBaseURL,
			UserAgent:        "tripflowd/1.0",
		},
	}
}

// Load reads settings from the YAML file at path, then applies
// TRIPFLOW_* environment overrides on top. An empty path skips the
// file and uses defaults plus environment.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// applyEnv overlays TRIPFLOW_* variables. Unset variables leave the
// file values alone.
func (s *Settings) applyEnv() error {
	overlayString(&s.Listen, "TRIPFLOW_LISTEN")

	overlayString(&s.LLM.Token, "TRIPFLOW_OPENAI_TOKEN")
	overlayString(&s.LLM.Model, "TRIPFLOW_OPENAI_MODEL")

	overlayString(&s.Store.Kind, "TRIPFLOW_STORE")
	overlayString(&s.Store.Path, "TRIPFLOW_SQLITE_PATH")
	overlayString(&s.Store.RedisAddr, "TRIPFLOW_REDIS_ADDR")
	overlayString(&s.Store.RedisPassword, "TRIPFLOW_REDIS_PASSWORD")
	if err := overlayInt(&s.Store.RedisDB, "TRIPFLOW_REDIS_DB"); err != nil {
		return err
	}

	if err := overlayDuration(&s.Session.MaxAge, "TRIPFLOW_SESSION_MAX_AGE"); err != nil {
		return err
	}
	if err := overlayDuration(&s.Session.SweepInterval, "TRIPFLOW_SWEEP_INTERVAL"); err != nil {
		return err
	}
	if err := overlayInt(&s.Session.MaxIterations, "TRIPFLOW_MAX_ITERATIONS"); err != nil {
		return err
	}

	overlayString(&s.Tools.PlacesAPIKey, "TRIPFLOW_PLACES_API_KEY")
	overlayString(&s.Tools.PlacesBaseURL, "TRIPFLOW_PLACES_BASE_URL")
	overlayString(&s.Tools.FlightsClientID, "TRIPFLOW_FLIGHTS_CLIENT_ID")
	overlayString(&s.Tools.FlightsClientSecret, "TRIPFLOW_FLIGHTS_CLIENT_SECRET")
	overlayString(&s.Tools.FlightsBaseURL, "TRIPFLOW_FLIGHTS_BASE_URL")
	overlayString(&s.Tools.WebSearchAPIKey, "TRIPFLOW_WEB_SEARCH_API_KEY")
	overlayString(&s.Tools.WebSearchBaseURL, "TRIPFLOW_WEB_SEARCH_BASE_URL")
	overlayString(&s.Tools.CommunityBaseURL, "TRIPFLOW_COMMUNITY_BASE_URL")
	overlayString(&s.Tools.DocsBaseURL, "TRIPFLOW_DOCS_BASE_URL")
	overlayString(&s.Tools.GeocodeBaseURL, "TRIPFLOW_GEOCODE_BASE_URL")
	overlayString(&s.Tools.UserAgent, "TRIPFLOW_USER_AGENT")

	return nil
}

func overlayString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func overlayInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func overlayDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// Validate reports every configuration problem at once, so an operator
// fixes one restart's worth of complaints rather than one per restart.
func (s Settings) Validate() error {
	var errs []error

	if s.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if s.LLM.Token == "" {
		errs = append(errs, errors.New("llm token is required (TRIPFLOW_OPENAI_TOKEN)"))
	}
	if s.LLM.Model == "" {
		errs = append(errs, errors.New("llm model is required"))
	}

	switch s.Store.Kind {
	case "memory":
	case "sqlite":
		if s.Store.Path == "" {
			errs = append(errs, errors.New("sqlite store requires a path"))
		}
	case "redis":
		if s.Store.RedisAddr == "" {
			errs = append(errs, errors.New("redis store requires redis_addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store kind %q (want memory, sqlite or redis)", s.Store.Kind))
	}

	if s.Session.MaxAge <= 0 {
		errs = append(errs, errors.New("session max_age must be positive"))
	}
	if s.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("session sweep_interval must be positive"))
	}

	if s.Tools.PlacesAPIKey == "" {
		errs = append(errs, errors.New("places api key is required (TRIPFLOW_PLACES_API_KEY)"))
	}
	if s.Tools.FlightsClientID == "" || s.Tools.FlightsClientSecret == "" {
		errs = append(errs, errors.New("flights client id and secret are required"))
	}
	if s.Tools.WebSearchAPIKey == "" {
		errs = append(errs, errors.New("web search api key is required (TRIPFLOW_WEB_SEARCH_API_KEY)"))
	}

	return errors.Join(errs...)
}
