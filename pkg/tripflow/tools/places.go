// Package tools wraps the external research services behind langchaingo
// tool contracts: place search, flight search, web search, community
// forum search, and geocoding.
//
// Every client takes its base URL as a parameter so tests can point it
// at an httptest server. Clients return structured results; the Tool
// wrappers serialize those to JSON for the agent loop.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Place is a normalized location record from the place API: the common
// ground between lodging, activity, and food research.
type Place struct {
	LocationID  string   `json:"location_id"`
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	Description string   `json:"description,omitempty"`
	WebURL      string   `json:"web_url,omitempty"`
	Latitude    float64  `json:"latitude,omitempty"`
	Longitude   float64  `json:"longitude,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	PriceLevel  string   `json:"price_level,omitempty"`
	Photos      []string `json:"photos,omitempty"`
	Reviews     []string `json:"reviews,omitempty"`
}

// PlacesClient talks to a TripAdvisor-compatible content API.
type PlacesClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	limit        int
	photosLimit  int
	reviewsLimit int
}

// PlacesOption configures a PlacesClient.
type PlacesOption func(*PlacesClient)

// WithPlacesHTTPClient overrides the HTTP client.
func WithPlacesHTTPClient(c *http.Client) PlacesOption {
	return func(p *PlacesClient) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// WithPlacesLogger sets the logger.
func WithPlacesLogger(logger *slog.Logger) PlacesOption {
	return func(p *PlacesClient) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPlacesLimits bounds results per search and photos/reviews per
// location.
func WithPlacesLimits(locations, photos, reviews int) PlacesOption {
	return func(p *PlacesClient) {
		if locations > 0 {
			p.limit = locations
		}
		if photos > 0 {
			p.photosLimit = photos
		}
		if reviews > 0 {
			p.reviewsLimit = reviews
		}
	}
}

// NewPlacesClient creates a place API client.
func NewPlacesClient(apiKey, baseURL string, opts ...PlacesOption) *PlacesClient {
	p := &PlacesClient{
		apiKey:       apiKey,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		logger:       slog.Default(),
		limit:        5,
		photosLimit:  5,
		reviewsLimit: 5,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type placeSearchResponse struct {
	Data []struct {
		LocationID string `json:"location_id"`
		Name       string `json:"name"`
		AddressObj struct {
			AddressString string `json:"address_string"`
		} `json:"address_obj"`
	} `json:"data"`
}

type placeDetailsResponse struct {
	Description string `json:"description"`
	WebURL      string `json:"web_url"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Rating      string `json:"rating"`
	PriceLevel  string `json:"price_level"`
}

type placePhotosResponse struct {
	Data []struct {
		Images struct {
			Large struct {
				URL string `json:"url"`
			} `json:"large"`
		} `json:"images"`
	} `json:"data"`
}

type placeReviewsResponse struct {
	Data []struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"data"`
}

// Search runs a location search and enriches each hit with details,
// photos, and reviews. Enrichment failures degrade per location; only
// the search call itself is fatal.
func (p *PlacesClient) Search(ctx context.Context, query, category string) ([]Place, error) {
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("searchQuery", query)
	if category != "" {
		params.Set("category", category)
	}

	var search placeSearchResponse
	if err := p.get(ctx, "/location/search", params, &search); err != nil {
		return nil, fmt.Errorf("place search: %w", err)
	}

	hits := search.Data
	if len(hits) > p.limit {
		hits = hits[:p.limit]
	}

	places := make([]Place, 0, len(hits))
	for _, hit := range hits {
		place := Place{
			LocationID: hit.LocationID,
			Name:       hit.Name,
			Address:    hit.AddressObj.AddressString,
		}
		p.enrich(ctx, &place)
		places = append(places, place)
	}
	return places, nil
}

// enrich fills in details, photos, and reviews, tolerating sub-call
// failures.
func (p *PlacesClient) enrich(ctx context.Context, place *Place) {
	keyOnly := url.Values{}
	keyOnly.Set("key", p.apiKey)

	var details placeDetailsResponse
	if err := p.get(ctx, "/location/"+place.LocationID+"/details", keyOnly, &details); err != nil {
		p.logger.Warn("place details failed",
			slog.String("location_id", place.LocationID),
			slog.String("error", err.Error()))
	} else {
		place.Description = details.Description
		place.WebURL = details.WebURL
		place.PriceLevel = details.PriceLevel
		place.Latitude, _ = strconv.ParseFloat(details.Latitude, 64)
		place.Longitude, _ = strconv.ParseFloat(details.Longitude, 64)
		place.Rating, _ = strconv.ParseFloat(details.Rating, 64)
	}

	var photos placePhotosResponse
	if err := p.get(ctx, "/location/"+place.LocationID+"/photos", keyOnly, &photos); err != nil {
		p.logger.Warn("place photos failed",
			slog.String("location_id", place.LocationID),
			slog.String("error", err.Error()))
	} else {
		for i, item := range photos.Data {
			if i >= p.photosLimit {
				break
			}
			if item.Images.Large.URL != "" {
				place.Photos = append(place.Photos, item.Images.Large.URL)
			}
		}
	}

	var reviews placeReviewsResponse
	if err := p.get(ctx, "/location/"+place.LocationID+"/reviews", keyOnly, &reviews); err != nil {
		p.logger.Warn("place reviews failed",
			slog.String("location_id", place.LocationID),
			slog.String("error", err.Error()))
	} else {
		for i, item := range reviews.Data {
			if i >= p.reviewsLimit {
				break
			}
			text := item.Text
			if text == "" {
				text = item.Title
			}
			if text != "" {
				place.Reviews = append(place.Reviews, text)
			}
		}
	}
}

func (p *PlacesClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// PlacesTool exposes the place API to a research agent. Category
// narrows the search for the lodging/food/activities agents.
type PlacesTool struct {
	client   *PlacesClient
	category string
}

// NewPlacesTool wraps a PlacesClient with a fixed category filter
// ("hotels", "restaurants", "attractions", or empty).
func NewPlacesTool(client *PlacesClient, category string) *PlacesTool {
	return &PlacesTool{client: client, category: category}
}

// Name implements tools.Tool.
func (t *PlacesTool) Name() string {
	if t.category != "" {
		return "place_search_" + t.category
	}
	return "place_search"
}

// Description implements tools.Tool.
func (t *PlacesTool) Description() string {
	return "Searches real-world places by free-text query and returns JSON records " +
		"with location_id, name, address, rating, price_level, photos, and reviews. " +
		"Use the location_id value as the candidate id. Input: the search query."
}

// Call implements tools.Tool.
func (t *PlacesTool) Call(ctx context.Context, input string) (string, error) {
	places, err := t.client.Search(ctx, input, t.category)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(places)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
