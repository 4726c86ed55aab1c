package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// FlightLeg is one segment of a priced flight itinerary.
type FlightLeg struct {
	Carrier   string `json:"carrier"`
	From      string `json:"from"`
	To        string `json:"to"`
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	Duration  string `json:"duration,omitempty"`
}

// FlightOffer is one priced itinerary with ordered legs.
type FlightOffer struct {
	Price     float64     `json:"price"`
	Currency  string      `json:"currency"`
	FareClass string      `json:"fare_class,omitempty"`
	Legs      []FlightLeg `json:"legs"`
}

// FlightQuery describes a flight search.
type FlightQuery struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	Adults      int    `json:"adults"`
	TravelClass string `json:"travel_class,omitempty"`
}

// FlightsClient talks to an Amadeus-compatible flight offers API. It
// exchanges its credentials for a bearer token and refreshes it when
// expired.
type FlightsClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewFlightsClient creates a flight search client.
func NewFlightsClient(clientID, clientSecret, baseURL string) *FlightsClient {
	return &FlightsClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 20 * time.Second},
	}
}

type flightTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type flightOffersResponse struct {
	Data []struct {
		Price struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"price"`
		TravelerPricings []struct {
			FareDetailsBySegment []struct {
				Cabin string `json:"cabin"`
			} `json:"fareDetailsBySegment"`
		} `json:"travelerPricings"`
		Itineraries []struct {
			Segments []struct {
				CarrierCode string `json:"carrierCode"`
				Duration    string `json:"duration"`
				Departure   struct {
					IATACode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"departure"`
				Arrival struct {
					IATACode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"arrival"`
			} `json:"segments"`
		} `json:"itineraries"`
	} `json:"data"`
}

// authorize fetches or refreshes the bearer token.
func (f *FlightsClient) authorize(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.token != "" && time.Now().Before(f.tokenExpiry) {
		return f.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", f.clientID)
	form.Set("client_secret", f.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: unexpected status %d", resp.StatusCode)
	}

	var token flightTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}

	f.token = token.AccessToken
	f.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn-30) * time.Second)
	return f.token, nil
}

// Search returns priced itineraries for the query.
func (f *FlightsClient) Search(ctx context.Context, q FlightQuery) ([]FlightOffer, error) {
	token, err := f.authorize(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("originLocationCode", q.Origin)
	params.Set("destinationLocationCode", q.Destination)
	params.Set("departureDate", q.Date)
	params.Set("adults", fmt.Sprintf("%d", max(q.Adults, 1)))
	if q.TravelClass != "" {
		params.Set("travelClass", q.TravelClass)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.baseURL+"/v2/shopping/flight-offers?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flight search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flight search: unexpected status %d", resp.StatusCode)
	}

	var offers flightOffersResponse
	if err := json.NewDecoder(resp.Body).Decode(&offers); err != nil {
		return nil, fmt.Errorf("decode offers: %w", err)
	}

	out := make([]FlightOffer, 0, len(offers.Data))
	for _, d := range offers.Data {
		offer := FlightOffer{Currency: d.Price.Currency}
		fmt.Sscanf(d.Price.Total, "%f", &offer.Price)
		if len(d.TravelerPricings) > 0 && len(d.TravelerPricings[0].FareDetailsBySegment) > 0 {
			offer.FareClass = d.TravelerPricings[0].FareDetailsBySegment[0].Cabin
		}
		for _, itin := range d.Itineraries {
			for _, seg := range itin.Segments {
				offer.Legs = append(offer.Legs, FlightLeg{
					Carrier:   seg.CarrierCode,
					From:      seg.Departure.IATACode,
					To:        seg.Arrival.IATACode,
					Departure: seg.Departure.At,
					Arrival:   seg.Arrival.At,
					Duration:  seg.Duration,
				})
			}
		}
		out = append(out, offer)
	}
	return out, nil
}

// FlightsTool exposes flight search to the transport research agent.
// Input is a JSON FlightQuery.
type FlightsTool struct {
	client *FlightsClient
}

// NewFlightsTool wraps a FlightsClient.
func NewFlightsTool(client *FlightsClient) *FlightsTool {
	return &FlightsTool{client: client}
}

// Name implements tools.Tool.
func (t *FlightsTool) Name() string { return "flight_search" }

// Description implements tools.Tool.
func (t *FlightsTool) Description() string {
	return "Searches priced flight itineraries. Input: a JSON object with " +
		`"origin" and "destination" IATA codes, "date" (YYYY-MM-DD), ` +
		`"adults", and optional "travel_class". Returns JSON offers with ` +
		"price, currency, fare class, and ordered legs."
}

// Call implements tools.Tool.
func (t *FlightsTool) Call(ctx context.Context, input string) (string, error) {
	var q FlightQuery
	if err := json.Unmarshal([]byte(input), &q); err != nil {
		return "", fmt.Errorf("flight query must be JSON: %w", err)
	}

	offers, err := t.client.Search(ctx, q)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(offers)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
