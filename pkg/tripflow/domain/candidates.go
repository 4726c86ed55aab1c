package domain

// Candidate is the base shape shared by lodging, activity, and food
// options. IDs come from the upstream place API when available;
// candidates without one are deduplicated by name+url+address instead.
type Candidate struct {
	ID            string     `json:"id,omitempty"`
	Name          string     `json:"name"`
	Address       string     `json:"address,omitempty"`
	PriceLevel    PriceLevel `json:"price_level,omitempty"`
	Rating        float64    `json:"rating,omitempty"`
	Reviews       []string   `json:"reviews,omitempty"`
	Photos        []string   `json:"photos,omitempty"`
	URL           string     `json:"url,omitempty"`
	Lat           float64    `json:"lat,omitempty"`
	Lon           float64    `json:"lon,omitempty"`
	EvidenceScore float64    `json:"evidence_score"`
	SourceID      string     `json:"source_id,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// Valid reports whether a candidate meets the base invariants.
func (c Candidate) Valid() bool {
	return c.Name != "" && c.Rating >= 0 && c.Rating <= 5 &&
		c.EvidenceScore >= 0 && c.EvidenceScore <= 1
}

// LodgingCandidate is a researched accommodation option.
type LodgingCandidate struct {
	Candidate

	Area         string  `json:"area,omitempty"`
	PriceNight   float64 `json:"price_night,omitempty"`
	CancelPolicy string  `json:"cancel_policy,omitempty"`
}

// ActivityCandidate is a researched activity that can be scheduled
// into the itinerary.
type ActivityCandidate struct {
	Candidate

	OpenTime    string   `json:"open_time,omitempty"`
	CloseTime   string   `json:"close_time,omitempty"`
	DurationMin int      `json:"duration_min,omitempty"`
	Price       float64  `json:"price,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// FoodCandidate is a researched dining option.
type FoodCandidate struct {
	Candidate

	OpenTime  string   `json:"open_time,omitempty"`
	CloseTime string   `json:"close_time,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Transfer is one leg inside an intercity journey.
type Transfer struct {
	Name          string `json:"name"`
	Place         string `json:"place"`
	DepartureTime string `json:"departure_time,omitempty"`
	ArrivalTime   string `json:"arrival_time,omitempty"`
	DurationMin   int    `json:"duration_min,omitempty"`
}

// TransportCandidate is a complete intercity transport option. It does
// not extend the base candidate shape: transport options carry no
// external place ID, so their merge identity is name+url.
type TransportCandidate struct {
	Name             string     `json:"name"`
	FareClass        string     `json:"fare_class,omitempty"`
	Refundable       *bool      `json:"refundable,omitempty"`
	URL              string     `json:"url,omitempty"`
	Price            float64    `json:"price,omitempty"`
	Transfer         []Transfer `json:"transfer,omitempty"`
	TotalDurationMin int        `json:"total_duration_min,omitempty"`
	Note             string     `json:"note,omitempty"`
}

// Valid reports whether a transport candidate meets its invariants.
func (t TransportCandidate) Valid() bool {
	return t.Name != "" && t.Price >= 0 && t.TotalDurationMin >= 0
}

// LodgingOutput wraps the lodging research result. The wrapper always
// exists once its node has run, even when the list is empty.
type LodgingOutput struct {
	Lodging []LodgingCandidate `json:"lodging"`
}

// ActivitiesOutput wraps the activities research result.
type ActivitiesOutput struct {
	Activities []ActivityCandidate `json:"activities"`
}

// FoodOutput wraps the food research result.
type FoodOutput struct {
	Food []FoodCandidate `json:"food"`
}

// TransportOutput wraps the intercity transport research result.
type TransportOutput struct {
	Transport []TransportCandidate `json:"transport"`
}

// Recommendations carries destination-wide advice: safety, culture,
// seasonality, and practical notes from the recommendations agent.
type Recommendations struct {
	SafetyLevel            string   `json:"safety_level,omitempty"`
	SafetyNotes            []string `json:"safety_notes,omitempty"`
	TravelAdvisories       []string `json:"travel_advisories,omitempty"`
	CulturalConsiderations []string `json:"cultural_considerations,omitempty"`
	LocalCustoms           []string `json:"local_customs,omitempty"`
	LanguageBarriers       []string `json:"language_barriers,omitempty"`
	ChildFriendlyRating    int      `json:"child_friendly_rating,omitempty"`
	WeatherConditions      string   `json:"weather_conditions,omitempty"`
	SeasonalConsiderations []string `json:"seasonal_considerations,omitempty"`
	BestTimeToVisit        string   `json:"best_time_to_visit,omitempty"`
	CurrencyInfo           string   `json:"currency_info,omitempty"`
	PaymentMethods         []string `json:"payment_methods,omitempty"`
}
