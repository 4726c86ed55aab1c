package domain

// PriceLevel is a qualitative price tier.
type PriceLevel string

// Price tiers, cheapest to most expensive.
const (
	PriceBudget   PriceLevel = "$"
	PriceModerate PriceLevel = "$$"
	PriceUpscale  PriceLevel = "$$$"
	PriceLuxury   PriceLevel = "$$$$"
)

// BudgetEstimate is the model-produced budget breakdown across the six
// spending categories, plus an average daily figure and rationale.
type BudgetEstimate struct {
	BudgetLevel        PriceLevel `json:"budget_level,omitempty"`
	Currency           string     `json:"currency"`
	IntercityTransport float64    `json:"intercity_transport"`
	LocalTransport     float64    `json:"local_transport"`
	Food               float64    `json:"food"`
	Activities         float64    `json:"activities"`
	Lodging            float64    `json:"lodging"`
	Other              float64    `json:"other"`
	BudgetPerDay       float64    `json:"budget_per_day"`
	Notes              string     `json:"notes,omitempty"`
}

// Total sums the six category amounts.
func (b BudgetEstimate) Total() float64 {
	return b.IntercityTransport + b.LocalTransport + b.Food +
		b.Activities + b.Lodging + b.Other
}
