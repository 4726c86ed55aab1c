// Package domain defines the typed records of the trip planner: the
// immutable trip context, budget estimate, research plan, researched
// candidates, the final itinerary, and the accumulating workflow state
// with its merge (reducer) semantics.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// GroupType classifies the travelling party.
type GroupType string

// Supported group types.
const (
	GroupFamily   GroupType = "family"
	GroupCouple   GroupType = "couple"
	GroupSolo     GroupType = "alone"
	GroupFriends  GroupType = "friends"
	GroupBusiness GroupType = "business"
)

// Valid reports whether g is one of the supported group types.
func (g GroupType) Valid() bool {
	switch g {
	case GroupFamily, GroupCouple, GroupSolo, GroupFriends, GroupBusiness:
		return true
	}
	return false
}

// AgeGroup buckets a traveller by age.
type AgeGroup string

// Age brackets: under 2 infant, under 18 child, else adult.
const (
	AgeInfant AgeGroup = "infant"
	AgeChild  AgeGroup = "child"
	AgeAdult  AgeGroup = "adult"
)

// Date is a calendar date serialized as "YYYY-MM-DD".
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from year, month, day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String renders the date as "YYYY-MM-DD".
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	t, err := time.Parse(dateLayout, s[1:len(s)-1])
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Traveller is a member of the travelling party. Birth dates drive the
// adult/child/infant counts that budget and research prompts use.
type Traveller struct {
	Name            string   `json:"name"`
	DateOfBirth     Date     `json:"date_of_birth"`
	SpokenLanguages []string `json:"spoken_languages,omitempty"`
	Interests       []string `json:"interests,omitempty"`
	Nationality     string   `json:"nationality,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// AgeGroupAt buckets the traveller by age on the given date.
func (t Traveller) AgeGroupAt(on time.Time) AgeGroup {
	age := on.Year() - t.DateOfBirth.Year()
	if on.Month() < t.DateOfBirth.Month() ||
		(on.Month() == t.DateOfBirth.Month() && on.Day() < t.DateOfBirth.Day()) {
		age--
	}
	switch {
	case age < 2:
		return AgeInfant
	case age < 18:
		return AgeChild
	default:
		return AgeAdult
	}
}

// Sentinel errors for trip context validation.
var (
	// ErrInvalidDateRange indicates date_from is after date_to.
	ErrInvalidDateRange = errors.New("date_from must be before or equal to date_to")

	// ErrMissingDestination indicates an empty destination.
	ErrMissingDestination = errors.New("destination is required")

	// ErrInvalidGroupType indicates an unknown group type.
	ErrInvalidGroupType = errors.New("invalid group type")

	// ErrNegativeBudget indicates a budget below zero.
	ErrNegativeBudget = errors.New("budget must be non-negative")
)

// TripContext is the immutable description of the trip being planned.
// It is owned by the session and never mutated after creation.
type TripContext struct {
	Travellers         []Traveller `json:"travellers,omitempty"`
	Budget             float64     `json:"budget"`
	Currency           string      `json:"currency"`
	Destination        string      `json:"destination"`
	DestinationCountry string      `json:"destination_country"`
	DateFrom           Date        `json:"date_from"`
	DateTo             Date        `json:"date_to"`
	GroupType          GroupType   `json:"group_type"`
	TripPurpose        string      `json:"trip_purpose,omitempty"`
	CurrentLocation    string      `json:"current_location,omitempty"`
	Notes              string      `json:"notes,omitempty"`
}

// Validate checks the context invariants.
func (c TripContext) Validate() error {
	var errs []error
	if c.Destination == "" {
		errs = append(errs, ErrMissingDestination)
	}
	if !c.GroupType.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidGroupType, c.GroupType))
	}
	if c.Budget < 0 {
		errs = append(errs, ErrNegativeBudget)
	}
	if c.DateFrom.After(c.DateTo.Time) {
		errs = append(errs, ErrInvalidDateRange)
	}
	return errors.Join(errs...)
}

// Days returns the inclusive trip length in days.
// DateFrom == DateTo yields a 1-day trip.
func (c TripContext) Days() int {
	return int(c.DateTo.Sub(c.DateFrom.Time).Hours()/24) + 1
}

// Adults counts travellers in the adult bracket as of the trip start.
func (c TripContext) Adults() int { return c.countAge(AgeAdult) }

// Children counts travellers in the child bracket as of the trip start.
func (c TripContext) Children() int { return c.countAge(AgeChild) }

// Infants counts travellers in the infant bracket as of the trip start.
func (c TripContext) Infants() int { return c.countAge(AgeInfant) }

func (c TripContext) countAge(group AgeGroup) int {
	n := 0
	for _, t := range c.Travellers {
		if t.AgeGroupAt(c.DateFrom.Time) == group {
			n++
		}
	}
	return n
}
