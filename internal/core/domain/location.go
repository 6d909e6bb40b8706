package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Address is a structured street address.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Location is a retailer that accepts EBT/SNAP benefits.
type Location struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Address          Address   `json:"address"`
	Coordinates      *GeoPoint `json:"coordinates,omitempty"`
	IncentiveProgram string    `json:"incentive_program,omitempty"` // e.g. "RMP"
	UpdatedAt        time.Time `json:"updated_at"`
}

// InIncentiveProgram reports whether the location participates in a
// benefit-matching program such as the Restaurant Meals Program.
func (l *Location) InIncentiveProgram() bool {
	return strings.TrimSpace(l.IncentiveProgram) != ""
}

// ClickEvent records a user opening a location from a result list.
type ClickEvent struct {
	ID         string    `json:"id"`
	LocationID string    `json:"location_id"`
	Origin     *GeoPoint `json:"origin,omitempty"` // where the click came from
	Timestamp  time.Time `json:"timestamp"`
}

// Category selects a store-type/name rule set.
type Category string

const (
	CategoryTrending      Category = "trending"
	CategoryGrocery       Category = "grocery"
	CategorySupermarket   Category = "supermarket"
	CategoryConvenience   Category = "convenience"
	CategoryRestaurant    Category = "restaurant"
	CategoryFarmersMarket Category = "farmers-market"
	CategorySpecialty     Category = "specialty"
	CategoryCustom        Category = "custom"
)

// SearchMode is how candidates are retrieved.
type SearchMode string

const (
	ModeRadius SearchMode = "radius"
	ModeExact  SearchMode = "exact"
)

// Search defaults and limits.
const (
	DefaultRadiusMiles = 10.0
	DefaultResultLimit = 50
	MaxResultLimit     = 100
)

// SearchQuery is a single location search request.
type SearchQuery struct {
	Origin       *GeoPoint `json:"origin,omitempty"`
	RadiusMiles  float64   `json:"radius_miles"`
	Category     Category  `json:"category"`
	StoreTypes   []string  `json:"store_types,omitempty"`
	NamePatterns []string  `json:"name_patterns,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	Zip          string    `json:"zip,omitempty"`
	ResultLimit  int       `json:"result_limit"`

	// BestEffort returns the ranking computed so far when the caller's
	// deadline expires instead of failing the request.
	BestEffort bool `json:"best_effort,omitempty"`
}

// Mode reports exact-match mode when any address field is populated.
func (q *SearchQuery) Mode() SearchMode {
	if strings.TrimSpace(q.City) != "" || strings.TrimSpace(q.State) != "" || strings.TrimSpace(q.Zip) != "" {
		return ModeExact
	}
	return ModeRadius
}

// RankedResult is a location decorated with per-request ranking data.
type RankedResult struct {
	Location      Location `json:"-"`
	DistanceMiles *float64 `json:"distance_miles"`
	TrendingScore *float64 `json:"trending_score,omitempty"`
}

type rankedResultJSON struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Address          Address   `json:"address"`
	Coordinates      *GeoPoint `json:"coordinates"`
	DistanceMiles    *float64  `json:"distance_miles"`
	TrendingScore    *float64  `json:"trending_score,omitempty"`
	IncentiveProgram bool      `json:"incentive_program"`
	ProgramName      string    `json:"program_name,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MarshalJSON flattens the location into the result object.
func (r RankedResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(rankedResultJSON{
		ID:               r.Location.ID,
		Name:             r.Location.Name,
		Type:             r.Location.Type,
		Address:          r.Location.Address,
		Coordinates:      r.Location.Coordinates,
		DistanceMiles:    r.DistanceMiles,
		TrendingScore:    r.TrendingScore,
		IncentiveProgram: r.Location.InIncentiveProgram(),
		ProgramName:      strings.TrimSpace(r.Location.IncentiveProgram),
		UpdatedAt:        r.Location.UpdatedAt,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *RankedResult) UnmarshalJSON(data []byte) error {
	var v rankedResultJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	program := v.ProgramName
	if program == "" && v.IncentiveProgram {
		program = "unspecified"
	}
	*r = RankedResult{
		Location: Location{
			ID:               v.ID,
			Name:             v.Name,
			Type:             v.Type,
			Address:          v.Address,
			Coordinates:      v.Coordinates,
			IncentiveProgram: program,
			UpdatedAt:        v.UpdatedAt,
		},
		DistanceMiles: v.DistanceMiles,
		TrendingScore: v.TrendingScore,
	}
	return nil
}

// SearchResponse is the result of a location search.
type SearchResponse struct {
	Results         []RankedResult `json:"results"`
	TotalConsidered int            `json:"total_considered"`
	Mode            SearchMode     `json:"mode"`
	Category        Category       `json:"category"`

	// Partial is set when a best-effort search ran out of time.
	Partial bool `json:"partial,omitempty"`

	// TrendingFallback is set when trending order was requested but no
	// click evidence existed, so results are ordered by incentive and distance.
	TrendingFallback bool `json:"trending_fallback,omitempty"`
}
