package scheduler

import "github.com/jengzang/tripguide-backend-go/internal/models"

// Weights are the scoring adjustments applied to each candidate.
// The defaults are empirical; tests assert orderings, not exact scores.
type Weights struct {
	Base                      float64 `json:"base" yaml:"base"`
	DistancePenaltyPerKm      float64 `json:"distancePenaltyPerKm" yaml:"distancePenaltyPerKm"`
	LikedTagBonus             float64 `json:"likedTagBonus" yaml:"likedTagBonus"`
	PriceAlignmentBonus       float64 `json:"priceAlignmentBonus" yaml:"priceAlignmentBonus"`
	GuidedBookingBonus        float64 `json:"guidedBookingBonus" yaml:"guidedBookingBonus"`
	FirstDayArchitectureBonus float64 `json:"firstDayArchitectureBonus" yaml:"firstDayArchitectureBonus"`
	LowTempoOutdoorPenalty    float64 `json:"lowTempoOutdoorPenalty" yaml:"lowTempoOutdoorPenalty"`
	MissingLocationPenalty    float64 `json:"missingLocationPenalty" yaml:"missingLocationPenalty"`
}

// DefaultWeights returns the tuned scoring weights
func DefaultWeights() Weights {
	return Weights{
		Base:                      100,
		DistancePenaltyPerKm:      6,
		LikedTagBonus:             25,
		PriceAlignmentBonus:       10,
		GuidedBookingBonus:        8,
		FirstDayArchitectureBonus: 15,
		LowTempoOutdoorPenalty:    12,
		MissingLocationPenalty:    30,
	}
}

// Config holds the scheduler tuning
type Config struct {
	Weights    Weights
	CityCenter models.Coordinate

	// Tempo bands: below LowTempoMax is low, below MediumTempoMax is medium, else high
	LowTempoMax    int
	MediumTempoMax int

	// Price preferences below PriceBandSplit reward cheap venues, the rest reward pricier ones
	PriceBandSplit int

	DayCutoffMinutes       int // no new stop once the clock passes this
	DefaultDurationMinutes int // used for activities with an empty duration label
	MaxDays                int

	FallbackStopsPerDay int
	FallbackAdmitChance float64
	FallbackGapMinutes  int
}

// DefaultConfig returns the configuration for a downtown Chicago catalog
func DefaultConfig() Config {
	return Config{
		Weights:                DefaultWeights(),
		CityCenter:             models.Coordinate{Lat: 41.8781, Lng: -87.6298},
		LowTempoMax:            45,
		MediumTempoMax:         70,
		PriceBandSplit:         50,
		DayCutoffMinutes:       21*60 + 30,
		DefaultDurationMinutes: 60,
		MaxDays:                30,
		FallbackStopsPerDay:    3,
		FallbackAdmitChance:    0.35,
		FallbackGapMinutes:     30,
	}
}

// StopsPerDay returns the target stop count for a tempo
func (c Config) StopsPerDay(tempo int) int {
	switch {
	case tempo < c.LowTempoMax:
		return 3
	case tempo < c.MediumTempoMax:
		return 4
	default:
		return 5
	}
}

// DayStartMinutes returns the first clock time of a day; slower tempos start later
func (c Config) DayStartMinutes(tempo int) int {
	switch {
	case tempo < c.LowTempoMax:
		return 10 * 60
	case tempo < c.MediumTempoMax:
		return 9*60 + 30
	default:
		return 9 * 60
	}
}
