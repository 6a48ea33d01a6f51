package models

// Route segment source constants
const (
	RouteSourceLive     = "live"
	RouteSourceEstimate = "estimate"
)

// RouteSegment is the travel cost between two stops
type RouteSegment struct {
	From            string        `json:"from,omitempty"`
	To              string        `json:"to,omitempty"`
	Mode            TransportMode `json:"mode"`
	DistanceKm      float64       `json:"distanceKm"`
	DurationMinutes int           `json:"durationMinutes"`
	AdjustedMinutes int           `json:"adjustedMinutes"` // with rush-hour multiplier
	Source          string        `json:"source"`
}
