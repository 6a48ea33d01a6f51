package models

// TransportMode is the traveler's preferred way of moving between stops
type TransportMode string

// TransportMode constants
const (
	ModeWalking   TransportMode = "walking"
	ModeRideShare TransportMode = "rideshare"
	ModeCar       TransportMode = "car"
)

// Valid reports whether the mode is one of the known modes
func (m TransportMode) Valid() bool {
	switch m {
	case ModeWalking, ModeRideShare, ModeCar:
		return true
	}
	return false
}

// Preferences is the preference vector the scheduler scores against
type Preferences struct {
	Tempo      int           `json:"tempo"` // 0~100, higher packs the day
	Price      int           `json:"price"` // 0~100, higher tolerates pricier venues
	Mode       TransportMode `json:"mode"`
	LikedTags  []string      `json:"likedTags,omitempty"`
	GuidedTour bool          `json:"guidedTour"`
}

// DefaultPreferences returns a medium-tempo walking profile
func DefaultPreferences() Preferences {
	return Preferences{Tempo: 50, Price: 50, Mode: ModeWalking}
}
