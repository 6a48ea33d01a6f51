package spatial

import (
	"math"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// MinLegMinutes is the shortest travel leg ever estimated
const MinLegMinutes = 5

// ModeProfile is the average speed and fixed overhead of a transport mode
type ModeProfile struct {
	SpeedKmh        float64
	OverheadMinutes float64 // waiting, parking, transfers
}

var modeProfiles = map[models.TransportMode]ModeProfile{
	models.ModeWalking:   {SpeedKmh: 4.8, OverheadMinutes: 2},
	models.ModeRideShare: {SpeedKmh: 24, OverheadMinutes: 8},
	models.ModeCar:       {SpeedKmh: 30, OverheadMinutes: 12},
}

// ProfileFor returns the speed table entry for a mode, walking when unknown
func ProfileFor(mode models.TransportMode) ModeProfile {
	if p, ok := modeProfiles[mode]; ok {
		return p
	}
	return modeProfiles[models.ModeWalking]
}

// EstimateTravelMinutes converts a straight-line distance into a travel time for mode.
// The result is never below MinLegMinutes.
func EstimateTravelMinutes(distanceKm float64, mode models.TransportMode) int {
	if math.IsNaN(distanceKm) || distanceKm < 0 {
		distanceKm = 0
	}
	p := ProfileFor(mode)
	minutes := int(math.Round(distanceKm/p.SpeedKmh*60 + p.OverheadMinutes))
	if minutes < MinLegMinutes {
		return MinLegMinutes
	}
	return minutes
}
