package scheduler

import (
	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

// scoreContext is what a candidate is scored against
type scoreContext struct {
	cursor   models.Coordinate
	dayIndex int // 0-based
	prefs    models.Preferences
}

// Score rates a candidate from the cursor position; higher is better
func (s *Scheduler) score(a models.Activity, sc scoreContext) float64 {
	w := s.cfg.Weights
	score := w.Base

	if a.HasLocation() {
		score -= spatial.DistanceKm(&sc.cursor, a.Location) * w.DistancePenaltyPerKm
	} else {
		score -= w.MissingLocationPenalty
	}

	for _, tag := range sc.prefs.LikedTags {
		if a.HasTag(tag) {
			score += w.LikedTagBonus
			break
		}
	}

	if sc.prefs.Price < s.cfg.PriceBandSplit {
		if a.PriceTier <= 2 {
			score += w.PriceAlignmentBonus
		}
	} else if a.PriceTier >= 2 {
		score += w.PriceAlignmentBonus
	}

	if sc.prefs.GuidedTour && a.RequiresBooking {
		score += w.GuidedBookingBonus
	}

	if sc.dayIndex == 0 && a.HasTag(models.CategoryArchitecture) {
		score += w.FirstDayArchitectureBonus
	}

	if sc.prefs.Tempo < s.cfg.LowTempoMax && a.IsOutdoor() {
		score -= w.LowTempoOutdoorPenalty
	}

	return score
}

// Score exposes candidate scoring for a cursor and day, for diagnostics and tests
func (s *Scheduler) Score(a models.Activity, cursor models.Coordinate, dayIndex int, prefs models.Preferences) float64 {
	return s.score(a, scoreContext{cursor: cursor, dayIndex: dayIndex, prefs: prefs})
}
