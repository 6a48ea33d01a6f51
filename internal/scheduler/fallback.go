package scheduler

import (
	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

// fillFallback is the degenerate safety net: shuffle the pool and hand out a fixed
// count per day, admitting loosely by price and liked tags plus a random chance.
// Travel time is ignored.
func (s *Scheduler) fillFallback(it *models.Itinerary, pool []models.Activity, prefs models.Preferences) {
	shuffled := make([]models.Activity, len(pool))
	copy(shuffled, pool)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	used := make(map[string]bool, len(shuffled))
	for di := range it.Days {
		clock := s.cfg.DayStartMinutes(prefs.Tempo)
		var acts []models.Activity
		for _, a := range shuffled {
			if len(acts) >= s.cfg.FallbackStopsPerDay {
				break
			}
			if used[a.ID] || !s.admit(a, prefs) {
				continue
			}
			used[a.ID] = true

			picked := a.Clone()
			minutes := spatial.ParseDurationToMinutes(picked.Duration, s.cfg.DefaultDurationMinutes)
			picked.Time = spatial.FormatClock(clock)
			picked.Duration = spatial.DurationLabel(minutes)
			clock += minutes + s.cfg.FallbackGapMinutes
			acts = append(acts, picked)
		}
		SortActivities(acts)
		it.Days[di].Activities = acts
	}
	it.Fallback = true
}

func (s *Scheduler) admit(a models.Activity, prefs models.Preferences) bool {
	priceOK := a.PriceTier <= 2
	if prefs.Price >= s.cfg.PriceBandSplit {
		priceOK = a.PriceTier >= 2
	}
	liked := false
	for _, tag := range prefs.LikedTags {
		if a.HasTag(tag) {
			liked = true
			break
		}
	}
	return priceOK || liked || s.rng.Float64() < s.cfg.FallbackAdmitChance
}
