// Package scheduler turns a date range and a scored candidate pool into a per-day itinerary.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

// Errors returned to callers as typed outcomes
var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrDayOutOfRange    = errors.New("day out of range")
	ErrActivityNotFound = errors.New("activity not found")
	ErrInvalidTime      = errors.New("invalid time of day")
	ErrInvalidSwap      = errors.New("invalid swap position")
)

// Scheduler builds itineraries with a greedy best-score heuristic
type Scheduler struct {
	cfg Config
	rng *rand.Rand
	now func() time.Time
}

// New creates a scheduler
func New(cfg Config) *Scheduler {
	return &Scheduler{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// WithRand replaces the random source used by the fallback constructor
func (s *Scheduler) WithRand(rng *rand.Rand) *Scheduler {
	s.rng = rng
	return s
}

// Config returns the scheduler configuration
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Build schedules pool over every date of key. The pool is never modified.
func (s *Scheduler) Build(key models.PlanKey, pool []models.Activity, prefs models.Preferences) (*models.Itinerary, error) {
	dates, err := key.Dates()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}
	if s.cfg.MaxDays > 0 && len(dates) > s.cfg.MaxDays {
		return nil, fmt.Errorf("%w: %d days exceeds the %d day limit", ErrInvalidDateRange, len(dates), s.cfg.MaxDays)
	}
	if !prefs.Mode.Valid() {
		prefs.Mode = models.ModeWalking
	}

	candidates := eligible(pool)
	remaining := make([]models.Activity, len(candidates))
	copy(remaining, candidates)

	now := s.now()
	it := &models.Itinerary{
		Key:       key,
		Days:      make([]models.DayPlan, len(dates)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, d := range dates {
		var acts []models.Activity
		acts, remaining = s.buildDay(i, remaining, prefs)
		it.Days[i] = models.DayPlan{
			Day:        i + 1,
			Date:       d.Format(models.DateLayout),
			Activities: acts,
		}
	}

	if it.StopCount() == 0 && len(candidates) > 0 {
		slog.Warn("primary scheduler produced no stops, using fallback",
			"component", "scheduler", "plan", key.String(), "pool", len(candidates))
		s.fillFallback(it, candidates, prefs)
	}

	return it, nil
}

// eligible copies the schedulable activities, dropping blank and duplicate ids
func eligible(pool []models.Activity) []models.Activity {
	seen := make(map[string]bool, len(pool))
	out := make([]models.Activity, 0, len(pool))
	for _, a := range pool {
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a.Clone())
	}
	return out
}

// buildDay greedily picks up to the tempo's stop count and returns the unused pool.
// A candidate whose arrival would pass the cutoff stays in the pool for later days.
func (s *Scheduler) buildDay(dayIndex int, remaining []models.Activity, prefs models.Preferences) ([]models.Activity, []models.Activity) {
	cursor := s.cfg.CityCenter
	clock := s.cfg.DayStartMinutes(prefs.Tempo)
	target := s.cfg.StopsPerDay(prefs.Tempo)

	acts := make([]models.Activity, 0, target)
	tooFar := make(map[string]bool)
	for len(acts) < target && clock <= s.cfg.DayCutoffMinutes {
		sc := scoreContext{cursor: cursor, dayIndex: dayIndex, prefs: prefs}
		best := -1
		var bestScore float64
		for i := range remaining {
			if tooFar[remaining[i].ID] {
				continue
			}
			if score := s.score(remaining[i], sc); best < 0 || score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}

		arrival := clock + spatial.EstimateTravelMinutes(spatial.DistanceKm(&cursor, remaining[best].Location), prefs.Mode)
		if arrival > s.cfg.DayCutoffMinutes {
			tooFar[remaining[best].ID] = true
			continue
		}

		picked := remaining[best].Clone()
		remaining = append(remaining[:best:best], remaining[best+1:]...)

		clock = arrival
		picked.Time = spatial.FormatClock(clock)
		minutes := spatial.ParseDurationToMinutes(picked.Duration, s.cfg.DefaultDurationMinutes)
		picked.Duration = spatial.DurationLabel(minutes)
		clock += minutes

		if picked.HasLocation() {
			cursor = *picked.Location
		}
		acts = append(acts, picked)
	}
	return acts, remaining
}
