package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/provider"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

// RouteFetcher is the live-only routing lookup
type RouteFetcher interface {
	Fetch(ctx context.Context, from, to models.Coordinate, mode models.TransportMode) (models.RouteSegment, error)
}

// LegPreview is one leg between consecutive stops
type LegPreview struct {
	FromID    string              `json:"fromId"`
	ToID      string              `json:"toId"`
	Departure string              `json:"departure"`
	Segment   models.RouteSegment `json:"segment"`
}

// DayPreview is the transit preview of a whole day
type DayPreview struct {
	Plan         models.PlanKey       `json:"plan"`
	Day          int                  `json:"day"`
	Mode         models.TransportMode `json:"mode"`
	Legs         []LegPreview         `json:"legs"`
	Skipped      []string             `json:"skipped,omitempty"` // stops without coordinates
	TotalMinutes int                  `json:"totalMinutes"`
}

// RouteService builds on-demand transit previews
type RouteService struct {
	itineraries *ItineraryService
	routes      RouteFetcher
	legTimeout  time.Duration
}

// NewRouteService creates a new route service
func NewRouteService(itineraries *ItineraryService, routes RouteFetcher, legTimeout time.Duration) *RouteService {
	if legTimeout <= 0 {
		legTimeout = 5 * time.Second
	}
	return &RouteService{itineraries: itineraries, routes: routes, legTimeout: legTimeout}
}

// Preview walks consecutive stops of a day. Each leg awaits the live route under
// a timeout and falls back to the distance estimate on any failure.
func (s *RouteService) Preview(ctx context.Context, key models.PlanKey, day int, mode models.TransportMode) (*DayPreview, error) {
	it, err := s.itineraries.Get(key)
	if err != nil {
		return nil, err
	}
	plan, ok := it.DayByNumber(day)
	if !ok {
		return nil, ErrInvalidRequest
	}
	if !mode.Valid() {
		prefs, err := s.itineraries.Preferences()
		if err != nil {
			return nil, err
		}
		mode = prefs.Mode
		if !mode.Valid() {
			mode = models.ModeWalking
		}
	}

	preview := &DayPreview{Plan: key, Day: day, Mode: mode, Legs: []LegPreview{}}
	var prev *models.Activity
	for i := range plan.Activities {
		a := &plan.Activities[i]
		if !a.HasLocation() {
			preview.Skipped = append(preview.Skipped, a.ID)
			continue
		}
		if prev != nil {
			leg := s.leg(ctx, plan.Date, *prev, *a, mode)
			preview.TotalMinutes += leg.Segment.AdjustedMinutes
			preview.Legs = append(preview.Legs, leg)
		}
		prev = a
	}
	return preview, nil
}

func (s *RouteService) leg(ctx context.Context, date string, from, to models.Activity, mode models.TransportMode) LegPreview {
	legCtx, cancel := context.WithTimeout(ctx, s.legTimeout)
	defer cancel()

	seg, err := s.routes.Fetch(legCtx, *from.Location, *to.Location, mode)
	if err != nil {
		slog.Warn("live route unavailable, using estimate", "component", "route",
			"from", from.ID, "to", to.ID, "error", err)
		seg = provider.EstimateSegment(*from.Location, *to.Location, mode)
	}

	departure := departureTime(date, from)
	seg = provider.AdjustForRushHour(seg, departure)
	return LegPreview{FromID: from.ID, ToID: to.ID, Departure: departure.Format("15:04"), Segment: seg}
}

// departureTime is the civil time the traveler leaves a stop
func departureTime(date string, a models.Activity) time.Time {
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return time.Time{}
	}
	start, ok := spatial.ParseClock(a.Time)
	if !ok {
		return day
	}
	minutes := start + spatial.ParseDurationToMinutes(a.Duration, 60)
	return day.Add(time.Duration(minutes) * time.Minute)
}
