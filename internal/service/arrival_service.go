package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/repository"
)

// ActivateRequest selects the plan and day to track
type ActivateRequest struct {
	Key        models.PlanKey `json:"key"`
	Day        int            `json:"day"`
	GuidedTour bool           `json:"guidedTour"`
	Profile    string         `json:"profile,omitempty"`
}

// ArrivalService connects the arrival tracker to storage and the itinerary
type ArrivalService struct {
	tracker     *arrival.Tracker
	itineraries *repository.ItineraryRepository
	arrivals    *repository.ArrivalRepository
	prefs       *repository.PreferencesRepository
	profiles    map[string]models.GeofenceProfile
	now         func() time.Time

	mu     sync.Mutex
	active *models.ActivePlan
}

// NewArrivalService creates a new arrival service
func NewArrivalService(
	tracker *arrival.Tracker,
	itineraries *repository.ItineraryRepository,
	arrivals *repository.ArrivalRepository,
	prefs *repository.PreferencesRepository,
	profiles map[string]models.GeofenceProfile,
) *ArrivalService {
	return &ArrivalService{
		tracker:     tracker,
		itineraries: itineraries,
		arrivals:    arrivals,
		prefs:       prefs,
		profiles:    profiles,
		now:         time.Now,
	}
}

// WithClock replaces the time source used for responses and check-ins
func (s *ArrivalService) WithClock(now func() time.Time) *ArrivalService {
	s.now = now
	return s
}

// Activate starts tracking a day of a stored plan
func (s *ArrivalService) Activate(ctx context.Context, req ActivateRequest) (arrival.Snapshot, error) {
	it, err := s.itineraries.Get(req.Key)
	if err != nil {
		return arrival.Snapshot{}, err
	}
	if it == nil {
		return arrival.Snapshot{}, ErrPlanNotFound
	}
	if _, ok := it.DayByNumber(req.Day); !ok {
		return arrival.Snapshot{}, fmt.Errorf("%w: day %d", ErrInvalidRequest, req.Day)
	}

	if req.Profile != "" {
		p, ok := s.profiles[req.Profile]
		if !ok {
			return arrival.Snapshot{}, fmt.Errorf("%w: unknown geofence profile %q", ErrInvalidRequest, req.Profile)
		}
		if err := s.tracker.SetProfile(ctx, p); err != nil {
			return arrival.Snapshot{}, err
		}
	}

	records, err := s.arrivals.ListRecords(req.Key)
	if err != nil {
		return arrival.Snapshot{}, err
	}

	now := s.now()
	pc := arrival.PlanContext{Itinerary: it, Day: req.Day, GuidedTour: req.GuidedTour, Confirmed: it.Locked}
	if _, err := s.tracker.SetPlan(ctx, pc, records, now); err != nil {
		return arrival.Snapshot{}, err
	}
	if _, err := s.tracker.Activate(ctx, now); err != nil {
		return arrival.Snapshot{}, err
	}

	snap, err := s.tracker.Snapshot(ctx)
	if err != nil {
		return arrival.Snapshot{}, err
	}
	active := models.ActivePlan{
		Key:        req.Key,
		Day:        req.Day,
		GuidedTour: req.GuidedTour,
		Profile:    snap.Profile.Name,
		UpdatedAt:  now,
	}
	if err := s.prefs.SaveActivePlan(active); err != nil {
		return arrival.Snapshot{}, err
	}

	s.mu.Lock()
	s.active = &active
	s.mu.Unlock()

	slog.Info("arrival tracking activated", "component", "arrival", "plan", req.Key.String(),
		"day", req.Day, "guided", req.GuidedTour, "state", snap.State)
	return snap, nil
}

// Restore re-activates the session stored before a restart, if any
func (s *ArrivalService) Restore(ctx context.Context) error {
	active, err := s.prefs.GetActivePlan()
	if err != nil || active == nil {
		return err
	}
	_, err = s.Activate(ctx, ActivateRequest{
		Key:        active.Key,
		Day:        active.Day,
		GuidedTour: active.GuidedTour,
		Profile:    active.Profile,
	})
	if errors.Is(err, ErrPlanNotFound) {
		slog.Warn("stored arrival session refers to a deleted plan", "component", "arrival", "plan", active.Key.String())
		return s.prefs.ClearActivePlan()
	}
	return err
}

// Sample feeds one location fix. A fix without a timestamp is stamped with the service clock.
func (s *ArrivalService) Sample(ctx context.Context, sample models.LocationSample) ([]arrival.Event, error) {
	if !s.isActive() {
		return nil, ErrNoActiveSession
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.now()
	}
	if !s.tracker.Allow() {
		return nil, nil
	}
	return s.apply(ctx, func(m *arrival.Machine) []arrival.Event {
		return m.Sample(sample)
	})
}

// Respond answers the shown prompt
func (s *ArrivalService) Respond(ctx context.Context, promptID string, yes bool) ([]arrival.Event, error) {
	at := s.now()
	return s.apply(ctx, func(m *arrival.Machine) []arrival.Event {
		return m.Respond(promptID, yes, at)
	})
}

// CheckIn confirms a stop without waiting for the geofence
func (s *ArrivalService) CheckIn(ctx context.Context, day int, activityID string) ([]arrival.Event, error) {
	at := s.now()
	stop := models.StopKey{Day: day, ActivityID: activityID}
	return s.apply(ctx, func(m *arrival.Machine) []arrival.Event {
		return m.CheckIn(stop, at)
	})
}

// PermissionLost handles a geolocation failure
func (s *ArrivalService) PermissionLost(ctx context.Context, kind arrival.FailureKind) ([]arrival.Event, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown failure kind %q", ErrInvalidRequest, kind)
	}
	slog.Warn("geolocation failure", "component", "arrival", "kind", kind)
	return s.tracker.Fail(ctx, kind, s.now())
}

// Stop ends tracking. Stopping when nothing is tracked is a no-op.
func (s *ArrivalService) Stop(ctx context.Context) ([]arrival.Event, error) {
	events, err := s.tracker.StopWatch(ctx, s.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	wasActive := s.active != nil
	s.active = nil
	s.mu.Unlock()

	if wasActive {
		if err := s.prefs.ClearActivePlan(); err != nil {
			return events, err
		}
	}
	return events, nil
}

// Snapshot returns the current tracking state
func (s *ArrivalService) Snapshot(ctx context.Context) (arrival.Snapshot, error) {
	return s.tracker.Snapshot(ctx)
}

// PublishItinerary refreshes the tracked plan after an edit, confirm or unlock
func (s *ArrivalService) PublishItinerary(it *models.Itinerary) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active == nil || active.Key != it.Key {
		return
	}

	ctx := context.Background()
	records, err := s.arrivals.ListRecords(it.Key)
	if err != nil {
		slog.Error("failed to reload arrival records", "component", "arrival", "error", err)
		return
	}
	pc := arrival.PlanContext{Itinerary: it, Day: active.Day, GuidedTour: active.GuidedTour, Confirmed: it.Locked}
	if _, err := s.tracker.SetPlan(ctx, pc, records, s.now()); err != nil {
		slog.Error("failed to refresh tracked plan", "component", "arrival", "error", err)
	}
}

func (s *ArrivalService) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// apply runs fn on the tracker and persists the records it touched
func (s *ArrivalService) apply(ctx context.Context, fn func(m *arrival.Machine) []arrival.Event) ([]arrival.Event, error) {
	var changed []models.ArrivalRecord
	var plan models.PlanKey
	events, err := s.tracker.Do(ctx, func(m *arrival.Machine) []arrival.Event {
		events := fn(m)
		plan = m.Plan()
		for _, e := range events {
			if e.Stop == nil || (e.Type != arrival.EventArrivalConfirmed && e.Type != arrival.EventArrivalSnoozed) {
				continue
			}
			if rec, ok := m.Record(*e.Stop); ok {
				changed = append(changed, rec)
			}
		}
		return events
	})
	if err != nil {
		return nil, err
	}

	for _, rec := range changed {
		if err := s.arrivals.SaveRecord(plan, rec); err != nil {
			return events, err
		}
	}
	return events, nil
}
