package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/repository"
	"github.com/jengzang/tripguide-backend-go/internal/scheduler"
)

// ForecastSource is the cache-backed forecast accessor
type ForecastSource interface {
	Day(ctx context.Context, date time.Time, at models.Coordinate) models.Forecast
	Prefetch(ctx context.Context, start, end time.Time, at models.Coordinate) error
}

// ItineraryPublisher is notified after every itinerary change
type ItineraryPublisher interface {
	PublishItinerary(it *models.Itinerary)
}

// ItineraryService handles itinerary planning and edits
type ItineraryService struct {
	itineraries *repository.ItineraryRepository
	prefs       *repository.PreferencesRepository
	scheduler   *scheduler.Scheduler
	pool        []models.Activity
	forecasts   ForecastSource
	publishers  []ItineraryPublisher
	now         func() time.Time

	mu       sync.Mutex // serializes read-modify-write of stored itineraries
	prefetch sync.WaitGroup
}

// NewItineraryService creates a new itinerary service. forecasts may be nil.
func NewItineraryService(
	itineraries *repository.ItineraryRepository,
	prefs *repository.PreferencesRepository,
	sched *scheduler.Scheduler,
	pool []models.Activity,
	forecasts ForecastSource,
) *ItineraryService {
	return &ItineraryService{
		itineraries: itineraries,
		prefs:       prefs,
		scheduler:   sched,
		pool:        pool,
		forecasts:   forecasts,
		now:         time.Now,
	}
}

// Subscribe adds a publisher notified after each change
func (s *ItineraryService) Subscribe(p ItineraryPublisher) {
	s.publishers = append(s.publishers, p)
}

// WithClock replaces the time source
func (s *ItineraryService) WithClock(now func() time.Time) *ItineraryService {
	s.now = now
	return s
}

// Plan builds and stores a new itinerary for key. Nil prefs use the stored
// preferences, or the defaults.
func (s *ItineraryService) Plan(ctx context.Context, key models.PlanKey, prefs *models.Preferences) (*models.Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.itineraries.Get(key)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Locked {
		return nil, ErrPlanLocked
	}

	p, err := s.resolvePreferences(prefs)
	if err != nil {
		return nil, err
	}

	it, err := s.scheduler.Build(key, s.pool, p)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		it.CreatedAt = existing.CreatedAt
	}
	s.attachForecasts(ctx, it)

	if err := s.itineraries.Save(it); err != nil {
		return nil, fmt.Errorf("failed to save itinerary: %w", err)
	}
	slog.Info("itinerary planned", "component", "itinerary", "plan", key.String(),
		"days", len(it.Days), "stops", it.StopCount(), "fallback", it.Fallback)

	s.publish(it)
	return it, nil
}

// Get returns the stored itinerary for key
func (s *ItineraryService) Get(key models.PlanKey) (*models.Itinerary, error) {
	it, err := s.itineraries.Get(key)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrPlanNotFound
	}
	return it, nil
}

// Keys lists the stored plans, newest first
func (s *ItineraryService) Keys() ([]models.PlanKey, error) {
	return s.itineraries.ListKeys()
}

// Move moves an activity to another day and/or time
func (s *ItineraryService) Move(key models.PlanKey, activityID string, cmd scheduler.EditCommand) (*models.Itinerary, error) {
	return s.edit(key, func(it *models.Itinerary) error {
		return scheduler.Move(it, activityID, cmd)
	})
}

// Retime changes the time of one activity
func (s *ItineraryService) Retime(key models.PlanKey, activityID, clock string) (*models.Itinerary, error) {
	return s.edit(key, func(it *models.Itinerary) error {
		return scheduler.Retime(it, activityID, clock)
	})
}

// Swap exchanges an activity with the next one on the same day
func (s *ItineraryService) Swap(key models.PlanKey, day, index int) (*models.Itinerary, error) {
	return s.edit(key, func(it *models.Itinerary) error {
		return scheduler.Swap(it, day, index)
	})
}

// Confirm locks the plan and enables arrival tracking
func (s *ItineraryService) Confirm(key models.PlanKey) (*models.Itinerary, error) {
	return s.setLocked(key, true)
}

// Unlock re-enables edits
func (s *ItineraryService) Unlock(key models.PlanKey) (*models.Itinerary, error) {
	return s.setLocked(key, false)
}

// SavePreferences stores the traveler preferences
func (s *ItineraryService) SavePreferences(prefs models.Preferences) error {
	if !prefs.Mode.Valid() {
		return fmt.Errorf("%w: unknown transport mode %q", ErrInvalidRequest, prefs.Mode)
	}
	if prefs.Tempo < 0 || prefs.Tempo > 100 || prefs.Price < 0 || prefs.Price > 100 {
		return fmt.Errorf("%w: tempo and price must be within 0~100", ErrInvalidRequest)
	}
	return s.prefs.Save(prefs)
}

// Preferences returns the stored preferences, or the defaults
func (s *ItineraryService) Preferences() (models.Preferences, error) {
	return s.resolvePreferences(nil)
}

// Wait blocks until background forecast prefetches finish
func (s *ItineraryService) Wait() {
	s.prefetch.Wait()
}

func (s *ItineraryService) edit(key models.PlanKey, apply func(it *models.Itinerary) error) (*models.Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	if it.Locked {
		return nil, ErrPlanLocked
	}
	if err := apply(it); err != nil {
		return nil, err
	}

	it.UpdatedAt = s.now()
	if err := s.itineraries.Save(it); err != nil {
		return nil, fmt.Errorf("failed to save itinerary: %w", err)
	}
	s.publish(it)
	return it, nil
}

func (s *ItineraryService) setLocked(key models.PlanKey, locked bool) (*models.Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.itineraries.SetLocked(key, locked)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPlanNotFound
	}
	it, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	s.publish(it)
	return it, nil
}

func (s *ItineraryService) resolvePreferences(prefs *models.Preferences) (models.Preferences, error) {
	if prefs != nil {
		return *prefs, nil
	}
	stored, err := s.prefs.Get()
	if err != nil {
		return models.Preferences{}, err
	}
	if stored == nil {
		return models.DefaultPreferences(), nil
	}
	return *stored, nil
}

// attachForecasts reads the synchronous accessor for each day and starts the
// range prefetch in the background
func (s *ItineraryService) attachForecasts(ctx context.Context, it *models.Itinerary) {
	if s.forecasts == nil || len(it.Days) == 0 {
		return
	}
	center := s.scheduler.Config().CityCenter

	for i := range it.Days {
		date, err := time.Parse(models.DateLayout, it.Days[i].Date)
		if err != nil {
			continue
		}
		f := s.forecasts.Day(ctx, date, center)
		it.Days[i].Forecast = &f
	}

	start, _ := time.Parse(models.DateLayout, it.Days[0].Date)
	end, _ := time.Parse(models.DateLayout, it.Days[len(it.Days)-1].Date)
	plan := it.Key.String()
	bg := context.WithoutCancel(ctx)
	s.prefetch.Add(1)
	go func() {
		defer s.prefetch.Done()
		if err := s.forecasts.Prefetch(bg, start, end, center); err != nil {
			slog.Warn("forecast prefetch failed", "component", "itinerary", "plan", plan, "error", err)
		}
	}()
}

func (s *ItineraryService) publish(it *models.Itinerary) {
	for _, p := range s.publishers {
		p.PublishItinerary(it.Clone())
	}
}
