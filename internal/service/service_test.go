package service

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/database"
	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/provider"
	"github.com/jengzang/tripguide-backend-go/internal/repository"
	"github.com/jengzang/tripguide-backend-go/internal/scheduler"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

var (
	testKey = models.PlanKey{Start: "2026-07-06", End: "2026-07-07"}
	fixedAt = time.Date(2026, 7, 6, 8, 0, 0, 0, time.UTC)
)

type fakeForecasts struct {
	mu         sync.Mutex
	days       int
	prefetches int
}

func (f *fakeForecasts) Day(_ context.Context, date time.Time, at models.Coordinate) models.Forecast {
	f.mu.Lock()
	f.days++
	f.mu.Unlock()
	return provider.SyntheticForecast(date, at)
}

func (f *fakeForecasts) Prefetch(context.Context, time.Time, time.Time, models.Coordinate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefetches++
	return errors.New("offline")
}

type recordingPublisher struct {
	mu    sync.Mutex
	plans []*models.Itinerary
}

func (p *recordingPublisher) PublishItinerary(it *models.Itinerary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plans = append(p.plans, it)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.plans)
}

type fixture struct {
	itineraries *repository.ItineraryRepository
	arrivals    *repository.ArrivalRepository
	prefs       *repository.PreferencesRepository
	service     *ItineraryService
	forecasts   *fakeForecasts
	publisher   *recordingPublisher
	dbPath      string
}

func testPool() []models.Activity {
	center := models.Coordinate{Lat: 41.8781, Lng: -87.6298}
	var pool []models.Activity
	for i, id := range []string{"rookery", "cultural-center", "cloud-gate", "riverwalk", "art-institute", "skydeck", "deep-dish", "navy-pier"} {
		loc := spatial.Offset(center, float64(i*45), float64(300+i*150))
		pool = append(pool, models.Activity{
			ID: id, Title: id, Category: "Landmarks", PriceTier: 2, Location: &loc, Duration: "1 hour",
		})
	}
	return pool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trip.db")
	db, err := database.Open(database.Config{Path: path})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		itineraries: repository.NewItineraryRepository(db),
		arrivals:    repository.NewArrivalRepository(db),
		prefs:       repository.NewPreferencesRepository(db),
		forecasts:   &fakeForecasts{},
		publisher:   &recordingPublisher{},
		dbPath:      path,
	}
	sched := scheduler.New(scheduler.DefaultConfig()).WithRand(rand.New(rand.NewSource(1)))
	f.service = NewItineraryService(f.itineraries, f.prefs, sched, testPool(), f.forecasts).
		WithClock(func() time.Time { return fixedAt })
	f.service.Subscribe(f.publisher)
	return f
}
