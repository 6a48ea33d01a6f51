package scheduler

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

var center = models.Coordinate{Lat: 41.8781, Lng: -87.6298}

func at(northMeters float64) *models.Coordinate {
	c := spatial.Offset(center, 0, northMeters)
	return &c
}

func activity(id string, loc *models.Coordinate) models.Activity {
	return models.Activity{
		ID:        id,
		Title:     "Stop " + id,
		Category:  "Museums",
		PriceTier: 2,
		Location:  loc,
		Duration:  "1 hour",
	}
}

func testScheduler() *Scheduler {
	return New(DefaultConfig()).WithRand(rand.New(rand.NewSource(1)))
}

func threeDays() models.PlanKey {
	return models.PlanKey{Start: "2026-07-01", End: "2026-07-03"}
}

func assertUnique(t *testing.T, it *models.Itinerary) {
	t.Helper()
	seen := map[string]int{}
	for _, d := range it.Days {
		for _, a := range d.Activities {
			if prev, ok := seen[a.ID]; ok {
				t.Fatalf("activity %s scheduled on day %d and day %d", a.ID, prev, d.Day)
			}
			seen[a.ID] = d.Day
		}
	}
}

func TestBuildEmptyPool(t *testing.T) {
	it, err := testScheduler().Build(threeDays(), nil, models.DefaultPreferences())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(it.Days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(it.Days))
	}
	for i, d := range it.Days {
		if d.Activities == nil || len(d.Activities) != 0 {
			t.Errorf("day %d: expected empty non-nil activities, got %v", i+1, d.Activities)
		}
		if d.Day != i+1 {
			t.Errorf("day %d numbered %d", i+1, d.Day)
		}
	}
	if it.Days[2].Date != "2026-07-03" {
		t.Errorf("unexpected last date %s", it.Days[2].Date)
	}
	if it.Fallback {
		t.Error("fallback must not run for an empty pool")
	}
}

func TestBuildInvalidDateRange(t *testing.T) {
	tests := []struct {
		name string
		key  models.PlanKey
	}{
		{"end before start", models.PlanKey{Start: "2026-07-03", End: "2026-07-01"}},
		{"malformed start", models.PlanKey{Start: "07/01/2026", End: "2026-07-03"}},
		{"missing end", models.PlanKey{Start: "2026-07-01"}},
		{"too long", models.PlanKey{Start: "2026-01-01", End: "2026-12-31"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := testScheduler().Build(tt.key, []models.Activity{activity("a", at(0))}, models.DefaultPreferences())
			if !errors.Is(err, ErrInvalidDateRange) {
				t.Fatalf("expected ErrInvalidDateRange, got %v", err)
			}
			if it != nil {
				t.Error("no itinerary should be produced")
			}
		})
	}
}

func TestBuildInvariants(t *testing.T) {
	var pool []models.Activity
	for i := 0; i < 20; i++ {
		pool = append(pool, activity(fmt.Sprintf("a%02d", i), at(float64(i*250))))
	}
	pool = append(pool, activity("a00", at(50)), activity("", at(10)))

	for _, tempo := range []int{10, 50, 90} {
		t.Run(fmt.Sprintf("tempo %d", tempo), func(t *testing.T) {
			prefs := models.DefaultPreferences()
			prefs.Tempo = tempo
			it, err := testScheduler().Build(threeDays(), pool, prefs)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			assertUnique(t, it)

			want := DefaultConfig().StopsPerDay(tempo)
			for _, d := range it.Days {
				if len(d.Activities) != want {
					t.Errorf("day %d: expected %d stops, got %d", d.Day, want, len(d.Activities))
				}
				if !IsSorted(d.Activities) {
					t.Errorf("day %d is not in time order", d.Day)
				}
				for _, a := range d.Activities {
					if a.ID == "" {
						t.Errorf("blank id scheduled on day %d", d.Day)
					}
					if m, ok := spatial.ParseClock(a.Time); !ok || m > DefaultConfig().DayCutoffMinutes {
						t.Errorf("day %d: %s starts at %q, after the cutoff", d.Day, a.ID, a.Time)
					}
				}
			}
			if it.Fallback {
				t.Error("fallback must not run when the primary constructor scheduled stops")
			}
		})
	}

	for _, a := range pool {
		if a.Time != "" {
			t.Fatalf("pool entry %s was annotated with a time", a.ID)
		}
	}
}

func TestBuildMissingCoordinatesKeepCursor(t *testing.T) {
	prefs := models.DefaultPreferences()
	prefs.LikedTags = []string{"hidden"}

	noLoc := activity("noloc", nil)
	noLoc.Tags = []string{"hidden"}
	north := activity("north", at(2000))
	south := activity("south", at(-2500))

	it, err := testScheduler().Build(models.PlanKey{Start: "2026-07-01", End: "2026-07-01"},
		[]models.Activity{north, south, noLoc}, prefs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	acts := it.Days[0].Activities
	if len(acts) < 2 || acts[0].ID != "noloc" || acts[1].ID != "north" {
		t.Fatalf("unexpected order: %+v", acts)
	}

	cfg := DefaultConfig()
	clock := cfg.DayStartMinutes(prefs.Tempo) + spatial.MinLegMinutes
	if acts[0].Time != spatial.FormatClock(clock) {
		t.Errorf("first stop at %s, want %s", acts[0].Time, spatial.FormatClock(clock))
	}
	clock += 60
	clock += spatial.EstimateTravelMinutes(spatial.DistanceKm(&center, north.Location), prefs.Mode)
	if acts[1].Time != spatial.FormatClock(clock) {
		t.Errorf("second stop at %s, want %s measured from the city center", acts[1].Time, spatial.FormatClock(clock))
	}
}

func TestBuildPrefersNearbyAndPoolOrderOnTies(t *testing.T) {
	pool := []models.Activity{
		activity("far", at(3000)),
		activity("twin-1", at(400)),
		activity("twin-2", at(400)),
	}
	it, err := testScheduler().Build(models.PlanKey{Start: "2026-07-01", End: "2026-07-01"}, pool, models.DefaultPreferences())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	acts := it.Days[0].Activities
	if len(acts) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(acts))
	}
	if acts[0].ID != "twin-1" || acts[1].ID != "twin-2" || acts[2].ID != "far" {
		t.Errorf("unexpected order: %s, %s, %s", acts[0].ID, acts[1].ID, acts[2].ID)
	}
}

func TestBuildStopsAtDayCutoff(t *testing.T) {
	var pool []models.Activity
	for i := 0; i < 5; i++ {
		a := activity(fmt.Sprintf("long%d", i), at(0))
		a.Duration = "5 hours"
		pool = append(pool, a)
	}
	prefs := models.DefaultPreferences()
	prefs.Tempo = 90

	it, err := testScheduler().Build(models.PlanKey{Start: "2026-07-01", End: "2026-07-02"}, pool, prefs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if n := len(it.Days[0].Activities); n != 3 {
		t.Fatalf("expected the cutoff to stop day 1 at 3 stops, got %d", n)
	}
	if got := it.Days[0].Activities[2].Time; got != "19:15" {
		t.Errorf("third stop at %s, want 19:15", got)
	}
	if n := len(it.Days[1].Activities); n != 2 {
		t.Errorf("expected the remaining 2 stops on day 2, got %d", n)
	}
}

func TestBuildSkipsStopsArrivingAfterCutoff(t *testing.T) {
	far := activity("far", at(445000))
	far.Tags = []string{"remote"}
	pool := []models.Activity{activity("near-1", at(0)), activity("near-2", at(300)), far}
	prefs := models.DefaultPreferences()
	prefs.Tempo = 90
	prefs.LikedTags = []string{"remote"}

	it, err := testScheduler().Build(models.PlanKey{Start: "2026-07-01", End: "2026-07-01"}, pool, prefs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if it.Fallback {
		t.Fatal("fallback must not run when nearby stops fit")
	}
	acts := it.Days[0].Activities
	if len(acts) != 2 {
		t.Fatalf("expected only the nearby stops, got %d", len(acts))
	}
	for _, a := range acts {
		if a.ID == "far" {
			t.Errorf("far stop scheduled at %s", a.Time)
		}
	}
}

func TestBuildFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DayCutoffMinutes = 8 * 60
	cfg.FallbackAdmitChance = 1
	s := New(cfg).WithRand(rand.New(rand.NewSource(7)))

	var pool []models.Activity
	for i := 0; i < 10; i++ {
		a := activity(fmt.Sprintf("f%d", i), at(float64(i*100)))
		a.PriceTier = 3
		pool = append(pool, a)
	}
	prefs := models.DefaultPreferences()
	prefs.Price = 10

	it, err := s.Build(threeDays(), pool, prefs)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !it.Fallback {
		t.Fatal("expected the fallback constructor to run")
	}
	assertUnique(t, it)
	for _, d := range it.Days {
		if len(d.Activities) != cfg.FallbackStopsPerDay {
			t.Errorf("day %d: expected %d stops, got %d", d.Day, cfg.FallbackStopsPerDay, len(d.Activities))
		}
		if !IsSorted(d.Activities) {
			t.Errorf("day %d is not in time order", d.Day)
		}
	}
}

func TestScoreOrdering(t *testing.T) {
	s := testScheduler()
	base := activity("x", at(0))
	prefs := models.DefaultPreferences()

	with := func(f func(a *models.Activity, p *models.Preferences)) (models.Activity, models.Preferences) {
		a, p := base.Clone(), prefs
		f(&a, &p)
		return a, p
	}

	tests := []struct {
		name          string
		better, worse func(a *models.Activity, p *models.Preferences)
		betterDay     int
		worseDay      int
	}{
		{
			name:   "closer beats farther",
			better: func(a *models.Activity, p *models.Preferences) { a.Location = at(200) },
			worse:  func(a *models.Activity, p *models.Preferences) { a.Location = at(2000) },
		},
		{
			name: "liked tag beats unliked",
			better: func(a *models.Activity, p *models.Preferences) {
				a.Tags = []string{"jazz"}
				p.LikedTags = []string{"Jazz"}
			},
			worse: func(a *models.Activity, p *models.Preferences) { p.LikedTags = []string{"Jazz"} },
		},
		{
			name: "cheap venue for a low price preference",
			better: func(a *models.Activity, p *models.Preferences) {
				a.PriceTier = 1
				p.Price = 20
			},
			worse: func(a *models.Activity, p *models.Preferences) {
				a.PriceTier = 3
				p.Price = 20
			},
		},
		{
			name: "pricier venue for a high price preference",
			better: func(a *models.Activity, p *models.Preferences) {
				a.PriceTier = 3
				p.Price = 80
			},
			worse: func(a *models.Activity, p *models.Preferences) {
				a.PriceTier = 1
				p.Price = 80
			},
		},
		{
			name: "booking venue on a guided tour",
			better: func(a *models.Activity, p *models.Preferences) {
				a.RequiresBooking = true
				p.GuidedTour = true
			},
			worse: func(a *models.Activity, p *models.Preferences) { p.GuidedTour = true },
		},
		{
			name:      "architecture on the first day",
			better:    func(a *models.Activity, p *models.Preferences) { a.Category = models.CategoryArchitecture },
			worse:     func(a *models.Activity, p *models.Preferences) { a.Category = models.CategoryArchitecture },
			betterDay: 0,
			worseDay:  1,
		},
		{
			name: "outdoor stop on a slow day",
			better: func(a *models.Activity, p *models.Preferences) {
				a.Category = models.CategoryOutdoors
				p.Tempo = 90
			},
			worse: func(a *models.Activity, p *models.Preferences) {
				a.Category = models.CategoryOutdoors
				p.Tempo = 20
			},
		},
		{
			name:   "located beats missing coordinates",
			better: func(a *models.Activity, p *models.Preferences) { a.Location = at(1000) },
			worse:  func(a *models.Activity, p *models.Preferences) { a.Location = nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ba, bp := with(tt.better)
			wa, wp := with(tt.worse)
			better := s.Score(ba, center, tt.betterDay, bp)
			worse := s.Score(wa, center, tt.worseDay, wp)
			if better <= worse {
				t.Errorf("expected %.1f > %.1f", better, worse)
			}
		})
	}
}

func TestConfigBands(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		tempo int
		stops int
		start string
	}{
		{0, 3, "10:00"},
		{44, 3, "10:00"},
		{45, 4, "09:30"},
		{69, 4, "09:30"},
		{70, 5, "09:00"},
		{100, 5, "09:00"},
	}

	for _, tt := range tests {
		if got := cfg.StopsPerDay(tt.tempo); got != tt.stops {
			t.Errorf("StopsPerDay(%d) = %d, want %d", tt.tempo, got, tt.stops)
		}
		if got := spatial.FormatClock(cfg.DayStartMinutes(tt.tempo)); got != tt.start {
			t.Errorf("DayStartMinutes(%d) = %s, want %s", tt.tempo, got, tt.start)
		}
	}
}
