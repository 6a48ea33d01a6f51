package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/catalog"
	"github.com/jengzang/tripguide-backend-go/internal/database"
	"github.com/jengzang/tripguide-backend-go/internal/handler"
	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/provider"
	"github.com/jengzang/tripguide-backend-go/internal/repository"
	"github.com/jengzang/tripguide-backend-go/internal/scheduler"
	"github.com/jengzang/tripguide-backend-go/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type offlineRoutes struct{}

func (offlineRoutes) Fetch(context.Context, models.Coordinate, models.Coordinate, models.TransportMode) (models.RouteSegment, error) {
	return models.RouteSegment{}, errors.New("offline")
}

type syntheticForecasts struct{}

func (syntheticForecasts) Day(_ context.Context, date time.Time, at models.Coordinate) models.Forecast {
	return provider.SyntheticForecast(date, at)
}

func (syntheticForecasts) Prefetch(context.Context, time.Time, time.Time, models.Coordinate) error {
	return nil
}

type noPlaces struct{}

func (noPlaces) Lookup(context.Context, models.Coordinate, string) *models.Place { return nil }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "trip.db")})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	itRepo := repository.NewItineraryRepository(db)
	arrRepo := repository.NewArrivalRepository(db)
	prefRepo := repository.NewPreferencesRepository(db)

	sched := scheduler.New(scheduler.DefaultConfig()).WithRand(rand.New(rand.NewSource(7)))
	itineraries := service.NewItineraryService(itRepo, prefRepo, sched, catalog.Default(), syntheticForecasts{})
	t.Cleanup(itineraries.Wait)
	routes := service.NewRouteService(itineraries, offlineRoutes{}, time.Second)

	profiles := models.BuiltinGeofenceProfiles()
	tracker := arrival.NewTracker(arrival.NewMachine(profiles[models.ProfileDefault]), nil, nil, arrival.TrackerOptions{})
	t.Cleanup(tracker.Close)
	arrivals := service.NewArrivalService(tracker, itRepo, arrRepo, prefRepo, profiles)
	itineraries.Subscribe(arrivals)

	return SetupRouter(Handlers{
		Itinerary: handler.NewItineraryHandler(itineraries, routes),
		Arrival:   handler.NewArrivalHandler(arrivals),
		Provider:  handler.NewProviderHandler(syntheticForecasts{}, noPlaces{}),
	}, Options{})
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: invalid body %q", method, path, w.Body.String())
		}
	}
	return w.Code, env
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestItineraryLifecycle(t *testing.T) {
	r := newTestRouter(t)
	const base = "/api/v1/itineraries/2026-07-06_2026-07-07"

	code, env := do(t, r, http.MethodPost, "/api/v1/itineraries", gin.H{
		"start":       "2026-07-06",
		"end":         "2026-07-07",
		"preferences": gin.H{"tempo": 80, "price": 60, "mode": "walking", "likedTags": []string{"architecture"}},
	})
	if code != http.StatusOK {
		t.Fatalf("plan: expected 200, got %d (%s)", code, env.Error)
	}
	var it models.Itinerary
	if err := json.Unmarshal(env.Data, &it); err != nil {
		t.Fatal(err)
	}
	if len(it.Days) != 2 || len(it.Days[0].Activities) == 0 {
		t.Fatalf("unexpected itinerary: %+v", it)
	}
	first := it.Days[0].Activities[0].ID

	if code, _ := do(t, r, http.MethodGet, base, nil); code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, "/api/v1/itineraries/not-a-key", nil); code != http.StatusBadRequest {
		t.Errorf("bad key: expected 400, got %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, "/api/v1/itineraries/2026-08-01_2026-08-02", nil); code != http.StatusNotFound {
		t.Errorf("missing plan: expected 404, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, base+"/retime", gin.H{"activityId": first, "time": "25:00"}); code != http.StatusBadRequest {
		t.Errorf("bad time: expected 400, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, base+"/retime", gin.H{"activityId": first, "time": "11:45"}); code != http.StatusOK {
		t.Errorf("retime: expected 200, got %d", code)
	}

	if code, _ := do(t, r, http.MethodPost, base+"/confirm", nil); code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, base+"/swap", gin.H{"day": 1, "index": 0}); code != http.StatusConflict {
		t.Errorf("edit while locked: expected 409, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, base+"/unlock", nil); code != http.StatusOK {
		t.Errorf("unlock: expected 200, got %d", code)
	}

	code, env = do(t, r, http.MethodGet, base+"/days/1/preview?mode=car", nil)
	if code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d (%s)", code, env.Error)
	}
	var preview service.DayPreview
	if err := json.Unmarshal(env.Data, &preview); err != nil {
		t.Fatal(err)
	}
	for _, leg := range preview.Legs {
		if leg.Segment.Source != models.RouteSourceEstimate {
			t.Errorf("expected estimated legs while offline, got %s", leg.Segment.Source)
		}
	}
	if code, _ := do(t, r, http.MethodGet, base+"/days/9/preview", nil); code != http.StatusBadRequest {
		t.Errorf("day out of range: expected 400, got %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, base+"/days/1/preview?mode=boat", nil); code != http.StatusBadRequest {
		t.Errorf("bad mode: expected 400, got %d", code)
	}
}

func TestArrivalEndpoints(t *testing.T) {
	r := newTestRouter(t)

	if code, _ := do(t, r, http.MethodPost, "/api/v1/arrival/samples", gin.H{"lat": 41.88, "lng": -87.63}); code != http.StatusConflict {
		t.Errorf("sample without session: expected 409, got %d", code)
	}

	if code, _ := do(t, r, http.MethodPost, "/api/v1/itineraries", gin.H{"start": "2026-07-06", "end": "2026-07-06"}); code != http.StatusOK {
		t.Fatalf("plan: expected 200, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, "/api/v1/itineraries/2026-07-06_2026-07-06/confirm", nil); code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", code)
	}

	activate := gin.H{"key": gin.H{"start": "2026-07-06", "end": "2026-07-06"}, "day": 1, "guidedTour": true}
	code, env := do(t, r, http.MethodPost, "/api/v1/arrival/activate", activate)
	if code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d (%s)", code, env.Error)
	}
	var snap arrival.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.State != arrival.StateWatching {
		t.Errorf("expected watching, got %s", snap.State)
	}

	if code, _ := do(t, r, http.MethodPost, "/api/v1/arrival/activate", gin.H{"key": activate["key"], "day": 5}); code != http.StatusBadRequest {
		t.Errorf("activate bad day: expected 400, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, "/api/v1/arrival/failure", gin.H{"kind": "bogus"}); code != http.StatusBadRequest {
		t.Errorf("unknown failure: expected 400, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, "/api/v1/arrival/samples", gin.H{"lat": 0, "lng": 0}); code != http.StatusOK {
		t.Errorf("sample: expected 200, got %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, "/api/v1/arrival/state", nil); code != http.StatusOK {
		t.Errorf("state: expected 200, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, "/api/v1/arrival/stop", nil); code != http.StatusOK {
		t.Errorf("stop: expected 200, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPost, "/api/v1/arrival/stop", nil); code != http.StatusOK {
		t.Errorf("second stop: expected 200, got %d", code)
	}
}

func TestArrivalSampleWithoutCoordinates(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/itineraries", gin.H{"start": "2026-07-06", "end": "2026-07-06"})
	if code != http.StatusOK {
		t.Fatalf("plan: expected 200, got %d", code)
	}
	var it models.Itinerary
	if err := json.Unmarshal(env.Data, &it); err != nil {
		t.Fatal(err)
	}
	if code, _ := do(t, r, http.MethodPost, "/api/v1/itineraries/2026-07-06_2026-07-06/confirm", nil); code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", code)
	}
	activate := gin.H{"key": gin.H{"start": "2026-07-06", "end": "2026-07-06"}, "day": 1, "guidedTour": true}
	if code, env := do(t, r, http.MethodPost, "/api/v1/arrival/activate", activate); code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d (%s)", code, env.Error)
	}

	stop := it.Days[0].Activities[0].Location
	base := time.Date(2026, 7, 6, 10, 0, 0, 0, time.UTC)
	for i := 0; i <= 4; i++ {
		body := gin.H{"lat": stop.Lat, "lng": stop.Lng, "accuracyMeters": 5, "timestamp": base.Add(time.Duration(i) * 30 * time.Second)}
		if code, _ := do(t, r, http.MethodPost, "/api/v1/arrival/samples", body); code != http.StatusOK {
			t.Fatalf("sample %d: expected 200, got %d", i, code)
		}
	}

	state := func() arrival.Snapshot {
		t.Helper()
		_, env := do(t, r, http.MethodGet, "/api/v1/arrival/state", nil)
		var snap arrival.Snapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			t.Fatal(err)
		}
		return snap
	}
	if snap := state(); snap.State != arrival.StatePromptShown {
		t.Fatalf("expected prompt_shown after dwelling, got %s", snap.State)
	}

	later := base.Add(3*time.Minute + time.Second)
	tests := []struct {
		name string
		body gin.H
	}{
		{"empty", gin.H{}},
		{"no coordinates", gin.H{"accuracyMeters": 5, "timestamp": later}},
		{"latitude only", gin.H{"lat": stop.Lat, "accuracyMeters": 5, "timestamp": later}},
		{"failure payload", gin.H{"error": "timeout"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _ := do(t, r, http.MethodPost, "/api/v1/arrival/samples", tt.body); code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", code)
			}
		})
	}

	snap := state()
	if snap.State != arrival.StatePromptShown || snap.Prompt == nil {
		t.Errorf("rejected samples must not change state, got %s prompt=%v", snap.State, snap.Prompt != nil)
	}
}

func TestProviderEndpoints(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/forecast?date=2026-07-06&lat=41.88&lng=-87.63", http.StatusOK},
		{"/api/v1/forecast?date=July&lat=41.88&lng=-87.63", http.StatusBadRequest},
		{"/api/v1/forecast?date=2026-07-06&lat=141&lng=-87.63", http.StatusBadRequest},
		{"/api/v1/places?lat=41.88&lng=-87.63&name=Rookery", http.StatusNotFound},
		{"/api/v1/places?lat=41.88&lng=-87.63", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if code, _ := do(t, r, http.MethodGet, tt.path, nil); code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, code)
			}
		})
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	r := newTestRouter(t)

	if code, _ := do(t, r, http.MethodPut, "/api/v1/preferences", gin.H{"tempo": 120, "price": 10, "mode": "walking"}); code != http.StatusBadRequest {
		t.Errorf("out of range tempo: expected 400, got %d", code)
	}
	if code, _ := do(t, r, http.MethodPut, "/api/v1/preferences", gin.H{"tempo": 20, "price": 10, "mode": "car"}); code != http.StatusOK {
		t.Errorf("save: expected 200, got %d", code)
	}
	code, env := do(t, r, http.MethodGet, "/api/v1/preferences", nil)
	var prefs models.Preferences
	if err := json.Unmarshal(env.Data, &prefs); err != nil || code != http.StatusOK {
		t.Fatalf("get: %d %v", code, err)
	}
	if prefs.Tempo != 20 || prefs.Mode != models.ModeCar {
		t.Errorf("unexpected preferences %+v", prefs)
	}
}
