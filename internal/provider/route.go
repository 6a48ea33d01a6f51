package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/cache"
	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

// routeCellPrecision keeps route endpoints to ~19 m cells
const routeCellPrecision = 8

// RouteProvider answers travel distance and duration between two points
type RouteProvider struct {
	baseURL string
	client  *httpClient
	cache   *cache.TTL[models.RouteSegment]
}

// NewRouteProvider creates a route provider for an OSRM-style backend
func NewRouteProvider(baseURL string, c *cache.TTL[models.RouteSegment], opts Options) *RouteProvider {
	return &RouteProvider{
		baseURL: baseURL,
		client:  newHTTPClient(opts),
		cache:   c,
	}
}

func routeKey(from, to models.Coordinate, mode models.TransportMode) string {
	return spatial.CellKey(from, routeCellPrecision) + ">" + spatial.CellKey(to, routeCellPrecision) + ":" + string(mode)
}

func routingProfile(mode models.TransportMode) string {
	if mode == models.ModeWalking {
		return "foot"
	}
	return "driving"
}

// routeResponse is the OSRM route payload
type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

// Fetch returns a live routing result, or an error when the backend cannot answer.
// Fresh cached results are returned without a request.
func (p *RouteProvider) Fetch(ctx context.Context, from, to models.Coordinate, mode models.TransportMode) (models.RouteSegment, error) {
	key := routeKey(from, to, mode)
	if seg, fresh := p.cache.Get(ctx, key); fresh {
		return seg, nil
	}
	if p.baseURL == "" {
		return models.RouteSegment{}, errors.New("routing backend not configured")
	}
	if !from.Valid() || !to.Valid() {
		return models.RouteSegment{}, errors.New("route endpoints must be valid coordinates")
	}

	url := fmt.Sprintf("%s/route/v1/%s/%s,%s;%s,%s?overview=false",
		p.baseURL, routingProfile(mode),
		strconv.FormatFloat(from.Lng, 'f', 6, 64), strconv.FormatFloat(from.Lat, 'f', 6, 64),
		strconv.FormatFloat(to.Lng, 'f', 6, 64), strconv.FormatFloat(to.Lat, 'f', 6, 64))

	var resp routeResponse
	if err := p.client.getJSON(ctx, url, &resp); err != nil {
		return models.RouteSegment{}, fmt.Errorf("route request: %w", err)
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return models.RouteSegment{}, fmt.Errorf("route response code %q with %d routes", resp.Code, len(resp.Routes))
	}
	r := resp.Routes[0]
	if r.Distance < 0 || r.Duration < 0 || math.IsNaN(r.Distance) || math.IsNaN(r.Duration) {
		return models.RouteSegment{}, errors.New("route response has negative distance or duration")
	}

	minutes := int(math.Round(r.Duration / 60))
	if minutes < 1 {
		minutes = 1
	}
	seg := models.RouteSegment{
		Mode:            mode,
		DistanceKm:      r.Distance / 1000,
		DurationMinutes: minutes,
		AdjustedMinutes: minutes,
		Source:          models.RouteSourceLive,
	}
	p.cache.Put(ctx, key, seg)
	return seg, nil
}

// Segment returns the live route when possible and the straight-line estimate otherwise,
// with the rush-hour adjustment for departure applied to AdjustedMinutes.
func (p *RouteProvider) Segment(ctx context.Context, from, to models.Coordinate, mode models.TransportMode, departure time.Time) models.RouteSegment {
	seg, err := p.Fetch(ctx, from, to, mode)
	if err != nil {
		seg = EstimateSegment(from, to, mode)
	}
	return AdjustForRushHour(seg, departure)
}

// EstimateSegment builds a segment from the great-circle distance and the mode speed table
func EstimateSegment(from, to models.Coordinate, mode models.TransportMode) models.RouteSegment {
	km := spatial.DistanceKm(&from, &to)
	minutes := spatial.EstimateTravelMinutes(km, mode)
	return models.RouteSegment{
		Mode:            mode,
		DistanceKm:      km,
		DurationMinutes: minutes,
		AdjustedMinutes: minutes,
		Source:          models.RouteSourceEstimate,
	}
}

// AdjustForRushHour sets AdjustedMinutes from the base duration and the departure time
func AdjustForRushHour(seg models.RouteSegment, departure time.Time) models.RouteSegment {
	seg.AdjustedMinutes = int(math.Round(float64(seg.DurationMinutes) * RushHourMultiplier(seg.Mode, departure)))
	return seg
}

// RushHourMultiplier slows road travel on weekday mornings and evenings.
// Walking is never adjusted.
func RushHourMultiplier(mode models.TransportMode, t time.Time) float64 {
	if mode == models.ModeWalking || t.IsZero() {
		return 1
	}
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return 1
	}
	minute := t.Hour()*60 + t.Minute()
	morning := minute >= 7*60 && minute < 9*60+30
	evening := minute >= 16*60 && minute < 18*60+30
	if !morning && !evening {
		return 1
	}
	if mode == models.ModeCar {
		return 1.4
	}
	return 1.3
}
