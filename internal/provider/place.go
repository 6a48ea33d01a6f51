package provider

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/cache"
	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

// placeSearchRadius is the search radius sent to the backends, in meters
const placeSearchRadius = 150

// errNoPlaceMatch means a backend answered without a venue matching the name
var errNoPlaceMatch = errors.New("no matching place")

// PlaceProvider looks up venue metadata, trying each endpoint in order
type PlaceProvider struct {
	endpoints []string
	client    *httpClient
	cache     *cache.TTL[*models.Place]
	now       func() time.Time
}

// NewPlaceProvider creates a place provider; the first endpoint that answers wins
func NewPlaceProvider(endpoints []string, c *cache.TTL[*models.Place], opts Options) *PlaceProvider {
	return &PlaceProvider{
		endpoints: endpoints,
		client:    newHTTPClient(opts),
		cache:     c,
		now:       time.Now,
	}
}

// WithClock replaces the time source, for tests
func (p *PlaceProvider) WithClock(now func() time.Time) *PlaceProvider {
	p.now = now
	return p
}

func placeKey(at models.Coordinate, name string) string {
	precision := spatial.GeohashPrecisionForDistance(placeSearchRadius)
	return spatial.CellKey(at, precision) + ":" + strconv.Itoa(placeSearchRadius) + ":" + strings.ToLower(strings.TrimSpace(name))
}

// placeResponse is the search payload returned by every backend
type placeResponse struct {
	Results []struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Hours   string `json:"hours"`
		Phone   string `json:"phone"`
		Website string `json:"website"`
	} `json:"results"`
}

// Lookup returns metadata for the venue called name near at, or nil when the name is
// blank, nothing matches or every backend fails. Misses are not cached.
func (p *PlaceProvider) Lookup(ctx context.Context, at models.Coordinate, name string) *models.Place {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	key := placeKey(at, name)
	if place, fresh := p.cache.Get(ctx, key); fresh {
		return p.withOpenNow(place)
	}

	for _, endpoint := range p.endpoints {
		place, err := p.search(ctx, endpoint, at, name)
		if errors.Is(err, errNoPlaceMatch) {
			slog.Debug("no place matched", "component", "place", "endpoint", endpoint, "name", name)
			continue
		}
		if err != nil {
			slog.Warn("place lookup failed", "component", "place", "endpoint", endpoint, "error", err)
			continue
		}
		p.cache.Put(ctx, key, place)
		return p.withOpenNow(place)
	}

	if place, ok := p.cache.Stale(ctx, key); ok {
		return p.withOpenNow(place)
	}
	return nil
}

func (p *PlaceProvider) search(ctx context.Context, endpoint string, at models.Coordinate, name string) (*models.Place, error) {
	params := url.Values{
		"lat":    {strconv.FormatFloat(at.Lat, 'f', 6, 64)},
		"lng":    {strconv.FormatFloat(at.Lng, 'f', 6, 64)},
		"name":   {name},
		"radius": {strconv.Itoa(placeSearchRadius)},
	}
	var resp placeResponse
	if err := p.client.getJSON(ctx, endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	want := strings.ToLower(strings.TrimSpace(name))
	for _, r := range resp.Results {
		got := strings.ToLower(strings.TrimSpace(r.Name))
		if got == "" {
			continue
		}
		if strings.Contains(got, want) || strings.Contains(want, got) {
			return &models.Place{
				Name:    r.Name,
				Address: r.Address,
				Hours:   r.Hours,
				Phone:   r.Phone,
				Website: r.Website,
			}, nil
		}
	}
	return nil, errNoPlaceMatch
}

// withOpenNow returns a copy with the open flag computed for the current time
func (p *PlaceProvider) withOpenNow(place *models.Place) *models.Place {
	if place == nil {
		return nil
	}
	out := *place
	out.OpenNow = nil
	if hours, err := ParseOpeningHours(place.Hours); err == nil {
		open := hours.OpenAt(p.now())
		out.OpenNow = &open
	}
	return &out
}
