package provider

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jengzang/tripguide-backend-go/internal/cache"
	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

// forecastCellPrecision keeps one forecast per ~4 km cell
const forecastCellPrecision = 5

// ForecastProvider serves day-level forecasts from cache, a remote source, or a synthetic estimate
type ForecastProvider struct {
	baseURL string
	client  *httpClient
	cache   *cache.TTL[models.Forecast]
	now     func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	fetched map[string]time.Time // prefetch signature -> completed at
}

// NewForecastProvider creates a forecast provider backed by c
func NewForecastProvider(baseURL string, c *cache.TTL[models.Forecast], opts Options) *ForecastProvider {
	return &ForecastProvider{
		baseURL: baseURL,
		client:  newHTTPClient(opts),
		cache:   c,
		now:     time.Now,
		fetched: make(map[string]time.Time),
	}
}

// WithClock replaces the time source, for tests
func (p *ForecastProvider) WithClock(now func() time.Time) *ForecastProvider {
	p.now = now
	return p
}

func forecastKey(date time.Time, at models.Coordinate) string {
	return date.Format(models.DateLayout) + ":" + spatial.CellKey(at, forecastCellPrecision)
}

// Day returns the forecast for date at a coordinate without touching the network.
// A fresh cache entry wins; otherwise a month-seeded estimate is cached and returned.
func (p *ForecastProvider) Day(ctx context.Context, date time.Time, at models.Coordinate) models.Forecast {
	key := forecastKey(date, at)
	if f, fresh := p.cache.Get(ctx, key); fresh {
		return f
	}
	f := SyntheticForecast(date, at)
	p.cache.Put(ctx, key, f)
	return f
}

// Prefetch loads a whole date range from the remote source into the cache.
// Concurrent calls for the same range and cell share one request, and a range
// fetched within the cache TTL is not fetched again.
func (p *ForecastProvider) Prefetch(ctx context.Context, start, end time.Time, at models.Coordinate) error {
	if end.Before(start) {
		return fmt.Errorf("invalid forecast range %s..%s", start.Format(models.DateLayout), end.Format(models.DateLayout))
	}
	sig := start.Format(models.DateLayout) + "|" + end.Format(models.DateLayout) + "|" + spatial.CellKey(at, forecastCellPrecision)

	if p.recentlyFetched(sig) {
		return nil
	}

	_, err, _ := p.group.Do(sig, func() (any, error) {
		if p.recentlyFetched(sig) {
			return nil, nil
		}
		fetchCtx := context.WithoutCancel(ctx)
		days, err := p.fetchRange(fetchCtx, start, end, at)
		if err != nil {
			slog.Warn("forecast prefetch failed, using synthetic estimates",
				"component", "forecast", "signature", sig, "error", err)
			for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
				p.Day(fetchCtx, d, at)
			}
			return nil, err
		}
		for _, f := range days {
			date, _ := time.Parse(models.DateLayout, f.Date)
			p.cache.Put(fetchCtx, forecastKey(date, at), f)
		}
		p.mu.Lock()
		p.fetched[sig] = p.now()
		p.mu.Unlock()
		slog.Debug("forecast prefetched", "component", "forecast", "signature", sig, "days", len(days))
		return nil, nil
	})
	return err
}

func (p *ForecastProvider) recentlyFetched(sig string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	at, ok := p.fetched[sig]
	return ok && p.now().Sub(at) < p.cache.TTL()
}

// dailyResponse is the remote daily forecast payload
type dailyResponse struct {
	Daily struct {
		Time          []string   `json:"time"`
		WeatherCode   []int      `json:"weathercode"`
		TempMax       []float64  `json:"temperature_2m_max"`
		PrecipProbMax []*float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

func (p *ForecastProvider) fetchRange(ctx context.Context, start, end time.Time, at models.Coordinate) ([]models.Forecast, error) {
	if p.baseURL == "" {
		return nil, errors.New("forecast source not configured")
	}
	params := url.Values{
		"latitude":   {strconv.FormatFloat(at.Lat, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(at.Lng, 'f', 4, 64)},
		"daily":      {"weathercode,temperature_2m_max,precipitation_probability_max"},
		"timezone":   {"auto"},
		"start_date": {start.Format(models.DateLayout)},
		"end_date":   {end.Format(models.DateLayout)},
	}

	var resp dailyResponse
	if err := p.client.getJSON(ctx, p.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	d := resp.Daily
	n := len(d.Time)
	if n == 0 || len(d.WeatherCode) != n || len(d.TempMax) != n {
		return nil, fmt.Errorf("malformed daily forecast: %d dates, %d codes, %d temps", n, len(d.WeatherCode), len(d.TempMax))
	}

	out := make([]models.Forecast, 0, n)
	for i := 0; i < n; i++ {
		if _, err := time.Parse(models.DateLayout, d.Time[i]); err != nil {
			return nil, fmt.Errorf("malformed forecast date %q: %w", d.Time[i], err)
		}
		precip := 0
		if i < len(d.PrecipProbMax) && d.PrecipProbMax[i] != nil {
			precip = int(math.Round(*d.PrecipProbMax[i]))
		}
		cond := conditionForCode(d.WeatherCode[i])
		temp := int(math.Round(d.TempMax[i]))
		out = append(out, models.Forecast{
			Date:              d.Time[i],
			Condition:         cond,
			TemperatureC:      temp,
			Display:           displayForecast(cond, temp),
			PrecipProbability: precip,
			Source:            models.ForecastSourceLive,
		})
	}
	return out, nil
}

// conditionForCode maps WMO weather codes to display text
func conditionForCode(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code <= 3:
		return "Partly cloudy"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Showers"
	case code == 85 || code == 86:
		return "Snow"
	case code >= 95:
		return "Thunderstorm"
	}
	return "Cloudy"
}

func displayForecast(cond string, tempC int) string {
	return fmt.Sprintf("%s · %d°C", cond, tempC)
}

// seasonal climatology: average high per month and weighted conditions per season
var monthlyHighC = [12]int{-1, 1, 8, 15, 21, 27, 29, 28, 24, 17, 9, 2}

var seasonConditions = map[time.Month][3]string{
	time.December:  {"Snow", "Cloudy", "Clear"},
	time.January:   {"Snow", "Cloudy", "Clear"},
	time.February:  {"Snow", "Cloudy", "Clear"},
	time.March:     {"Rain", "Partly cloudy", "Clear"},
	time.April:     {"Rain", "Partly cloudy", "Clear"},
	time.May:       {"Partly cloudy", "Clear", "Rain"},
	time.June:      {"Clear", "Partly cloudy", "Thunderstorm"},
	time.July:      {"Clear", "Partly cloudy", "Thunderstorm"},
	time.August:    {"Clear", "Partly cloudy", "Thunderstorm"},
	time.September: {"Clear", "Partly cloudy", "Rain"},
	time.October:   {"Partly cloudy", "Clear", "Rain"},
	time.November:  {"Cloudy", "Rain", "Snow"},
}

// SyntheticForecast estimates a forecast from the month, deterministically per date and cell
func SyntheticForecast(date time.Time, at models.Coordinate) models.Forecast {
	h := fnv.New64a()
	_, _ = h.Write([]byte(forecastKey(date, at)))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	conds := seasonConditions[date.Month()]
	roll := rng.Float64()
	cond := conds[2]
	switch {
	case roll < 0.5:
		cond = conds[0]
	case roll < 0.8:
		cond = conds[1]
	}

	temp := monthlyHighC[date.Month()-1] + rng.Intn(7) - 3

	var precip int
	switch cond {
	case "Snow", "Rain", "Thunderstorm", "Showers":
		precip = 55 + rng.Intn(36)
	case "Cloudy", "Partly cloudy":
		precip = 15 + rng.Intn(21)
	default:
		precip = rng.Intn(11)
	}

	return models.Forecast{
		Date:              date.Format(models.DateLayout),
		Condition:         cond,
		TemperatureC:      temp,
		Display:           displayForecast(cond, temp),
		PrecipProbability: precip,
		Source:            models.ForecastSourceSynthetic,
	}
}
