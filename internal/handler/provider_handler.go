package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/pkg/response"
)

// ForecastLookup answers day forecasts
type ForecastLookup interface {
	Day(ctx context.Context, date time.Time, at models.Coordinate) models.Forecast
}

// PlaceLookup answers venue metadata
type PlaceLookup interface {
	Lookup(ctx context.Context, at models.Coordinate, name string) *models.Place
}

// ProviderHandler exposes the forecast and place lookups
type ProviderHandler struct {
	forecasts ForecastLookup
	places    PlaceLookup
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(forecasts ForecastLookup, places PlaceLookup) *ProviderHandler {
	return &ProviderHandler{forecasts: forecasts, places: places}
}

// Forecast handles GET /api/v1/forecast?date=&lat=&lng=
func (h *ProviderHandler) Forecast(c *gin.Context) {
	date, err := time.Parse(models.DateLayout, c.Query("date"))
	if err != nil {
		response.BadRequest(c, "Invalid date", err)
		return
	}
	at, ok := queryCoordinate(c)
	if !ok {
		return
	}
	response.Success(c, h.forecasts.Day(c.Request.Context(), date, at))
}

// Place handles GET /api/v1/places?lat=&lng=&name=
func (h *ProviderHandler) Place(c *gin.Context) {
	at, ok := queryCoordinate(c)
	if !ok {
		return
	}
	name := c.Query("name")
	if name == "" {
		response.BadRequest(c, "Missing name", nil)
		return
	}

	place := h.places.Lookup(c.Request.Context(), at, name)
	if place == nil {
		response.NotFound(c, "Place not found")
		return
	}
	response.Success(c, place)
}

func queryCoordinate(c *gin.Context) (models.Coordinate, bool) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	at := models.Coordinate{Lat: lat, Lng: lng}
	if errLat != nil || errLng != nil || !at.Valid() {
		response.BadRequest(c, "Invalid coordinates", nil)
		return models.Coordinate{}, false
	}
	return at, true
}
