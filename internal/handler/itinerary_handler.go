package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/scheduler"
	"github.com/jengzang/tripguide-backend-go/internal/service"
	"github.com/jengzang/tripguide-backend-go/pkg/response"
)

// ItineraryHandler handles HTTP requests for itineraries
type ItineraryHandler struct {
	itineraries *service.ItineraryService
	routes      *service.RouteService
}

// NewItineraryHandler creates a new itinerary handler
func NewItineraryHandler(itineraries *service.ItineraryService, routes *service.RouteService) *ItineraryHandler {
	return &ItineraryHandler{itineraries: itineraries, routes: routes}
}

// PlanRequest is the body of POST /itineraries
type PlanRequest struct {
	Start       string              `json:"start" binding:"required"`
	End         string              `json:"end" binding:"required"`
	Preferences *models.Preferences `json:"preferences"`
}

// MoveRequest is the body of POST /itineraries/:key/move
type MoveRequest struct {
	ActivityID string  `json:"activityId" binding:"required"`
	TargetDay  *int    `json:"targetDay"`
	TargetTime *string `json:"targetTime"`
}

// RetimeRequest is the body of POST /itineraries/:key/retime
type RetimeRequest struct {
	ActivityID string `json:"activityId" binding:"required"`
	Time       string `json:"time" binding:"required"`
}

// SwapRequest is the body of POST /itineraries/:key/swap
type SwapRequest struct {
	Day   int `json:"day"`
	Index int `json:"index"`
}

// Plan handles POST /api/v1/itineraries
func (h *ItineraryHandler) Plan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}
	if req.Preferences != nil && !req.Preferences.Mode.Valid() {
		req.Preferences.Mode = models.ModeWalking
	}

	it, err := h.itineraries.Plan(c.Request.Context(), models.PlanKey{Start: req.Start, End: req.End}, req.Preferences)
	if err != nil {
		fail(c, "Failed to plan itinerary", err)
		return
	}
	response.Success(c, it)
}

// List handles GET /api/v1/itineraries
func (h *ItineraryHandler) List(c *gin.Context) {
	keys, err := h.itineraries.Keys()
	if err != nil {
		fail(c, "Failed to list itineraries", err)
		return
	}
	response.Success(c, gin.H{"data": keys, "total": len(keys)})
}

// Get handles GET /api/v1/itineraries/:key
func (h *ItineraryHandler) Get(c *gin.Context) {
	key, ok := planKey(c)
	if !ok {
		return
	}
	it, err := h.itineraries.Get(key)
	if err != nil {
		fail(c, "Failed to get itinerary", err)
		return
	}
	response.Success(c, it)
}

// Move handles POST /api/v1/itineraries/:key/move
func (h *ItineraryHandler) Move(c *gin.Context) {
	key, ok := planKey(c)
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	it, err := h.itineraries.Move(key, req.ActivityID, scheduler.EditCommand{TargetDay: req.TargetDay, TargetTime: req.TargetTime})
	if err != nil {
		fail(c, "Failed to move activity", err)
		return
	}
	response.Success(c, it)
}

// Retime handles POST /api/v1/itineraries/:key/retime
func (h *ItineraryHandler) Retime(c *gin.Context) {
	key, ok := planKey(c)
	if !ok {
		return
	}
	var req RetimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	it, err := h.itineraries.Retime(key, req.ActivityID, req.Time)
	if err != nil {
		fail(c, "Failed to retime activity", err)
		return
	}
	response.Success(c, it)
}

// Swap handles POST /api/v1/itineraries/:key/swap
func (h *ItineraryHandler) Swap(c *gin.Context) {
	key, ok := planKey(c)
	if !ok {
		return
	}
	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	it, err := h.itineraries.Swap(key, req.Day, req.Index)
	if err != nil {
		fail(c, "Failed to swap activities", err)
		return
	}
	response.Success(c, it)
}

// Confirm handles POST /api/v1/itineraries/:key/confirm
func (h *ItineraryHandler) Confirm(c *gin.Context) {
	key, ok := planKey(c)
	if !ok {
		return
	}
	it, err := h.itineraries.Confirm(key)
	if err != nil {
		fail(c, "Failed to confirm itinerary", err)
		return
	}
	response.Success(c, it)
}

// Unlock handles POST /api/v1/itineraries/:key/unlock
func (h *ItineraryHandler) Unlock(c *gin.Context) {
	key, ok := planKey(c)
	if !ok {
		return
	}
	it, err := h.itineraries.Unlock(key)
	if err != nil {
		fail(c, "Failed to unlock itinerary", err)
		return
	}
	response.Success(c, it)
}

// Preview handles GET /api/v1/itineraries/:key/days/:day/preview?mode=
func (h *ItineraryHandler) Preview(c *gin.Context) {
	key, ok := planKey(c)
	if !ok {
		return
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		response.BadRequest(c, "Invalid day", err)
		return
	}
	mode := models.TransportMode(c.Query("mode"))
	if mode == "" {
		mode = models.ModeWalking
	}
	if !mode.Valid() {
		response.Error(c, http.StatusBadRequest, "Invalid transport mode", nil)
		return
	}

	preview, err := h.routes.Preview(c.Request.Context(), key, day, mode)
	if err != nil {
		fail(c, "Failed to preview routes", err)
		return
	}
	response.Success(c, preview)
}

// GetPreferences handles GET /api/v1/preferences
func (h *ItineraryHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.itineraries.Preferences()
	if err != nil {
		fail(c, "Failed to get preferences", err)
		return
	}
	response.Success(c, prefs)
}

// SavePreferences handles PUT /api/v1/preferences
func (h *ItineraryHandler) SavePreferences(c *gin.Context) {
	var prefs models.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}
	if err := h.itineraries.SavePreferences(prefs); err != nil {
		fail(c, "Failed to save preferences", err)
		return
	}
	response.Success(c, prefs)
}

func planKey(c *gin.Context) (models.PlanKey, bool) {
	key, err := models.ParsePlanKey(c.Param("key"))
	if err != nil {
		response.BadRequest(c, "Invalid plan key", err)
		return models.PlanKey{}, false
	}
	return key, true
}
