package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/geosource"
	"github.com/jengzang/tripguide-backend-go/internal/service"
	"github.com/jengzang/tripguide-backend-go/pkg/response"
)

// ArrivalHandler handles HTTP requests for arrival tracking
type ArrivalHandler struct {
	service *service.ArrivalService
}

// NewArrivalHandler creates a new arrival handler
func NewArrivalHandler(service *service.ArrivalService) *ArrivalHandler {
	return &ArrivalHandler{service: service}
}

// RespondRequest answers an arrival prompt
type RespondRequest struct {
	PromptID string `json:"promptId"`
	Yes      bool   `json:"yes"`
}

// CheckInRequest confirms a stop manually
type CheckInRequest struct {
	Day        int    `json:"day" binding:"required"`
	ActivityID string `json:"activityId" binding:"required"`
}

// FailureRequest reports a geolocation failure
type FailureRequest struct {
	Kind arrival.FailureKind `json:"kind" binding:"required"`
}

// Activate handles POST /api/v1/arrival/activate
func (h *ArrivalHandler) Activate(c *gin.Context) {
	var req service.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}
	snap, err := h.service.Activate(c.Request.Context(), req)
	if err != nil {
		fail(c, "Failed to activate arrival tracking", err)
		return
	}
	response.Success(c, snap)
}

// Sample handles POST /api/v1/arrival/samples
func (h *ArrivalHandler) Sample(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}
	// Zero now leaves a missing timestamp for the service clock
	update, err := geosource.Decode(body, time.Time{})
	if err != nil {
		response.BadRequest(c, "Invalid location sample", err)
		return
	}
	if update.Sample == nil {
		response.BadRequest(c, "Invalid location sample", errors.New("geolocation failures belong on /arrival/failure"))
		return
	}
	events, err := h.service.Sample(c.Request.Context(), *update.Sample)
	if err != nil {
		fail(c, "Failed to process location sample", err)
		return
	}
	h.events(c, events)
}

// Failure handles POST /api/v1/arrival/failure
func (h *ArrivalHandler) Failure(c *gin.Context) {
	var req FailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}
	events, err := h.service.PermissionLost(c.Request.Context(), req.Kind)
	if err != nil {
		fail(c, "Failed to record geolocation failure", err)
		return
	}
	response.Success(c, gin.H{"events": nonNil(events), "message": req.Kind.Message()})
}

// Respond handles POST /api/v1/arrival/respond
func (h *ArrivalHandler) Respond(c *gin.Context) {
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}
	events, err := h.service.Respond(c.Request.Context(), req.PromptID, req.Yes)
	if err != nil {
		fail(c, "Failed to answer prompt", err)
		return
	}
	h.events(c, events)
}

// CheckIn handles POST /api/v1/arrival/checkin
func (h *ArrivalHandler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}
	events, err := h.service.CheckIn(c.Request.Context(), req.Day, req.ActivityID)
	if err != nil {
		fail(c, "Failed to check in", err)
		return
	}
	h.events(c, events)
}

// Stop handles POST /api/v1/arrival/stop
func (h *ArrivalHandler) Stop(c *gin.Context) {
	events, err := h.service.Stop(c.Request.Context())
	if err != nil {
		fail(c, "Failed to stop arrival tracking", err)
		return
	}
	h.events(c, events)
}

// State handles GET /api/v1/arrival/state
func (h *ArrivalHandler) State(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		fail(c, "Failed to read arrival state", err)
		return
	}
	response.Success(c, snap)
}

func (h *ArrivalHandler) events(c *gin.Context, events []arrival.Event) {
	response.Success(c, gin.H{"events": nonNil(events)})
}

func nonNil(events []arrival.Event) []arrival.Event {
	if events == nil {
		return []arrival.Event{}
	}
	return events
}
