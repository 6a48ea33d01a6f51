package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/scheduler"
	"github.com/jengzang/tripguide-backend-go/internal/service"
	"github.com/jengzang/tripguide-backend-go/pkg/response"
)

// statusFor maps service and scheduler errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPlanLocked):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoActiveSession):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, scheduler.ErrInvalidDateRange),
		errors.Is(err, scheduler.ErrDayOutOfRange),
		errors.Is(err, scheduler.ErrActivityNotFound),
		errors.Is(err, scheduler.ErrInvalidTime),
		errors.Is(err, scheduler.ErrInvalidSwap):
		return http.StatusBadRequest
	case errors.Is(err, arrival.ErrTrackerClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, message string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Error(c, code, message, err)
}
