package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/scheduler"
	"github.com/jengzang/tripguide-backend-go/internal/service"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrPlanNotFound, http.StatusNotFound},
		{service.ErrPlanLocked, http.StatusConflict},
		{service.ErrNoActiveSession, http.StatusConflict},
		{fmt.Errorf("%w: day 4", service.ErrInvalidRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: bad start", scheduler.ErrInvalidDateRange), http.StatusBadRequest},
		{fmt.Errorf("%w: x", scheduler.ErrActivityNotFound), http.StatusBadRequest},
		{scheduler.ErrInvalidSwap, http.StatusBadRequest},
		{arrival.ErrTrackerClosed, http.StatusServiceUnavailable},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
