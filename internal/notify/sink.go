package notify

import (
	"context"
	"log/slog"

	"github.com/jengzang/tripguide-backend-go/internal/arrival"
	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// Publisher receives itinerary and arrival events
type Publisher interface {
	arrival.Sink
	PublishItinerary(it *models.Itinerary)
}

// LogSink writes events to the structured log
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink over logger, or the default logger when nil
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "notify")}
}

// Publish logs an arrival event
func (s *LogSink) Publish(e arrival.Event) {
	attrs := []any{"type", e.Type, "state", e.State, "plan", e.Plan.String(), "reason", e.Reason}
	if e.Stop != nil {
		attrs = append(attrs, "day", e.Stop.Day, "activity", e.Stop.ActivityID)
	}
	if e.PromptID != "" {
		attrs = append(attrs, "prompt", e.PromptID)
	}
	s.logger.Info("arrival event", attrs...)
}

// PublishItinerary logs an itinerary change
func (s *LogSink) PublishItinerary(it *models.Itinerary) {
	s.logger.Info("itinerary changed", "plan", it.Key.String(), "days", len(it.Days),
		"stops", it.StopCount(), "locked", it.Locked)
}

// Handoff logs the on-site guidance hand-off
func (s *LogSink) Handoff(_ context.Context, day int, activityID string) {
	s.logger.Info("on-site guidance", "day", day, "activity", activityID)
}

// Fanout publishes to every publisher in order
type Fanout []Publisher

// Publish forwards an arrival event
func (f Fanout) Publish(e arrival.Event) {
	for _, p := range f {
		p.Publish(e)
	}
}

// PublishItinerary forwards an itinerary change
func (f Fanout) PublishItinerary(it *models.Itinerary) {
	for _, p := range f {
		p.PublishItinerary(it)
	}
}
