package models

import (
	"math"
	"time"
)

// LocationSample is one fix delivered by the geolocation source
type LocationSample struct {
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	AccuracyMeters float64   `json:"accuracyMeters"`
	Timestamp      time.Time `json:"timestamp"`
}

// Usable reports whether the sample has finite in-range coordinates
func (s LocationSample) Usable() bool {
	if math.IsNaN(s.AccuracyMeters) {
		return false
	}
	return Coordinate{Lat: s.Lat, Lng: s.Lng}.Valid()
}

// Coordinate returns the sample position
func (s LocationSample) Coordinate() Coordinate {
	return Coordinate{Lat: s.Lat, Lng: s.Lng}
}

// StopKey addresses one scheduled stop of an itinerary
type StopKey struct {
	Day        int    `json:"day"`
	ActivityID string `json:"activityId"`
}

// ArrivalRecord is the per-stop arrival outcome.
// ConfirmedAt and SnoozedUntil are never both set.
type ArrivalRecord struct {
	Stop         StopKey    `json:"stop"`
	ConfirmedAt  *time.Time `json:"confirmedAt,omitempty"`
	SnoozedUntil *time.Time `json:"snoozedUntil,omitempty"`
}

// Confirmed reports whether the stop was confirmed
func (r ArrivalRecord) Confirmed() bool {
	return r.ConfirmedAt != nil
}

// SnoozedAt reports whether the snooze is still running at now
func (r ArrivalRecord) SnoozedAt(now time.Time) bool {
	return r.SnoozedUntil != nil && now.Before(*r.SnoozedUntil)
}
