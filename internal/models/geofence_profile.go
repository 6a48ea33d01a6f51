package models

import (
	"fmt"
	"time"
)

// GeofenceProfile holds the arrival detection thresholds.
// Field names follow the recognized options radiusMeters, dwellMs, snoozeMs, promptClearMeters.
type GeofenceProfile struct {
	Name        string `json:"name" yaml:"-"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	RadiusMeters      float64 `json:"radiusMeters" yaml:"radiusMeters"`           // entry geofence
	DwellMs           int64   `json:"dwellMs" yaml:"dwellMs"`                     // time inside before prompting
	SnoozeMs          int64   `json:"snoozeMs" yaml:"snoozeMs"`                   // cooldown after "no"
	PromptClearMeters float64 `json:"promptClearMeters" yaml:"promptClearMeters"` // walk-away distance
}

// Dwell returns the dwell threshold as a duration
func (p GeofenceProfile) Dwell() time.Duration {
	return time.Duration(p.DwellMs) * time.Millisecond
}

// Snooze returns the snooze cooldown as a duration
func (p GeofenceProfile) Snooze() time.Duration {
	return time.Duration(p.SnoozeMs) * time.Millisecond
}

// Validate checks that every threshold is usable
func (p GeofenceProfile) Validate() error {
	if p.RadiusMeters <= 0 {
		return fmt.Errorf("profile %q: radiusMeters must be positive", p.Name)
	}
	if p.DwellMs < 0 || p.SnoozeMs < 0 {
		return fmt.Errorf("profile %q: dwellMs and snoozeMs must not be negative", p.Name)
	}
	if p.PromptClearMeters < p.RadiusMeters {
		return fmt.Errorf("profile %q: promptClearMeters must be at least radiusMeters", p.Name)
	}
	return nil
}

// Built-in profile names
const (
	ProfileDefault   = "default"
	ProfileIndoor    = "indoor"
	ProfileCityBlock = "city-block"
)

// BuiltinGeofenceProfiles returns the profiles available without a config file
func BuiltinGeofenceProfiles() map[string]GeofenceProfile {
	return map[string]GeofenceProfile{
		ProfileDefault: {
			Name:              ProfileDefault,
			Description:       "Street-level venue entrance",
			RadiusMeters:      100,
			DwellMs:           2 * 60 * 1000,
			SnoozeMs:          10 * 60 * 1000,
			PromptClearMeters: 250,
		},
		ProfileIndoor: {
			Name:              ProfileIndoor,
			Description:       "Tight indoor-scale fence for museums and halls",
			RadiusMeters:      40,
			DwellMs:           90 * 1000,
			SnoozeMs:          10 * 60 * 1000,
			PromptClearMeters: 90,
		},
		ProfileCityBlock: {
			Name:              ProfileCityBlock,
			Description:       "Loose city-block fence for field testing",
			RadiusMeters:      400,
			DwellMs:           15 * 1000,
			SnoozeMs:          60 * 1000,
			PromptClearMeters: 800,
		},
	}
}
