package models

import "strings"

// Activity is a candidate point of interest from the catalog.
// Time is only set on the copies a scheduling run emits.
type Activity struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Category        string      `json:"category"`
	Tags            []string    `json:"tags,omitempty"`
	PriceTier       int         `json:"priceTier"` // 1~3
	Location        *Coordinate `json:"location,omitempty"`
	Duration        string      `json:"duration"` // e.g. "1 hr 30 min"
	RequiresBooking bool        `json:"requiresBooking"`
	Description     string      `json:"description,omitempty"`
	Neighborhood    string      `json:"neighborhood,omitempty"`
	Tip             string      `json:"tip,omitempty"`

	// Scheduling annotations
	Time string `json:"time,omitempty"` // HH:MM
}

// Category constants used by scoring
const (
	CategoryArchitecture = "Architecture"
	CategoryOutdoors     = "Outdoors"
)

// HasLocation reports whether the activity carries a usable coordinate
func (a Activity) HasLocation() bool {
	return a.Location != nil && a.Location.Valid()
}

// HasTag reports whether tag matches the category or one of the tags, case-insensitively
func (a Activity) HasTag(tag string) bool {
	if tag == "" {
		return false
	}
	if strings.EqualFold(a.Category, tag) {
		return true
	}
	for _, t := range a.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// IsOutdoor reports whether the activity happens outside
func (a Activity) IsOutdoor() bool {
	return a.HasTag(CategoryOutdoors) || a.HasTag("outdoor")
}

// Clone returns a deep copy so schedule annotations never touch the catalog entry
func (a Activity) Clone() Activity {
	c := a
	if a.Location != nil {
		loc := *a.Location
		c.Location = &loc
	}
	if a.Tags != nil {
		c.Tags = append([]string(nil), a.Tags...)
	}
	return c
}
