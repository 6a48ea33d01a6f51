package models

import "time"

// ActivePlan is the tracking session restored on restart
type ActivePlan struct {
	Key        PlanKey   `json:"key"`
	Day        int       `json:"day"`
	GuidedTour bool      `json:"guidedTour"`
	Profile    string    `json:"profile"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
