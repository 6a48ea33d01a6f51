package models

import "time"

// DayPlan is the ordered list of scheduled activities for one calendar date
type DayPlan struct {
	Day        int        `json:"day"` // 1-based
	Date       string     `json:"date"`
	Activities []Activity `json:"activities"`
	Forecast   *Forecast  `json:"forecast,omitempty"`
}

// Itinerary is one day plan per date of the plan key's range
type Itinerary struct {
	Key       PlanKey   `json:"key"`
	Days      []DayPlan `json:"days"`
	Locked    bool      `json:"locked"`
	Fallback  bool      `json:"fallback,omitempty"` // built by the randomized safety net
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DayByNumber returns the day plan for a 1-based day number
func (it *Itinerary) DayByNumber(day int) (*DayPlan, bool) {
	if it == nil || day < 1 || day > len(it.Days) {
		return nil, false
	}
	return &it.Days[day-1], true
}

// StopCount returns the total number of scheduled activities
func (it *Itinerary) StopCount() int {
	if it == nil {
		return 0
	}
	n := 0
	for _, d := range it.Days {
		n += len(d.Activities)
	}
	return n
}

// Locate finds the day number and index of an activity id
func (it *Itinerary) Locate(activityID string) (day int, index int, ok bool) {
	if it == nil {
		return 0, 0, false
	}
	for di, d := range it.Days {
		for ai, a := range d.Activities {
			if a.ID == activityID {
				return di + 1, ai, true
			}
		}
	}
	return 0, 0, false
}

// Clone returns a deep copy of the itinerary
func (it *Itinerary) Clone() *Itinerary {
	if it == nil {
		return nil
	}
	c := *it
	c.Days = make([]DayPlan, len(it.Days))
	for i, d := range it.Days {
		nd := d
		nd.Activities = make([]Activity, len(d.Activities))
		for j, a := range d.Activities {
			nd.Activities[j] = a.Clone()
		}
		if d.Forecast != nil {
			f := *d.Forecast
			nd.Forecast = &f
		}
		c.Days[i] = nd
	}
	return &c
}
