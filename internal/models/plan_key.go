package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the civil date format used by plan keys
const DateLayout = "2006-01-02"

// PlanKey identifies an itinerary by its selected date range.
// Confirmations, locks and arrival records are scoped to it.
type PlanKey struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewPlanKey builds a key from two dates, dropping the time of day
func NewPlanKey(start, end time.Time) PlanKey {
	return PlanKey{Start: start.Format(DateLayout), End: end.Format(DateLayout)}
}

// String renders the key as "start_end"
func (k PlanKey) String() string {
	return k.Start + "_" + k.End
}

// IsZero reports whether no range is selected
func (k PlanKey) IsZero() bool {
	return k.Start == "" && k.End == ""
}

// Dates expands the key into its calendar dates
func (k PlanKey) Dates() ([]time.Time, error) {
	start, err := time.Parse(DateLayout, k.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", k.Start, err)
	}
	end, err := time.Parse(DateLayout, k.End)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", k.End, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", k.End, k.Start)
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}

// ParsePlanKey parses the "start_end" form produced by String
func ParsePlanKey(s string) (PlanKey, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PlanKey{}, fmt.Errorf("invalid plan key %q", s)
	}
	key := PlanKey{Start: parts[0], End: parts[1]}
	if _, err := key.Dates(); err != nil {
		return PlanKey{}, err
	}
	return key, nil
}
