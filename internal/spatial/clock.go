package spatial

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MinutesPerDay is the wraparound for clock values
const MinutesPerDay = 24 * 60

// FormatClock renders minutes since midnight as HH:MM, wrapping outside 0..1439
func FormatClock(totalMinutes int) string {
	m := ((totalMinutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

var clockPattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)

// ParseClock parses HH:MM into minutes since midnight
func ParseClock(s string) (int, bool) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if h > 23 || min > 59 {
		return 0, false
	}
	return h*60 + min, true
}

// DurationLabel renders minutes as "H hr", "M min" or "H hr M min", with a 15 minute floor
func DurationLabel(minutes int) string {
	if minutes < 15 {
		minutes = 15
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d min", m)
	case m == 0:
		return fmt.Sprintf("%d hr", h)
	default:
		return fmt.Sprintf("%d hr %d min", h, m)
	}
}

// DefaultDurationMinutes is used when a label carries no hour or minute token
const DefaultDurationMinutes = 90

var (
	hourToken   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)(?:[^a-z]|$)`)
	minuteToken = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes?|mins?|m)(?:[^a-z]|$)`)
)

// ParseDurationToMinutes extracts hour and minute tokens from a free-text label.
// Empty input yields def; text without tokens yields DefaultDurationMinutes.
func ParseDurationToMinutes(label string, def int) int {
	label = strings.TrimSpace(label)
	if label == "" {
		return def
	}

	total := 0.0
	matched := false
	if m := hourToken.FindStringSubmatch(label); m != nil {
		if h, err := strconv.ParseFloat(m[1], 64); err == nil {
			total += h * 60
			matched = true
		}
	}
	if m := minuteToken.FindStringSubmatch(label); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			total += float64(v)
			matched = true
		}
	}
	if !matched {
		return DefaultDurationMinutes
	}
	return int(total + 0.5)
}
