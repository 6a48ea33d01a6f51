package provider

import (
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

// The hours grammar is a semicolon separated list of rules:
//
//	Mo-Fr 09:00-17:00; Sa 10:00-14:00,18:00-22:00; Su off
//
// Day lists accept ranges ("Mo-Fr") and commas ("Sa,Su"). A closing time at or
// before the opening time runs past midnight. "24/7" means always open.

var dayAbbrev = map[string]time.Weekday{
	"mo": time.Monday,
	"tu": time.Tuesday,
	"we": time.Wednesday,
	"th": time.Thursday,
	"fr": time.Friday,
	"sa": time.Saturday,
	"su": time.Sunday,
}

type timeSpan struct {
	open, close int // minutes since midnight
}

// OpeningHours is a parsed weekly schedule
type OpeningHours struct {
	always bool
	days   map[time.Weekday][]timeSpan
}

// ParseOpeningHours parses the hours grammar
func ParseOpeningHours(s string) (*OpeningHours, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty hours")
	}
	h := &OpeningHours{days: make(map[time.Weekday][]timeSpan)}
	if s == "24/7" {
		h.always = true
		return h, nil
	}

	for _, rule := range strings.Split(s, ";") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		fields := strings.Fields(rule)
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid rule %q", rule)
		}
		days, err := parseDays(fields[0])
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(fields[1], "off") || strings.EqualFold(fields[1], "closed") {
			for _, d := range days {
				h.days[d] = nil
			}
			continue
		}
		spans, err := parseSpans(fields[1])
		if err != nil {
			return nil, err
		}
		for _, d := range days {
			h.days[d] = append(h.days[d], spans...)
		}
	}
	return h, nil
}

func parseDays(s string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, part := range strings.Split(strings.ToLower(s), ",") {
		bounds := strings.SplitN(part, "-", 2)
		from, ok := dayAbbrev[bounds[0]]
		if !ok {
			return nil, fmt.Errorf("invalid day %q", bounds[0])
		}
		if len(bounds) == 1 {
			out = append(out, from)
			continue
		}
		to, ok := dayAbbrev[bounds[1]]
		if !ok {
			return nil, fmt.Errorf("invalid day %q", bounds[1])
		}
		for d := from; ; d = (d + 1) % 7 {
			out = append(out, d)
			if d == to {
				break
			}
		}
	}
	return out, nil
}

func parseSpans(s string) ([]timeSpan, error) {
	var out []timeSpan
	for _, part := range strings.Split(s, ",") {
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid time range %q", part)
		}
		opens, ok := spatial.ParseClock(bounds[0])
		if !ok {
			return nil, fmt.Errorf("invalid time %q", bounds[0])
		}
		closes, ok := spatial.ParseClock(bounds[1])
		if !ok && bounds[1] == "24:00" {
			closes, ok = spatial.MinutesPerDay, true
		}
		if !ok {
			return nil, fmt.Errorf("invalid time %q", bounds[1])
		}
		out = append(out, timeSpan{open: opens, close: closes})
	}
	return out, nil
}

// OpenAt reports whether the venue is open at t (in t's location)
func (h *OpeningHours) OpenAt(t time.Time) bool {
	if h.always {
		return true
	}
	minute := t.Hour()*60 + t.Minute()
	for _, span := range h.days[t.Weekday()] {
		if span.close > span.open {
			if minute >= span.open && minute < span.close {
				return true
			}
		} else if minute >= span.open {
			return true
		}
	}
	// spans from yesterday running past midnight
	for _, span := range h.days[(t.Weekday()+6)%7] {
		if span.close <= span.open && minute < span.close {
			return true
		}
	}
	return false
}
