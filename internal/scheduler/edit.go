package scheduler

import (
	"fmt"
	"sort"

	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

// EditCommand moves an activity to another day, another time, or both.
// Nil fields keep the current value.
type EditCommand struct {
	TargetDay  *int    `json:"targetDay,omitempty"`
	TargetTime *string `json:"targetTime,omitempty"`
}

// SortActivities orders a day by time of day. Unparsable times sort last and
// equal keys keep their relative order.
func SortActivities(acts []models.Activity) {
	sort.SliceStable(acts, func(i, j int) bool {
		mi, oki := spatial.ParseClock(acts[i].Time)
		mj, okj := spatial.ParseClock(acts[j].Time)
		switch {
		case oki && okj:
			return mi < mj
		case oki:
			return true
		default:
			return false
		}
	})
}

// IsSorted reports whether a day is already in time order
func IsSorted(acts []models.Activity) bool {
	prev := -1
	sawUnparsable := false
	for _, a := range acts {
		m, ok := spatial.ParseClock(a.Time)
		if !ok {
			sawUnparsable = true
			continue
		}
		if sawUnparsable || m < prev {
			return false
		}
		prev = m
	}
	return true
}

// Move applies an edit command to one activity. Nothing changes unless every
// part of the command is valid.
func Move(it *models.Itinerary, activityID string, cmd EditCommand) error {
	fromDay, index, ok := it.Locate(activityID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrActivityNotFound, activityID)
	}

	toDay := fromDay
	if cmd.TargetDay != nil {
		toDay = *cmd.TargetDay
		if _, ok := it.DayByNumber(toDay); !ok {
			return fmt.Errorf("%w: %d", ErrDayOutOfRange, toDay)
		}
	}
	if cmd.TargetTime != nil {
		if _, ok := spatial.ParseClock(*cmd.TargetTime); !ok {
			return fmt.Errorf("%w: %q", ErrInvalidTime, *cmd.TargetTime)
		}
	}

	src, _ := it.DayByNumber(fromDay)
	act := src.Activities[index]
	if cmd.TargetTime != nil {
		act.Time = *cmd.TargetTime
	}

	if toDay == fromDay {
		src.Activities[index] = act
		SortActivities(src.Activities)
		return nil
	}

	src.Activities = append(src.Activities[:index:index], src.Activities[index+1:]...)
	dst, _ := it.DayByNumber(toDay)
	dst.Activities = append(dst.Activities, act)
	SortActivities(src.Activities)
	SortActivities(dst.Activities)
	return nil
}

// Retime changes the time of one activity and re-sorts its day
func Retime(it *models.Itinerary, activityID, clock string) error {
	return Move(it, activityID, EditCommand{TargetTime: &clock})
}

// Swap exchanges the activity at index with its successor, times included
func Swap(it *models.Itinerary, day, index int) error {
	d, ok := it.DayByNumber(day)
	if !ok {
		return fmt.Errorf("%w: %d", ErrDayOutOfRange, day)
	}
	if index < 0 || index+1 >= len(d.Activities) {
		return fmt.Errorf("%w: index %d on day %d", ErrInvalidSwap, index, day)
	}

	a, b := d.Activities[index], d.Activities[index+1]
	a.Time, b.Time = b.Time, a.Time
	d.Activities[index], d.Activities[index+1] = b, a
	SortActivities(d.Activities)
	return nil
}
