// Package schedule computes the desired fleet size of a machine type from
// its declarative schedule.
//
// A schedule is a list of daily time-of-day windows plus a list of
// load-based bounds; both are optional and independently applicable. The
// current instant is taken from now.Now so that tests can control it.
package schedule

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.skia.org/fleet/botpolicy/go/config"
	"go.skia.org/fleet/go/now"
)

// ParseTimeOfDay parses an "HH:MM" wall-clock string and returns the minute
// of the day in [0, 1440).
func ParseTimeOfDay(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("Expected time format \"HH:MM\", not %q", s)
	}
	hours, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, fmt.Errorf("Expected time format \"HH:MM\", not %q", s)
	}
	minutes, err := strconv.Atoi(s[3:])
	if err != nil {
		return 0, fmt.Errorf("Expected time format \"HH:MM\", not %q", s)
	}
	if hours < 0 || hours > 23 {
		return 0, fmt.Errorf("Hours must be between 0-23, not %d", hours)
	}
	if minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("Minutes must be between 0-59, not %d", minutes)
	}
	return hours*60 + minutes, nil
}

// DayOfWeek returns the day index of the given instant using the schedule
// convention of 0 (Monday) through 6 (Sunday).
func DayOfWeek(ts time.Time) int {
	return (int(ts.Weekday()) + 6) % 7
}

// Matches returns true if the given instant falls on one of the entry's days
// and inside its [start, end) window. Entries with malformed times never
// match; validation rejects them before a snapshot is built.
func Matches(d *config.DailySchedule, ts time.Time) bool {
	start, err := ParseTimeOfDay(d.Start)
	if err != nil {
		return false
	}
	end, err := ParseTimeOfDay(d.End)
	if err != nil {
		return false
	}
	day := DayOfWeek(ts)
	onDay := false
	for _, wd := range d.DaysOfTheWeek {
		if wd == day {
			onDay = true
			break
		}
	}
	if !onDay {
		return false
	}
	minute := ts.Hour()*60 + ts.Minute()
	return minute >= start && minute < end
}

// loadBounds intersects the [MinimumSize, MaximumSize] ranges of all
// load-based entries. If the intersection is empty the tighter (larger)
// lower bound wins and the range collapses to a single value.
func loadBounds(entries []config.LoadBased) (int, int) {
	lo := 0
	hi := math.MaxInt
	for _, lb := range entries {
		if lb.MinimumSize > lo {
			lo = lb.MinimumSize
		}
		if lb.MaximumSize < hi {
			hi = lb.MaximumSize
		}
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// TargetSize returns the number of machines the given machine type should
// have leased at the instant provided by now.Now(ctx).
//
// The baseline is the target size of the first daily entry whose window
// contains the instant, falling back to the machine type's own target size.
// If any load-based entries exist they replace the baseline with the
// observed utilization clamped into the intersection of their ranges, so
// that the fleet tracks demand within configured bounds. The result is never
// negative.
func TargetSize(ctx context.Context, mt *config.MachineType, utilization int) int {
	target := mt.TargetSize
	if mt.Schedule != nil {
		ts := now.Now(ctx).UTC()
		for i := range mt.Schedule.Daily {
			if Matches(&mt.Schedule.Daily[i], ts) {
				target = mt.Schedule.Daily[i].TargetSize
				break
			}
		}
		if len(mt.Schedule.LoadBased) > 0 {
			lo, hi := loadBounds(mt.Schedule.LoadBased)
			target = utilization
			if target < lo {
				target = lo
			}
			if target > hi {
				target = hi
			}
		}
	}
	if target < 0 {
		return 0
	}
	return target
}
