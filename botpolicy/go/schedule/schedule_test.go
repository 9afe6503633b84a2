package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.skia.org/fleet/botpolicy/go/config"
	"go.skia.org/fleet/go/now"
)

// ctxAt returns a context whose clock is frozen at the given UTC instant.
func ctxAt(ts time.Time) context.Context {
	return context.WithValue(context.Background(), now.ContextKey, ts)
}

var (
	// 2024-03-06 is a Wednesday, day 2 in the Monday-first convention.
	wednesday = time.Date(2024, time.March, 6, 10, 0, 0, 0, time.UTC)
	// 2024-03-09 is a Saturday, day 5.
	saturday = time.Date(2024, time.March, 9, 10, 0, 0, 0, time.UTC)
)

func TestParseTimeOfDay(t *testing.T) {
	check := func(s string, expected int) {
		actual, err := ParseTimeOfDay(s)
		require.NoError(t, err, s)
		require.Equal(t, expected, actual, s)
	}
	check("00:00", 0)
	check("08:00", 8*60)
	check("23:59", 23*60+59)

	fail := func(s, expected string) {
		_, err := ParseTimeOfDay(s)
		require.EqualError(t, err, expected)
	}
	fail("8:00", `Expected time format "HH:MM", not "8:00"`)
	fail("0800", `Expected time format "HH:MM", not "0800"`)
	fail("ab:00", `Expected time format "HH:MM", not "ab:00"`)
	fail("24:00", "Hours must be between 0-23, not 24")
	fail("12:60", "Minutes must be between 0-59, not 60")
}

func TestDayOfWeek_MondayFirst(t *testing.T) {
	require.Equal(t, 2, DayOfWeek(wednesday))
	require.Equal(t, 5, DayOfWeek(saturday))
	sunday := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 6, DayOfWeek(sunday))
	monday := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 0, DayOfWeek(monday))
}

func TestMatches_WindowBounds(t *testing.T) {
	d := &config.DailySchedule{
		Start:         "08:00",
		End:           "18:00",
		DaysOfTheWeek: []int{0, 1, 2, 3, 4},
	}
	at := func(h, m int) time.Time {
		return time.Date(2024, time.March, 6, h, m, 0, 0, time.UTC)
	}
	require.True(t, Matches(d, at(8, 0)))   // Start is inclusive.
	require.True(t, Matches(d, at(17, 59)))
	require.False(t, Matches(d, at(18, 0))) // End is exclusive.
	require.False(t, Matches(d, at(7, 59)))
	require.False(t, Matches(d, saturday))
}

func weekdayMachineType() *config.MachineType {
	return &config.MachineType{
		Name:              "skia-gce-linux",
		TargetSize:        3,
		LeaseDurationSecs: 3600,
		Schedule: &config.Schedule{
			Daily: []config.DailySchedule{
				{
					Start:         "08:00",
					End:           "18:00",
					DaysOfTheWeek: []int{0, 1, 2, 3, 4},
					TargetSize:    10,
				},
			},
		},
	}
}

func TestTargetSize_DailyWindow(t *testing.T) {
	mt := weekdayMachineType()

	// Wednesday 10:00 UTC falls inside the window.
	require.Equal(t, 10, TargetSize(ctxAt(wednesday), mt, 0))

	// Saturday falls back to the machine type's baseline.
	require.Equal(t, 3, TargetSize(ctxAt(saturday), mt, 0))
}

func TestTargetSize_OverlappingDailyWindows_FirstMatchWins(t *testing.T) {
	mt := weekdayMachineType()
	mt.Schedule.Daily = append(mt.Schedule.Daily, config.DailySchedule{
		Start:         "09:00",
		End:           "11:00",
		DaysOfTheWeek: []int{2},
		TargetSize:    99,
	})
	require.Equal(t, 10, TargetSize(ctxAt(wednesday), mt, 0))
}

func TestTargetSize_NoSchedule_Baseline(t *testing.T) {
	mt := &config.MachineType{Name: "plain", TargetSize: 7}
	require.Equal(t, 7, TargetSize(ctxAt(wednesday), mt, 100))
}

func TestTargetSize_LoadBased_TracksUtilizationWithinBounds(t *testing.T) {
	mt := &config.MachineType{
		Name:       "scaled",
		TargetSize: 2,
		Schedule: &config.Schedule{
			LoadBased: []config.LoadBased{
				{MinimumSize: 5, MaximumSize: 20},
			},
		},
	}
	require.Equal(t, 5, TargetSize(ctxAt(wednesday), mt, 0))    // Clamped up.
	require.Equal(t, 12, TargetSize(ctxAt(wednesday), mt, 12))  // Within bounds.
	require.Equal(t, 20, TargetSize(ctxAt(wednesday), mt, 300)) // Clamped down.
}

func TestTargetSize_MultipleLoadBased_RangesIntersect(t *testing.T) {
	mt := &config.MachineType{
		Name: "scaled",
		Schedule: &config.Schedule{
			LoadBased: []config.LoadBased{
				{MinimumSize: 5, MaximumSize: 20},
				{MinimumSize: 10, MaximumSize: 30},
			},
		},
	}
	// Effective range is [10, 20].
	require.Equal(t, 10, TargetSize(ctxAt(wednesday), mt, 0))
	require.Equal(t, 20, TargetSize(ctxAt(wednesday), mt, 25))
}

func TestTargetSize_EmptyLoadBasedIntersection_TighterLowerBoundWins(t *testing.T) {
	mt := &config.MachineType{
		Name: "scaled",
		Schedule: &config.Schedule{
			LoadBased: []config.LoadBased{
				{MinimumSize: 0, MaximumSize: 4},
				{MinimumSize: 10, MaximumSize: 30},
			},
		},
	}
	// [0,4] and [10,30] do not intersect; the range collapses to 10.
	require.Equal(t, 10, TargetSize(ctxAt(wednesday), mt, 0))
	require.Equal(t, 10, TargetSize(ctxAt(wednesday), mt, 100))
}

func TestTargetSize_LoadBasedOverridesDailyBaseline(t *testing.T) {
	mt := weekdayMachineType()
	mt.Schedule.LoadBased = []config.LoadBased{
		{MinimumSize: 1, MaximumSize: 4},
	}
	// Inside the daily window the load rule still governs the result.
	require.Equal(t, 4, TargetSize(ctxAt(wednesday), mt, 50))
	require.Equal(t, 1, TargetSize(ctxAt(wednesday), mt, 0))
}

func TestTargetSize_NeverNegative(t *testing.T) {
	mt := &config.MachineType{Name: "broken", TargetSize: -5}
	require.Equal(t, 0, TargetSize(ctxAt(wednesday), mt, 0))
}
