package mastery

import (
	"time"

	"github.com/human-catalyst/catalyst-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK CALCULATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakWindowDays bounds how far back completions are fetched for a
// streak calculation. A streak longer than the window reports the
// window length; that is an accepted display ceiling.
const StreakWindowDays = 30

// CalculateStreak returns the consecutive-day completion streak ending
// at the reference day. A completion today anchors the walk at today;
// otherwise the streak survives until end of day and the walk starts at
// yesterday. Days are UTC calendar days, duplicate completions on one
// day count once.
func CalculateStreak(completions []time.Time, now time.Time) int {
	if len(completions) == 0 {
		return 0
	}

	days := make(map[string]struct{}, len(completions))
	for _, c := range completions {
		days[timeutil.DayKey(c)] = struct{}{}
	}

	check := now.UTC()
	if _, completedToday := days[timeutil.DayKey(check)]; !completedToday {
		check = check.AddDate(0, 0, -1)
	}

	streak := 0
	for {
		if _, ok := days[timeutil.DayKey(check)]; !ok {
			break
		}
		streak++
		check = check.AddDate(0, 0, -1)
	}

	return streak
}

// CompletedOn reports whether any completion falls on the same UTC day
// as the reference time.
func CompletedOn(completions []time.Time, day time.Time) bool {
	key := timeutil.DayKey(day)
	for _, c := range completions {
		if timeutil.DayKey(c) == key {
			return true
		}
	}
	return false
}

// StreakIsBroken reports whether a previously positive streak has
// lapsed: no completion today or yesterday.
func StreakIsBroken(completions []time.Time, now time.Time) bool {
	return CalculateStreak(completions, now) == 0
}
