// Package timeutil provides calendar helpers for field-recorded dates.
// Community health workers record dates in local time (India Standard Time,
// UTC+5:30); ages are counted in whole calendar months.
package timeutil

import "time"

// IST is India Standard Time (UTC+5:30, no DST).
var IST = time.FixedZone("Asia/Kolkata", 5*60*60+30*60)

// Date creates a midnight time in IST with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, IST)
}

// DaysIn returns the number of days in the month containing t.
func DaysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// WholeMonthsBetween counts the completed calendar months from 'from' to 'to'.
// A month is complete once the day-of-month of 'from' is reached again; when
// that day does not exist in the target month, its last day completes it
// (born Jan 31 ⇒ one month old on Feb 28/29).
// The result is negative when 'to' precedes 'from'; callers clamp.
func WholeMonthsBetween(from, to time.Time) int {
	from = from.In(IST)
	to = to.In(IST)

	if to.Before(from) {
		return -WholeMonthsBetween(to, from)
	}

	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())

	anniversary := from.Day()
	if last := DaysIn(to); anniversary > last {
		anniversary = last
	}
	if to.Day() < anniversary {
		months--
	}
	return months
}
