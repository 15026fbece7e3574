package datexpr

import "time"

// unit is a calendar unit used by relative expressions.
type unit int

const (
	unitDay unit = iota
	unitWeek
	unitMonth
	unitYear
)

var unitNames = map[string]unit{
	"day":   unitDay,
	"week":  unitWeek,
	"month": unitMonth,
	"year":  unitYear,
}

// lastMilli puts day ends at 23:59:59.999.
const lastMilli = 999 * time.Millisecond

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(lastMilli), t.Location())
}

// startOf snaps t to the first instant of the unit containing it. Weeks start
// on Sunday (weekday index 0).
func startOf(t time.Time, u unit) time.Time {
	switch u {
	case unitWeek:
		return dayStart(t.AddDate(0, 0, -int(t.Weekday())))
	case unitMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case unitYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return dayStart(t)
	}
}

// endOf snaps t to the last millisecond of the unit containing it.
func endOf(t time.Time, u unit) time.Time {
	switch u {
	case unitWeek:
		return dayEnd(t.AddDate(0, 0, int(time.Saturday-t.Weekday())))
	case unitMonth:
		return dayEnd(time.Date(t.Year(), t.Month(), daysIn(t.Year(), t.Month()), 0, 0, 0, 0, t.Location()))
	case unitYear:
		return dayEnd(time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, t.Location()))
	default:
		return dayEnd(t)
	}
}

// move shifts t by n units (negative n moves backward). Month and year moves
// clamp the day of month so that e.g. March 31 minus one month is February's
// last day rather than an overflow into March.
func move(t time.Time, u unit, n int) time.Time {
	switch u {
	case unitWeek:
		return t.AddDate(0, 0, 7*n)
	case unitMonth:
		return addMonths(t, n)
	case unitYear:
		return addMonths(t, 12*n)
	default:
		return t.AddDate(0, 0, n)
	}
}

func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	shifted := first.AddDate(0, n, 0)
	day := min(t.Day(), daysIn(shifted.Year(), shifted.Month()))
	return shifted.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
