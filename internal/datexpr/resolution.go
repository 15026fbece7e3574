package datexpr

import "time"

// Layout is the backend's instant format: ISO-8601, whole seconds, no zone
// designator. Every instant is rendered in UTC.
const Layout = "2006-01-02T15:04:05"

// Wildcard marks an open range bound.
const Wildcard = "*"

// FormatInstant renders t in the backend's instant format.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(Layout)
}

// DateRange is an inclusive range of instants.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// String renders the range as "[start TO end]".
func (r DateRange) String() string {
	return FormatRange(FormatInstant(r.Start), FormatInstant(r.End))
}

// FormatRange renders pre-formatted bounds as a range query. Either bound may
// be Wildcard.
func FormatRange(start, end string) string {
	return "[" + start + " TO " + end + "]"
}

// Resolution is the outcome of resolving a date expression: either a single
// instant or an inclusive range.
type Resolution struct {
	Instant time.Time
	Range   *DateRange
}

// IsRange reports whether the resolution is a range.
func (r Resolution) IsRange() bool { return r.Range != nil }

// Lower returns the earliest instant covered by the resolution.
func (r Resolution) Lower() time.Time {
	if r.Range != nil {
		return r.Range.Start
	}
	return r.Instant
}

// Upper returns the latest instant covered by the resolution.
func (r Resolution) Upper() time.Time {
	if r.Range != nil {
		return r.Range.End
	}
	return r.Instant
}

// String renders an instant or a "[start TO end]" range.
func (r Resolution) String() string {
	if r.Range != nil {
		return r.Range.String()
	}
	return FormatInstant(r.Instant)
}

func instantOf(t time.Time) Resolution { return Resolution{Instant: t} }

func rangeOf(start, end time.Time) Resolution {
	return Resolution{Range: &DateRange{Start: start, End: end}}
}
