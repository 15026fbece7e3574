// Package datexpr resolves human date expressions ("yesterday", "last 2
// weeks", "January 1st", "2024-03-05") against a reference instant into the
// instants and inclusive ranges used by backend range queries.
package datexpr

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	relativeRe = regexp.MustCompile(`^(this|next|last|past)\s+(\d+)?\s*(day|week|month|year)s?$`)
	yearRe     = regexp.MustCompile(`\d{4}`)
	dayRe      = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)?`)
	ordinalRe  = regexp.MustCompile(`(?i)(\d+)(?:st|nd|rd|th)\b`)
)

var monthNames = [...]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Resolver turns date expressions into instants or ranges. It holds no
// per-call state; the reference instant travels with every call, so one
// Resolver is safe for concurrent use.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve interprets expression relative to reference. The first matching
// form wins: day keywords, relative units, month names, then a generic
// calendar parse. All arithmetic happens in UTC.
func (r *Resolver) Resolve(expression string, reference time.Time) (Resolution, error) {
	if reference.IsZero() {
		return Resolution{}, &ConfigurationError{Err: errors.New("reference instant is zero")}
	}
	ref := reference.UTC()
	normalized := strings.ToLower(strings.TrimSpace(expression))
	if normalized == "" {
		return Resolution{}, &DateParseError{Expression: expression, Err: errEmptyExpression}
	}

	switch normalized {
	case "today":
		return rangeOf(dayStart(ref), dayEnd(ref)), nil
	case "yesterday":
		y := ref.AddDate(0, 0, -1)
		return rangeOf(dayStart(y), dayEnd(y)), nil
	}

	if m := relativeRe.FindStringSubmatch(normalized); m != nil {
		return relative(m[1], m[2], unitNames[m[3]], ref, expression)
	}

	if t, ok := monthDate(normalized, ref); ok {
		return instantOf(t), nil
	}

	return calendar(expression)
}

// ResolveRange resolves two expressions into one inclusive range spanning
// from the start expression's earliest instant to the end expression's
// latest instant.
func (r *Resolver) ResolveRange(start, end string, reference time.Time) (DateRange, error) {
	lo, err := r.Resolve(start, reference)
	if err != nil {
		return DateRange{}, err
	}
	hi, err := r.Resolve(end, reference)
	if err != nil {
		return DateRange{}, err
	}
	if lo.Lower().After(hi.Upper()) {
		return DateRange{}, &DateParseError{Expression: start + " - " + end, Err: errInvertedRange}
	}
	return DateRange{Start: lo.Lower(), End: hi.Upper()}, nil
}

func relative(relation, amount string, u unit, ref time.Time, expression string) (Resolution, error) {
	n := 1
	if amount != "" {
		v, err := strconv.Atoi(amount)
		if err != nil {
			return Resolution{}, &DateParseError{Expression: expression, Err: err}
		}
		// "0 weeks" reads as one week.
		if v > 0 {
			n = v
		}
	}

	if n > maxAmount[u] {
		return Resolution{}, &DateParseError{Expression: expression, Err: errOutOfRange}
	}

	var res Resolution
	switch relation {
	case "this":
		res = rangeOf(startOf(ref, u), endOf(ref, u))
	case "next":
		// Only the final unit reached is covered, not the units in between.
		target := move(startOf(ref, u), u, n)
		res = rangeOf(target, endOf(target, u))
	default: // last, past
		// The range closes at the end of the reference day, not the unit end.
		res = rangeOf(startOf(move(ref, u, -n), u), dayEnd(ref))
	}
	if !inYearRange(res.Lower()) || !inYearRange(res.Upper()) {
		return Resolution{}, &DateParseError{Expression: expression, Err: errOutOfRange}
	}
	return res, nil
}

// maxAmount bounds unit counts so moves cannot overflow; anything larger
// leaves years 1..9999 from any reference anyway.
var maxAmount = map[unit]int{
	unitDay:   10000 * 366,
	unitWeek:  10000 * 53,
	unitMonth: 10000 * 12,
	unitYear:  10000,
}

func inYearRange(t time.Time) bool {
	y := t.UTC().Year()
	return y >= 1 && y <= 9999
}

// monthDate handles expressions naming a month, with an optional four digit
// year (default: the reference year) and an optional day of month with an
// ordinal suffix (default: the 1st).
func monthDate(normalized string, ref time.Time) (time.Time, bool) {
	for i, name := range monthNames {
		if !strings.Contains(normalized, name) {
			continue
		}

		year := ref.Year()
		rest := normalized
		if loc := yearRe.FindStringIndex(normalized); loc != nil {
			year, _ = strconv.Atoi(normalized[loc[0]:loc[1]])
			rest = normalized[:loc[0]] + " " + normalized[loc[1]:]
		}

		day := 1
		if m := dayRe.FindStringSubmatch(rest); m != nil {
			day, _ = strconv.Atoi(m[1])
		}

		return time.Date(year, time.Month(i+1), day, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func calendar(expression string) (Resolution, error) {
	clean := ordinalRe.ReplaceAllString(strings.TrimSpace(expression), "$1")
	t, err := dateparse.ParseIn(clean, time.UTC)
	if err != nil {
		return Resolution{}, &DateParseError{Expression: expression, Err: err}
	}
	return instantOf(t.UTC()), nil
}

// ParseReference parses a caller-supplied reference instant. Values without
// an explicit offset are read in loc (UTC when nil).
func ParseReference(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, &ConfigurationError{Err: errEmptyExpression}
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseIn(v, loc)
	if err != nil {
		return time.Time{}, &ConfigurationError{Value: value, Err: err}
	}
	return t, nil
}
