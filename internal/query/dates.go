package query

import (
	"errors"
	"strings"

	"github.com/starford/ansuz/internal/datexpr"
)

// compileDates groups date criteria by backend field. A field with both a
// ">=" and a "<=" criterion becomes one merged range built from the first of
// each; any other criteria on that field are ignored. Otherwise every
// criterion on the field is compiled on its own.
func (c *Compiler) compileDates(crits []DateCriterion, rc Context) (string, error) {
	var fields []string
	byField := make(map[string][]DateCriterion)
	for _, cr := range crits {
		if _, ok := byField[cr.Field]; !ok {
			fields = append(fields, cr.Field)
		}
		byField[cr.Field] = append(byField[cr.Field], cr)
	}

	var parts []string
	for _, field := range fields {
		fc := byField[field]
		lower, hasLower := firstWith(fc, OpGreaterEqual)
		upper, hasUpper := firstWith(fc, OpLessEqual)

		if hasLower && hasUpper {
			lo, err := c.resolveDate(lower, rc)
			if err != nil {
				return "", err
			}
			hi, err := c.resolveDate(upper, rc)
			if err != nil {
				return "", err
			}
			parts = append(parts, term(field, datexpr.FormatRange(
				datexpr.FormatInstant(lo.Lower()), datexpr.FormatInstant(hi.Upper()))))
			continue
		}

		for _, cr := range fc {
			res, err := c.resolveDate(cr, rc)
			if err != nil {
				return "", err
			}
			parts = append(parts, term(field, dateTerm(cr.Operator, res)))
		}
	}
	return strings.Join(parts, " AND "), nil
}

func dateTerm(op Operator, res datexpr.Resolution) string {
	switch op {
	case OpEqual:
		return res.String()
	case OpGreater, OpGreaterEqual:
		return datexpr.FormatRange(datexpr.FormatInstant(res.Lower()), datexpr.Wildcard)
	case OpLess, OpLessEqual:
		return datexpr.FormatRange(datexpr.Wildcard, datexpr.FormatInstant(res.Upper()))
	default:
		return `"` + res.String() + `"`
	}
}

func firstWith(crits []DateCriterion, op Operator) (DateCriterion, bool) {
	for _, cr := range crits {
		if cr.Operator == op {
			return cr, true
		}
	}
	return DateCriterion{}, false
}

// resolveDate resolves a criterion's expression, tagging parse failures with
// the backend field.
func (c *Compiler) resolveDate(cr DateCriterion, rc Context) (datexpr.Resolution, error) {
	values := cr.Expression.Values()
	if len(values) != 1 {
		return datexpr.Resolution{}, &datexpr.DateParseError{
			Field:      cr.Field,
			Expression: cr.Expression.String(),
			Err:        errMultipleDates,
		}
	}

	res, err := c.dates.Resolve(values[0], rc.Reference)
	if err != nil {
		var perr *datexpr.DateParseError
		if errors.As(err, &perr) {
			tagged := *perr
			tagged.Field = cr.Field
			return datexpr.Resolution{}, &tagged
		}
		return datexpr.Resolution{}, err
	}
	return res, nil
}
