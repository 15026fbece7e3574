package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var reservedRe = regexp.MustCompile(`[+\-&|!(){}\[\]^"~*?:\\/]`)

// needsQuote reports whether s holds any Unicode space or separator, a
// parenthesis or a colon.
func needsQuote(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.In(r, unicode.Z) || strings.ContainsRune("():", r)
	}) >= 0
}

// FormatValue renders a literal for embedding after "field:". A nil value
// renders as "". Every reserved query character is replaced by a single
// backslash (the character itself is dropped), and a result that still
// contains whitespace, a parenthesis or a colon is wrapped in double quotes.
func FormatValue(value any) string {
	if value == nil {
		return `""`
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return `""`
		}
		s = *v
	default:
		s = fmt.Sprint(v)
	}

	escaped := reservedRe.ReplaceAllLiteralString(s, `\`)
	if needsQuote(escaped) {
		return `"` + escaped + `"`
	}
	return escaped
}

// FormatPhrase renders a path or other verbatim value as a quoted phrase.
// Only backslashes and double quotes are escaped, by prefixing them.
func FormatPhrase(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(value) + `"`
}

func term(field, formatted string) string {
	return field + ":" + formatted
}

// anyOf ORs the values of one field, parenthesised when there is more than
// one term.
func anyOf(field string, values []string) string {
	terms := make([]string, len(values))
	for i, v := range values {
		terms[i] = term(field, FormatValue(v))
	}
	return group(terms, "OR")
}

// group joins terms with op, parenthesising when there is more than one.
func group(terms []string, op string) string {
	switch len(terms) {
	case 0:
		return ""
	case 1:
		return terms[0]
	default:
		return "(" + strings.Join(terms, " "+op+" ") + ")"
	}
}
