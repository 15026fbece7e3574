package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValue(t *testing.T) {
	empty := (*string)(nil)
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"plain", "Approved", "Approved"},
		{"nil", nil, `""`},
		{"nil pointer", empty, `""`},
		{"empty", "", ""},
		{"whitespace quoted", "Annual Report", `"Annual Report"`},
		{"no-break space quoted", "John\u00a0Doe", "\"John\u00a0Doe\""},
		{"ideographic space quoted", "a\u3000b", "\"a\u3000b\""},
		{"tab quoted", "a\tb", "\"a\tb\""},
		{"reserved replaced", "a+b", `a\b`},
		{"colon replaced", "a:b", `a\b`},
		{"parens replaced then quoted", "x (y)", `"x \y\"`},
		{"slash replaced", "2024/06", `2024\06`},
		{"number", 42, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.value))
		})
	}
}

func TestFormatPhrase(t *testing.T) {
	assert.Equal(t, `"/Documents/Finance"`, FormatPhrase("/Documents/Finance"))
	assert.Equal(t, `"a \"b\" \\c"`, FormatPhrase(`a "b" \c`))
	assert.Equal(t, `""`, FormatPhrase(""))
}

func TestGroup(t *testing.T) {
	assert.Equal(t, "", group(nil, "OR"))
	assert.Equal(t, "a:1", group([]string{"a:1"}, "OR"))
	assert.Equal(t, "(a:1 AND b:2)", group([]string{"a:1", "b:2"}, "AND"))
	assert.Equal(t, "(f:x OR f:y)", anyOf("f", []string{"x", "y"}))
}
