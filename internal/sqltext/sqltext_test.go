package sqltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "abc", "abc"},
		{"backslash", `-\d`, `-\\d`},
		{"double quote", `say "hi"`, `say \"hi\"`},
		{"control characters", "a\tb\n", `a\tb\n`},
		{"single quote untouched", "it's", "it's"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Escape(tt.in)
			assert.Equal(t, tt.want, got)

			back, err := Unescape(got)
			require.NoError(t, err)
			assert.Equal(t, tt.in, back)
		})
	}
}

func TestUnescapeInvalid(t *testing.T) {
	_, err := Unescape(`trailing\`)
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"my table"`, QuoteIdent("my table"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
	assert.Equal(t, `"a", "b"`, QuoteIdents([]string{"a", "b"}))
	assert.Equal(t, `'it''s'`, QuoteString("it's"))
}
