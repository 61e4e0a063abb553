package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: "''"},
		{name: "plain", in: "savepoint", want: "'savepoint'"},
		{name: "single quote", in: "it's", want: "'it''s'"},
		{name: "only quotes", in: "''", want: "''''''"},
		{name: "double quote untouched", in: `say "hi"`, want: `'say "hi"'`},
		{name: "newlines kept", in: "a\r\nb", want: "'a\r\nb'"},
		{name: "unicode kept", in: "savè mę 😱", want: "'savè mę 😱'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Literal(tt.in))
		})
	}
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, `""`, Identifier(""))
	assert.Equal(t, `"cars"`, Identifier("cars"))
	assert.Equal(t, `"odd ""name"""`, Identifier(`odd "name"`))
	assert.Equal(t, `"it's"`, Identifier("it's"))
}
