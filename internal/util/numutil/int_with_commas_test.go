package numutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntWithCommas(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Zero", IntWithCommas(0), "0"},
		{"Small", IntWithCommas(999), "999"},
		{"Thousand", IntWithCommas(1000), "1,000"},
		{"Grouped", IntWithCommas(12345), "12,345"},
		{"Million", IntWithCommas(int64(1234567)), "1,234,567"},
		{"Negative", IntWithCommas(-12345), "-12,345"},
		{"MinInt64", IntWithCommas(int64(math.MinInt64)), "-9,223,372,036,854,775,808"},
		{"MaxUint64", IntWithCommas(uint64(math.MaxUint64)), "18,446,744,073,709,551,615"},
		{"Int8", IntWithCommas(int8(-128)), "-128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
