package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"0":       "0,00",
		"18.03":   "18,03",
		"1234.5":  "1.234,50",
		"1000000": "1.000.000,00",
		"25.625":  "25,63",
		"-12.3":   "-12,30",
	}
	for in, want := range cases {
		assert.Equal(t, want, Format(decimal.RequireFromString(in)), in)
	}
}

func TestEUR(t *testing.T) {
	assert.Equal(t, "€ 122,00", EUR(decimal.NewFromInt(122)))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "22%", Percent(decimal.NewFromInt(22)))
	assert.Equal(t, "10,5%", Percent(decimal.RequireFromString("10.5")))
}
