package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyChain(t *testing.T) {
	got := ApplyChain("  17.2 MAG ", "strip_units", "trim")
	assert.Equal(t, "17.2", got)
}

func TestApplyUnknownIsNoOp(t *testing.T) {
	assert.Equal(t, "value", Apply("value", "does_not_exist"))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "HD 170000 b", CollapseWhitespace("  HD \t 170000\n b "))
}

func TestStripUnits(t *testing.T) {
	tests := map[string]string{
		"12.5 mag":    "12.5",
		"0.08 arcsec": "0.08",
		"3.2mas":      "3.2",
		"plain":       "plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripUnits(in), "input %q", in)
	}
}

func TestNaNToEmpty(t *testing.T) {
	assert.Equal(t, "", NaNToEmpty("NaN"))
	assert.Equal(t, "", NaNToEmpty(" null "))
	assert.Equal(t, "", NaNToEmpty("--"))
	assert.Equal(t, "12.5", NaNToEmpty("12.5"))
}

func TestRegisterCustom(t *testing.T) {
	Register("reverse_test_only", func(s string) string {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return string(runes)
	})
	assert.Equal(t, "cba", Apply("abc", "reverse_test_only"))
}
