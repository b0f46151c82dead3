package normalizer

import (
	"regexp"
	"strings"
	"unicode"
)

// ValueNormalizer is a function that cleans a raw string value.
type ValueNormalizer func(string) string

// registry holds all registered value normalizers
var registry = make(map[string]ValueNormalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("remove_whitespace", RemoveWhitespace)
	Register("strip_units", StripUnits)
	Register("digits_only", DigitsOnly)
	Register("alphanumeric", Alphanumeric)
	Register("nan_to_empty", NaNToEmpty)
}

// Register adds a value normalizer to the registry.
func Register(name string, fn ValueNormalizer) {
	registry[name] = fn
}

// Get retrieves a value normalizer by name.
func Get(name string) (ValueNormalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value. Unknown names are a no-op.
func Apply(value, name string) string {
	fn, ok := registry[name]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence.
func ApplyChain(value string, names ...string) string {
	result := value
	for _, name := range names {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

func Lowercase(s string) string {
	return strings.ToLower(s)
}

func Uppercase(s string) string {
	return strings.ToUpper(s)
}

func Trim(s string) string {
	return strings.TrimSpace(s)
}

var multiSpace = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims and folds internal whitespace runs to one space.
func CollapseWhitespace(s string) string {
	return multiSpace.ReplaceAllString(strings.TrimSpace(s), " ")
}

func RemoveWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

var unitsSuffix = regexp.MustCompile(`\s*(mag|arcsec|arcmin|deg|mas|mjy|jy)\s*$`)

// StripUnits drops a trailing unit token that some survey exports append
// to numeric columns.
func StripUnits(s string) string {
	return unitsSuffix.ReplaceAllString(strings.TrimSpace(strings.ToLower(s)), "")
}

func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func Alphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// NaNToEmpty maps the textual NaN markers surveys use for missing values
// to the empty string.
func NaNToEmpty(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nan", "null", "--", "n/a":
		return ""
	}
	return s
}
