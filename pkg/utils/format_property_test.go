package utils

import (
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Feature: grail-agent, Property 5: Currency formatting is well-formed and lossless
//
// Property: For any amount, FormatUSD produces a $-prefixed string with
// exactly two decimal places and thousands grouped in threes, and parsing
// the string back recovers the amount to the cent. FormatCompact always
// picks the unit matching the magnitude.
func TestProperty_CurrencyFormattingRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	groupedPattern := regexp.MustCompile(`^\d{1,3}(,\d{3})*$`)

	properties.Property("FormatUSD produces grouped dollar format", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatUSD(amount)

			if amount >= 0 {
				if !strings.HasPrefix(formatted, "$") {
					t.Logf("FAILED: expected $ prefix for %f, got %s", amount, formatted)
					return false
				}
			} else {
				if !strings.HasPrefix(formatted, "-$") {
					t.Logf("FAILED: expected -$ prefix for %f, got %s", amount, formatted)
					return false
				}
			}

			parts := strings.Split(formatted, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				t.Logf("FAILED: expected 2 decimal places for %f, got %s", amount, formatted)
				return false
			}

			numPart := strings.TrimPrefix(formatted, "-")
			numPart = strings.TrimPrefix(numPart, "$")
			numPart = strings.Split(numPart, ".")[0]
			if !groupedPattern.MatchString(numPart) {
				t.Logf("FAILED: invalid grouping for %f: %s", amount, formatted)
				return false
			}

			return true
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("FormatUSD preserves value to the cent", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatUSD(amount)
			parsed := parseUSD(formatted)

			rounded := math.Round(amount*100) / 100
			if math.Abs(parsed-rounded) > 0.01 {
				t.Logf("FAILED: original=%f formatted=%s parsed=%f", amount, formatted, parsed)
				return false
			}

			return true
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("FormatPercent signs and suffixes correctly", prop.ForAll(
		func(value float64) bool {
			formatted := FormatPercent(value)

			if !strings.HasSuffix(formatted, "%") {
				t.Logf("FAILED: expected %% suffix for %f, got %s", value, formatted)
				return false
			}
			if value > 0 && !strings.HasPrefix(formatted, "+") {
				t.Logf("FAILED: expected + prefix for %f, got %s", value, formatted)
				return false
			}
			if value < 0 && !strings.HasPrefix(formatted, "-") {
				t.Logf("FAILED: expected - prefix for %f, got %s", value, formatted)
				return false
			}

			return true
		},
		gen.Float64Range(-100, 100),
	))

	properties.Property("FormatCompact picks the unit by magnitude", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatCompact(amount)
			absAmount := math.Abs(amount)

			switch {
			case absAmount >= 1000000:
				if !strings.HasSuffix(formatted, "M") {
					t.Logf("FAILED: expected M for %f, got %s", amount, formatted)
					return false
				}
			case absAmount >= 10000:
				if !strings.HasSuffix(formatted, "K") {
					t.Logf("FAILED: expected K for %f, got %s", amount, formatted)
					return false
				}
			default:
				if !strings.HasPrefix(formatted, "$") && !strings.HasPrefix(formatted, "-$") {
					t.Logf("FAILED: expected $ for %f, got %s", amount, formatted)
					return false
				}
			}

			return true
		},
		gen.Float64Range(-1e10, 1e10),
	))

	properties.TestingRun(t)
}

// parseUSD parses a formatted dollar string back to float64.
func parseUSD(s string) float64 {
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	var parsed float64
	for i, c := range s {
		if c == '.' {
			decPart := s[i+1:]
			for j, d := range decPart {
				if d >= '0' && d <= '9' {
					parsed += float64(d-'0') / math.Pow(10, float64(j+1))
				}
			}
			break
		}
		if c >= '0' && c <= '9' {
			parsed = parsed*10 + float64(c-'0')
		}
	}

	if negative {
		parsed = -parsed
	}

	return parsed
}

// TestFormatUSDExamples pins down the exact grouping behavior.
func TestFormatUSDExamples(t *testing.T) {
	testCases := []struct {
		amount   float64
		expected string
	}{
		{0, "$0.00"},
		{1, "$1.00"},
		{10, "$10.00"},
		{100, "$100.00"},
		{1000, "$1,000.00"},
		{10000, "$10,000.00"},
		{100000, "$100,000.00"},
		{1000000, "$1,000,000.00"},
		{-1234.56, "-$1,234.56"},
		{12345678.90, "$12,345,678.90"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			result := FormatUSD(tc.amount)
			if result != tc.expected {
				t.Errorf("FormatUSD(%f) = %s, want %s", tc.amount, result, tc.expected)
			}
		})
	}
}

// TestFormatPnLExamples verifies the sign convention for P&L display.
func TestFormatPnLExamples(t *testing.T) {
	testCases := []struct {
		pnl      float64
		expected string
	}{
		{0, "$0.00"},
		{12.5, "+$12.50"},
		{-7.25, "-$7.25"},
		{2500, "+$2,500.00"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			result := FormatPnL(tc.pnl)
			if result != tc.expected {
				t.Errorf("FormatPnL(%f) = %s, want %s", tc.pnl, result, tc.expected)
			}
		})
	}
}

// TestFormatCompactExamples verifies unit selection at the boundaries.
func TestFormatCompactExamples(t *testing.T) {
	testCases := []struct {
		amount   float64
		expected string
	}{
		{999.99, "$999.99"},
		{9999, "$9,999.00"},
		{10000, "10.00K"},
		{250000, "250.00K"},
		{-20000, "-20.00K"},
		{1000000, "1.00M"},
		{1234567, "1.23M"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			result := FormatCompact(tc.amount)
			if result != tc.expected {
				t.Errorf("FormatCompact(%f) = %s, want %s", tc.amount, result, tc.expected)
			}
		})
	}
}
