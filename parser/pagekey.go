package parser

import (
	"fmt"
	"regexp"
	"strconv"
)

// NoKey is returned by ExtractPageKey when a name carries no digits.
const NoKey = -1

var digitRun = regexp.MustCompile(`\d+`)

// ExtractPageKey returns the first run of decimal digits in name as an
// integer, or NoKey. Only the first run is used, so "spread_012-013.jpg"
// yields 12. Leading zeros are dropped.
func ExtractPageKey(name string) int {
	if name == "" {
		return NoKey
	}

	run := digitRun.FindString(name)
	if run == "" {
		return NoKey
	}

	key, err := strconv.Atoi(run)
	if err != nil {
		// Longer than an int; not a page number we can order by
		return NoKey
	}
	return key
}

// PadKey formats a page index or key to at least three digits.
func PadKey(n int) string {
	return fmt.Sprintf("%03d", n)
}
