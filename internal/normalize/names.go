package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// Text collapses internal whitespace and trims the input. Case is preserved
// since these values are displayed to physicians as published.
func Text(s string) string {
	return multiSpace.ReplaceAllString(strings.TrimSpace(s), " ")
}
