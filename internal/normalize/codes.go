package normalize

import (
	"regexp"
	"strings"

	"github.com/gyeh/ramqload/internal/model"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// Code trims an identifier. Leading zeros are significant in RAMQ codes and
// are kept.
func Code(s string) string {
	return strings.TrimSpace(s)
}

// PostalCode uppercases and strips separators, e.g. "h2x 1y4" -> "H2X1Y4".
// Returns nil if nothing remains.
func PostalCode(s string) *string {
	s = nonAlphanumeric.ReplaceAllString(strings.ToUpper(s), "")
	if s == "" {
		return nil
	}
	return &s
}

// Classification maps the diagnostic classification markers used across
// extract versions onto ICD-9 / ICD-10. Unknown markers are returned
// uppercased so they remain visible in the loaded data.
func Classification(s string) string {
	key := strings.ToUpper(nonAlphanumeric.ReplaceAllString(s, ""))
	switch key {
	case "9", "CIM9", "ICD9":
		return model.ClassificationICD9
	case "10", "CIM10", "ICD10":
		return model.ClassificationICD10
	}
	return strings.ToUpper(strings.TrimSpace(s))
}
