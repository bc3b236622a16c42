package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/gyeh/ramqload/internal/model"
)

// Date formats found in RAMQ extracts.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseDate parses a date field. An empty field yields nil with no error,
// meaning "no value"; an open-ended validity window is not a defect.
// A non-empty value in no known format is an error.
func ParseDate(s string) (*model.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			d := model.DateOf(t)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", s)
}
