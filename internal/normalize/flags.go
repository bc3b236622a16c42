package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFlag reads the indicator fields of the extracts ("O"/"N" and the
// usual boolean spellings). An empty field is false.
func ParseFlag(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "O", "OUI", "Y", "YES", "1", "TRUE", "T", "V", "VRAI":
		return true, nil
	case "", "N", "NON", "NO", "0", "FALSE", "F", "FAUX":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized indicator %q", s)
}

// ParseOptInt parses an optional integer; empty yields nil.
func ParseOptInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return &v, nil
}
