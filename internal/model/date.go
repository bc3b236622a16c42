package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateLayout is the canonical serialization of a Date.
const DateLayout = "2006-01-02"

// Date is a civil calendar date with no time-of-day or zone component.
// Validity windows and holiday calendars are expressed in Dates.
type Date struct {
	t time.Time
}

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseISODate parses a "2006-01-02" string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time              { return d.t }
func (d Date) IsZero() bool                 { return d.t.IsZero() }
func (d Date) Before(o Date) bool           { return d.t.Before(o.t) }
func (d Date) After(o Date) bool            { return d.t.After(o.t) }
func (d Date) Compare(o Date) int           { return d.t.Compare(o.t) }
func (d Date) String() string               { return d.t.Format(DateLayout) }
func (d Date) PG() pgtype.Date              { return pgtype.Date{Time: d.t, Valid: true} }
func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	parsed, err := ParseISODate(s)
	if err != nil {
		return fmt.Errorf("date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

// PGDate converts an optional Date into its pgx representation; nil maps to NULL.
func PGDate(d *Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return d.PG()
}

// FromPG converts a scanned date column back into an optional Date.
func FromPG(d pgtype.Date) *Date {
	if !d.Valid {
		return nil
	}
	v := DateOf(d.Time)
	return &v
}

// Window is a validity window. A nil End means the record is currently
// effective; a nil Start means the source did not publish one.
type Window struct {
	Start *Date `json:"validity_start"`
	End   *Date `json:"validity_end"`
}

// Validity lets records embedding a Window satisfy Record.
func (w Window) Validity() Window { return w }

// Valid reports whether End is absent or not before Start.
func (w Window) Valid() bool {
	if w.Start == nil || w.End == nil {
		return true
	}
	return !w.End.Before(*w.Start)
}

// Contains reports whether d falls inside the window, bounds inclusive.
func (w Window) Contains(d Date) bool {
	if w.Start != nil && d.Before(*w.Start) {
		return false
	}
	return w.ActiveOn(d)
}

// ActiveOn reports whether the window has not ended as of d.
func (w Window) ActiveOn(d Date) bool {
	return w.End == nil || !w.End.Before(d)
}
