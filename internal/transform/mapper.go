package transform

import (
	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/normalize"
	"github.com/gyeh/ramqload/internal/xmltree"
)

// mapper reads typed fields from a record node. The first conversion error
// is kept and rejects the record once mapping finishes, so field mappings
// read top to bottom without error plumbing.
type mapper struct {
	opts      Options
	err       error
	truncated int64
}

func (m *mapper) fail(field string, err error) {
	if m.err == nil {
		m.err = &FieldError{Field: field, Err: err}
	}
}

func (m *mapper) code(n *xmltree.Node, field string) string {
	return normalize.Code(n.Value(field))
}

func (m *mapper) text(n *xmltree.Node, field string) string {
	return normalize.Text(n.Value(field))
}

func (m *mapper) date(n *xmltree.Node, field string) *model.Date {
	d, err := normalize.ParseDate(n.Value(field))
	if err != nil {
		m.fail(field, err)
	}
	return d
}

func (m *mapper) window(n *xmltree.Node, start, end string) model.Window {
	return model.Window{Start: m.date(n, start), End: m.date(n, end)}
}

func (m *mapper) flag(n *xmltree.Node, field string) bool {
	v, err := normalize.ParseFlag(n.Value(field))
	if err != nil {
		m.fail(field, err)
	}
	return v
}

func (m *mapper) optInt(n *xmltree.Node, field string) *int {
	v, err := normalize.ParseOptInt(n.Value(field))
	if err != nil {
		m.fail(field, err)
	}
	return v
}

// pairByIndex calls fn for positions present in both lists and returns how
// many trailing entries of the longer list were left unmatched. Mismatched
// lengths are dropped rather than rejected.
func pairByIndex[A, B any](as []A, bs []B, fn func(a A, b B)) int64 {
	n := min(len(as), len(bs))
	for i := 0; i < n; i++ {
		fn(as[i], bs[i])
	}
	return int64(len(as) + len(bs) - 2*n)
}
