// Package validate checks cross-table references after a load.
package validate

import (
	"context"
	"fmt"
	"sort"

	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/store"
)

// Report lists the references that did not resolve.
type Report struct {
	ContextElements int
	LinksChecked    int
	Dangling        []model.DanglingRef
}

// OK reports whether every link resolved.
func (r Report) OK() bool {
	return len(r.Dangling) == 0
}

// Validate checks that every billing code linked from a context element
// exists in the billing-code table. Dangling links are returned in the
// report, sorted by context code then billing code; they are not an error.
func Validate(ctx context.Context, s store.Store) (Report, error) {
	keys, err := s.BillingCodeKeys(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read billing codes: %w", err)
	}
	links, err := s.ContextLinks(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read context links: %w", err)
	}

	rep := Report{ContextElements: len(links)}
	for _, l := range links {
		for _, code := range l.LinkedCodes {
			rep.LinksChecked++
			if _, ok := keys[code]; !ok {
				rep.Dangling = append(rep.Dangling, model.DanglingRef{
					ContextCode: l.ContextCode,
					BillingCode: code,
				})
			}
		}
	}
	sort.Slice(rep.Dangling, func(i, j int) bool {
		a, b := rep.Dangling[i], rep.Dangling[j]
		if a.ContextCode != b.ContextCode {
			return a.ContextCode < b.ContextCode
		}
		return a.BillingCode < b.BillingCode
	})
	return rep, nil
}
