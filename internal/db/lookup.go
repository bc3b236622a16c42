package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gyeh/ramqload/internal/model"
	embedsql "github.com/gyeh/ramqload/internal/sql"
)

// BillingCode returns the loaded billing code with the given cod_fact.
func (s *PGStore) BillingCode(ctx context.Context, code string) (*model.BillingCode, error) {
	var (
		b                      model.BillingCode
		start, end             pgtype.Date
		elems, roles, brackets []byte
	)
	err := s.pool.QueryRow(ctx, embedsql.LookupBillingCode, code).Scan(
		&b.Code, &b.Description, &b.Type, &start, &end,
		&b.CabinetOnly, &b.EstablishmentOnly, &b.AuthorizationRequired,
		&elems, &roles, &brackets,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("billing code %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup billing code %q: %w", code, err)
	}
	b.Start, b.End = model.FromPG(start), model.FromPG(end)

	for _, f := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"measurable_elements", elems, &b.MeasurableElements},
		{"specialist_roles", roles, &b.SpecialistRoles},
		{"age_brackets", brackets, &b.AgeBrackets},
	} {
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.name, err)
		}
	}
	return &b, nil
}

// Establishment returns the establishment whose canonical or alternate id
// matches id. A canonical match wins.
func (s *PGStore) Establishment(ctx context.Context, id string) (*model.Establishment, error) {
	var (
		e                    model.Establishment
		start, end           pgtype.Date
		alternates, holidays []byte
	)
	err := s.pool.QueryRow(ctx, embedsql.LookupEstablishment, id).Scan(
		&e.IDLieuPhys, &e.Name, &e.Address, &e.Category, &e.Type,
		&e.RegionCode, &e.RegionName, &e.Municipality, &e.PostalCode,
		&alternates, &holidays, &start, &end, &e.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("establishment %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup establishment %q: %w", id, err)
	}
	e.Start, e.End = model.FromPG(start), model.FromPG(end)

	if err := json.Unmarshal(alternates, &e.AlternateIDs); err != nil {
		return nil, fmt.Errorf("decode alternate_ids: %w", err)
	}
	if err := json.Unmarshal(holidays, &e.Holidays); err != nil {
		return nil, fmt.Errorf("decode holidays: %w", err)
	}
	return &e, nil
}
