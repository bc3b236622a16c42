package model

import (
	"encoding/json"
	"sort"
)

// BillingCode is one RAMQ billing code ("cod_fact") with its nested lists.
type BillingCode struct {
	Code        string `json:"cod_fact"`
	Description string `json:"description"`
	Type        string `json:"code_type"`
	Window

	CabinetOnly           bool `json:"cabinet_only"`
	EstablishmentOnly     bool `json:"establishment_only"`
	AuthorizationRequired bool `json:"authorization_required"`

	MeasurableElements []MeasurableElement `json:"measurable_elements"`
	SpecialistRoles    []SpecialistRole    `json:"specialist_roles"`
	AgeBrackets        []AgeBracket        `json:"age_brackets"`
}

// MeasurableElement is a unit that can be billed alongside a code.
type MeasurableElement struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	UnitType   string `json:"unit_type"`
	ValidStart *Date  `json:"validity_start"`
}

// SpecialistRole ties a billing code to a role within a specialty.
type SpecialistRole struct {
	RoleCode      string `json:"role_code"`
	RoleName      string `json:"role_name"`
	SpecialtyCode string `json:"specialty_code"`
	SpecialtyName string `json:"specialty_name"`
	ValidStart    *Date  `json:"validity_start"`
}

// AgeBracket restricts a code to patients within an age range.
type AgeBracket struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	MinAge      *int   `json:"min_age"`
	MaxAge      *int   `json:"max_age"`
	ValidStart  *Date  `json:"validity_start"`
}

func (b BillingCode) Key() string   { return b.Code }
func (b BillingCode) Label() string { return b.Description }

func (b BillingCode) CopyValues() []any {
	return []any{
		b.Code,
		b.Description,
		b.Type,
		PGDate(b.Start),
		PGDate(b.End),
		b.CabinetOnly,
		b.EstablishmentOnly,
		b.AuthorizationRequired,
		jsonValue(b.MeasurableElements),
		jsonValue(b.SpecialistRoles),
		jsonValue(b.AgeBrackets),
	}
}

// Specialty is derived from the specialist roles of all billing codes.
type Specialty struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s Specialty) Key() string       { return s.Code }
func (s Specialty) Label() string     { return s.Name }
func (s Specialty) Validity() Window  { return Window{} }
func (s Specialty) CopyValues() []any { return []any{s.Code, s.Name} }

// DeriveSpecialties returns the distinct specialties referenced by codes,
// sorted by code. The first non-empty name seen for a code wins.
func DeriveSpecialties(codes []BillingCode) []Specialty {
	names := make(map[string]string)
	for _, bc := range codes {
		for _, r := range bc.SpecialistRoles {
			if r.SpecialtyCode == "" {
				continue
			}
			if names[r.SpecialtyCode] == "" {
				names[r.SpecialtyCode] = r.SpecialtyName
			}
		}
	}
	out := make([]Specialty, 0, len(names))
	for code, name := range names {
		out = append(out, Specialty{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// jsonValue encodes nested lists for jsonb columns.
func jsonValue(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// Only plain structs of strings, ints and Dates reach here.
		panic("model: marshal nested list: " + err.Error())
	}
	return b
}
