package transform

import (
	"fmt"

	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/xmltree"
)

// BillingCodes maps the billing-code extract.
var BillingCodes = &Descriptor[model.BillingCode]{
	Kind:     model.KindBillingCodes,
	Roots:    []string{"ramq_cod_fact_v1", "ramq_cod_fact_v2"},
	Path:     []string{"cod_fact_info"},
	KeyField: "cod_fact",
	Map:      mapBillingCode,
	Derive: func(codes []model.BillingCode) []model.TableRows {
		return []model.TableRows{{
			Table: model.SpecialtiesTable,
			Rows:  model.AsRecords(model.DeriveSpecialties(codes)),
		}}
	},
}

func mapBillingCode(n *xmltree.Node, m *mapper) model.BillingCode {
	bc := model.BillingCode{
		Code:                  m.code(n, "cod_fact"),
		Description:           m.text(n, "des_cod_fact"),
		Type:                  m.text(n, "typ_cod_fact"),
		Window:                m.window(n, "dd_eff", "df_eff"),
		CabinetOnly:           m.flag(n, "ind_cabinet"),
		EstablishmentOnly:     m.flag(n, "ind_etab"),
		AuthorizationRequired: m.flag(n, "ind_autor"),
		MeasurableElements:    []model.MeasurableElement{},
		SpecialistRoles:       []model.SpecialistRole{},
		AgeBrackets:           []model.AgeBracket{},
	}

	for _, e := range n.Path("liste_elm_mesur", "elm_mesur") {
		code := m.code(e, "cod_elm_mesur")
		if code == "" {
			continue
		}
		bc.MeasurableElements = append(bc.MeasurableElements, model.MeasurableElement{
			Code:       code,
			Name:       m.text(e, "nom_elm_mesur"),
			UnitType:   m.text(e, "typ_unit_mesur"),
			ValidStart: m.date(e, "dd_eff"),
		})
	}

	for _, r := range n.Path("liste_role_spec", "role_spec") {
		role := model.SpecialistRole{
			RoleCode:      m.code(r, "cod_role"),
			RoleName:      m.text(r, "nom_role"),
			SpecialtyCode: m.code(r, "cod_spec"),
			SpecialtyName: m.text(r, "nom_spec"),
			ValidStart:    m.date(r, "dd_eff"),
		}
		if role.RoleCode == "" && role.SpecialtyCode == "" {
			continue
		}
		bc.SpecialistRoles = append(bc.SpecialistRoles, role)
	}

	for _, a := range n.Path("liste_tranche_age", "tranche_age") {
		bracket := model.AgeBracket{
			Code:        m.code(a, "cod_tranche"),
			Description: m.text(a, "des_tranche"),
			MinAge:      m.optInt(a, "age_min"),
			MaxAge:      m.optInt(a, "age_max"),
			ValidStart:  m.date(a, "dd_eff"),
		}
		if bracket.MinAge != nil && bracket.MaxAge != nil && *bracket.MinAge > *bracket.MaxAge {
			m.fail("age_max", fmt.Errorf("max age %d below min age %d", *bracket.MaxAge, *bracket.MinAge))
		}
		bc.AgeBrackets = append(bc.AgeBrackets, bracket)
	}

	return bc
}
