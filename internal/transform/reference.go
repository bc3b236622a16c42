package transform

import (
	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/normalize"
	"github.com/gyeh/ramqload/internal/xmltree"
)

// ContextElements maps the context-element extract.
var ContextElements = &Descriptor[model.ContextElement]{
	Kind:     model.KindContextElements,
	Roots:    []string{"ramq_elm_cntx_v1"},
	Path:     []string{"elm_cntx"},
	KeyField: "cod_elm_cntx",
	Map: func(n *xmltree.Node, m *mapper) model.ContextElement {
		ce := model.ContextElement{
			Code:        m.code(n, "cod_elm_cntx"),
			Text:        m.text(n, "txt_elm_cntx"),
			Level:       m.text(n, "niv_elm_cntx"),
			ValidStart:  m.date(n, "dd_eff"),
			LinkedCodes: []string{},
		}
		seen := make(map[string]bool)
		for _, l := range n.Path("liste_cod_fact_lie", "cod_fact") {
			code := normalize.Code(l.Text)
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			ce.LinkedCodes = append(ce.LinkedCodes, code)
		}
		return ce
	},
}

// ExplanatoryMessages maps the explanatory-message extract.
var ExplanatoryMessages = &Descriptor[model.ExplanatoryMessage]{
	Kind:     model.KindExplanatoryMessages,
	Roots:    []string{"ramq_msg_expl_v1"},
	Path:     []string{"msg_expl"},
	KeyField: "cod_msg_expl",
	Map: func(n *xmltree.Node, m *mapper) model.ExplanatoryMessage {
		return model.ExplanatoryMessage{
			Code:     m.code(n, "cod_msg_expl"),
			Text:     m.text(n, "txt_msg_expl"),
			Category: m.text(n, "catg_msg_expl"),
			Window:   m.window(n, "dd_eff", "df_eff"),
		}
	},
}

// DiagnosticCodes maps the diagnostic-code extract.
var DiagnosticCodes = &Descriptor[model.DiagnosticCode]{
	Kind:     model.KindDiagnosticCodes,
	Roots:    []string{"ramq_cod_diagn_v1"},
	Path:     []string{"diagn"},
	KeyField: "cod_diagn",
	Map: func(n *xmltree.Node, m *mapper) model.DiagnosticCode {
		return model.DiagnosticCode{
			Code:           m.code(n, "cod_diagn"),
			Description:    m.text(n, "des_diagn"),
			Classification: normalize.Classification(n.Value("typ_classif")),
			Window:         m.window(n, "dd_eff", "df_eff"),
		}
	},
}

// LocationCodes maps the location-code extract.
var LocationCodes = &Descriptor[model.LocationCode]{
	Kind:     model.KindLocationCodes,
	Roots:    []string{"ramq_cod_loc_v1"},
	Path:     []string{"loc"},
	KeyField: "cod_loc",
	Map: func(n *xmltree.Node, m *mapper) model.LocationCode {
		return model.LocationCode{
			Code:       m.code(n, "cod_loc"),
			Name:       m.text(n, "nom_loc"),
			PostalCode: normalize.PostalCode(n.Value("cod_pos")),
			RegionCode: m.code(n, "cod_rss"),
			RegionName: m.text(n, "nom_rss"),
			Window:     m.window(n, "dd_eff", "df_eff"),
		}
	},
}
