package transform

import (
	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/normalize"
	"github.com/gyeh/ramqload/internal/xmltree"
)

// Establishments maps the physical-establishment extract.
var Establishments = &Descriptor[model.Establishment]{
	Kind:     model.KindEstablishments,
	Roots:    []string{"ramq_lieu_phys_v1", "ramq_lieu_phys_v2"},
	Path:     []string{"lieu_phys"},
	KeyField: "id_lieu_phys",
	Map:      mapEstablishment,
	Refresh:  refreshEstablishment,
}

func refreshEstablishment(e model.Establishment, opts Options) model.Establishment {
	e.IsActive = e.ActiveOn(opts.AsOf)
	return e
}

func mapEstablishment(n *xmltree.Node, m *mapper) model.Establishment {
	e := model.Establishment{
		Name:         m.text(n, "nom_etab"),
		Address:      m.text(n, "adr_etab"),
		Category:     m.code(n, "catg_etab"),
		Type:         m.code(n, "typ_etab"),
		RegionCode:   m.code(n, "cod_rss"),
		RegionName:   m.text(n, "nom_rss"),
		Municipality: m.text(n, "nom_munic"),
		PostalCode:   normalize.PostalCode(n.Value("cod_pos")),
		Window:       m.window(n, "dd_eff", "df_eff"),
		AlternateIDs: []model.AlternateID{},
		Holidays:     []model.Holiday{},
	}

	seen := make(map[string]bool)
	addAlternate := func(id string, start *model.Date) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		e.AlternateIDs = append(e.AlternateIDs, model.AlternateID{ID: id, ValidStart: start})
	}

	// The first non-empty id_lieu_phys is canonical; repeats become alternates.
	for _, raw := range n.Values("id_lieu_phys") {
		id := normalize.Code(raw)
		if id == "" {
			continue
		}
		if e.IDLieuPhys == "" {
			e.IDLieuPhys = id
			seen[id] = true
			continue
		}
		addAlternate(id, nil)
	}

	// liste_no_etab carries ids and their start dates as parallel lists.
	for _, l := range n.All("liste_no_etab") {
		ids := l.Values("no_etab")
		starts := l.Values("dd_eff_no_etab")
		m.truncated += pairByIndex(ids, starts, func(id, start string) {
			d, err := normalize.ParseDate(start)
			if err != nil {
				m.fail("dd_eff_no_etab", err)
				return
			}
			addAlternate(normalize.Code(id), d)
		})
	}

	for _, h := range n.Path("liste_jour_ferie", "jour_ferie") {
		d := m.date(h, "dat_ferie")
		if d == nil {
			continue
		}
		e.Holidays = append(e.Holidays, model.Holiday{Date: *d, Type: m.code(h, "typ_ferie")})
	}

	return refreshEstablishment(e, m.opts)
}
