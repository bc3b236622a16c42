package model

// Establishment is a physical location ("lieu physique") where services are
// rendered. IDLieuPhys is the canonical external identifier and is never empty
// on a transformed record.
type Establishment struct {
	IDLieuPhys   string        `json:"id_lieu_phys"`
	Name         string        `json:"name"`
	Address      string        `json:"address"`
	Category     string        `json:"category"`
	Type         string        `json:"establishment_type"`
	RegionCode   string        `json:"region_code"`
	RegionName   string        `json:"region_name"`
	Municipality string        `json:"municipality"`
	PostalCode   *string       `json:"postal_code"`
	AlternateIDs []AlternateID `json:"alternate_ids"`
	Holidays     []Holiday     `json:"holidays"`
	Window
	IsActive bool `json:"is_active"`
}

// AlternateID is another identifier under which the establishment is known.
type AlternateID struct {
	ID         string `json:"id"`
	ValidStart *Date  `json:"validity_start"`
}

// Holiday is one entry of an establishment's holiday calendar.
type Holiday struct {
	Date Date   `json:"date"`
	Type string `json:"type"`
}

func (e Establishment) Key() string   { return e.IDLieuPhys }
func (e Establishment) Label() string { return e.Name }

func (e Establishment) CopyValues() []any {
	return []any{
		e.IDLieuPhys,
		e.Name,
		e.Address,
		e.Category,
		e.Type,
		e.RegionCode,
		e.RegionName,
		e.Municipality,
		e.PostalCode,
		jsonValue(e.AlternateIDs),
		jsonValue(e.Holidays),
		PGDate(e.Start),
		PGDate(e.End),
		e.IsActive,
	}
}
