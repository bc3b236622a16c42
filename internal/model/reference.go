package model

// ContextElement is a billing context ("élément de contexte") and the
// billing codes it may accompany.
type ContextElement struct {
	Code        string   `json:"code"`
	Text        string   `json:"text"`
	Level       string   `json:"level"`
	ValidStart  *Date    `json:"validity_start"`
	LinkedCodes []string `json:"linked_billing_codes"`
}

func (c ContextElement) Key() string      { return c.Code }
func (c ContextElement) Label() string    { return c.Text }
func (c ContextElement) Validity() Window { return Window{Start: c.ValidStart} }

func (c ContextElement) CopyValues() []any {
	return []any{c.Code, c.Text, c.Level, PGDate(c.ValidStart), c.LinkedCodes}
}

// ContextLink is one context element's set of billing-code references, as
// read back from the store.
type ContextLink struct {
	ContextCode string
	LinkedCodes []string
}

// ExplanatoryMessage is a RAMQ explanatory message returned on claims.
type ExplanatoryMessage struct {
	Code     string `json:"code"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Window
}

func (m ExplanatoryMessage) Key() string   { return m.Code }
func (m ExplanatoryMessage) Label() string { return m.Text }

func (m ExplanatoryMessage) CopyValues() []any {
	return []any{m.Code, m.Text, m.Category, PGDate(m.Start), PGDate(m.End)}
}

// Diagnostic classification markers.
const (
	ClassificationICD9  = "ICD-9"
	ClassificationICD10 = "ICD-10"
)

// DiagnosticCode is an ICD-9 or ICD-10 diagnostic code.
type DiagnosticCode struct {
	Code           string `json:"code"`
	Description    string `json:"description"`
	Classification string `json:"classification"`
	Window
}

func (d DiagnosticCode) Key() string   { return d.Code }
func (d DiagnosticCode) Label() string { return d.Description }

func (d DiagnosticCode) CopyValues() []any {
	return []any{d.Code, d.Description, d.Classification, PGDate(d.Start), PGDate(d.End)}
}

// LocationCode is a RAMQ locality with its regional health authority.
type LocationCode struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	PostalCode *string `json:"postal_code"`
	RegionCode string  `json:"region_code"`
	RegionName string  `json:"region_name"`
	Window
}

func (l LocationCode) Key() string   { return l.Code }
func (l LocationCode) Label() string { return l.Name }

func (l LocationCode) CopyValues() []any {
	return []any{l.Code, l.Name, l.PostalCode, l.RegionCode, l.RegionName, PGDate(l.Start), PGDate(l.End)}
}
