package model

// Record is implemented by every row type the loader can write.
type Record interface {
	// Key returns the identifying field; records with an empty key are rejected.
	Key() string
	// Label returns a short human-readable description for reports.
	Label() string
	Validity() Window
	// CopyValues returns the row's values in Table.Columns order.
	CopyValues() []any
}

// Table describes a destination table.
type Table struct {
	Name      string
	KeyColumn string
	Columns   []string
}

// KeyIndex returns the position of KeyColumn in Columns.
func (t Table) KeyIndex() int {
	for i, c := range t.Columns {
		if c == t.KeyColumn {
			return i
		}
	}
	return -1
}

// ColumnIndex returns the position of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// TableRows pairs a table with the full set of rows that should replace its contents.
type TableRows struct {
	Table Table
	Rows  []Record
}

// AsRecords widens a typed slice into []Record.
func AsRecords[T Record](in []T) []Record {
	out := make([]Record, len(in))
	for i := range in {
		out[i] = in[i]
	}
	return out
}

var (
	BillingCodesTable = Table{
		Name:      "billing_codes",
		KeyColumn: "cod_fact",
		Columns: []string{
			"cod_fact", "description", "code_type",
			"validity_start", "validity_end",
			"cabinet_only", "establishment_only", "authorization_required",
			"measurable_elements", "specialist_roles", "age_brackets",
		},
	}

	ContextElementsTable = Table{
		Name:      "context_elements",
		KeyColumn: "code",
		Columns: []string{
			"code", "text", "level", "validity_start", "linked_billing_codes",
		},
	}

	ExplanatoryMessagesTable = Table{
		Name:      "explanatory_messages",
		KeyColumn: "code",
		Columns: []string{
			"code", "text", "category", "validity_start", "validity_end",
		},
	}

	DiagnosticCodesTable = Table{
		Name:      "diagnostic_codes",
		KeyColumn: "code",
		Columns: []string{
			"code", "description", "classification", "validity_start", "validity_end",
		},
	}

	LocationCodesTable = Table{
		Name:      "location_codes",
		KeyColumn: "code",
		Columns: []string{
			"code", "name", "postal_code", "region_code", "region_name",
			"validity_start", "validity_end",
		},
	}

	EstablishmentsTable = Table{
		Name:      "establishments",
		KeyColumn: "id_lieu_phys",
		Columns: []string{
			"id_lieu_phys", "name", "address", "category", "establishment_type",
			"region_code", "region_name", "municipality", "postal_code",
			"alternate_ids", "holidays",
			"validity_start", "validity_end", "is_active",
		},
	}

	SpecialtiesTable = Table{
		Name:      "specialties",
		KeyColumn: "code",
		Columns:   []string{"code", "name"},
	}
)
