package model

// Kind identifies one sourced record type. Each kind is read from one XML
// extract and owns exactly one table.
type Kind string

const (
	KindBillingCodes        Kind = "billing_codes"
	KindContextElements     Kind = "context_elements"
	KindExplanatoryMessages Kind = "explanatory_messages"
	KindDiagnosticCodes     Kind = "diagnostic_codes"
	KindLocationCodes       Kind = "location_codes"
	KindEstablishments      Kind = "establishments"
)

// AllKinds lists the sourced kinds in canonical order.
var AllKinds = []Kind{
	KindBillingCodes,
	KindContextElements,
	KindExplanatoryMessages,
	KindDiagnosticCodes,
	KindLocationCodes,
	KindEstablishments,
}

var kindTables = map[Kind]Table{
	KindBillingCodes:        BillingCodesTable,
	KindContextElements:     ContextElementsTable,
	KindExplanatoryMessages: ExplanatoryMessagesTable,
	KindDiagnosticCodes:     DiagnosticCodesTable,
	KindLocationCodes:       LocationCodesTable,
	KindEstablishments:      EstablishmentsTable,
}

var kindDescriptions = map[Kind]string{
	KindBillingCodes:        "RAMQ billing codes with measurable elements, specialist roles and age brackets",
	KindContextElements:     "RAMQ context elements and their linked billing codes",
	KindExplanatoryMessages: "RAMQ explanatory messages",
	KindDiagnosticCodes:     "RAMQ diagnostic codes (ICD-9 / ICD-10)",
	KindLocationCodes:       "RAMQ location codes with regional authorities",
	KindEstablishments:      "RAMQ physical establishments with alternate identifiers and holiday calendars",
}

// Table returns the destination table owned by the kind.
func (k Kind) Table() Table { return kindTables[k] }

// Description is the human-readable text written into checkpoint metadata.
func (k Kind) Description() string { return kindDescriptions[k] }

// ParseKind returns the Kind with the given name, or ok=false.
func ParseKind(name string) (Kind, bool) {
	k := Kind(name)
	if _, ok := kindTables[k]; !ok {
		return "", false
	}
	return k, true
}

// KindNames returns the names of all kinds in canonical order.
func KindNames() []string {
	names := make([]string, len(AllKinds))
	for i, k := range AllKinds {
		names[i] = string(k)
	}
	return names
}
