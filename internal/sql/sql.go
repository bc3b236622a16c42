// Package sql embeds the schema migrations and hand-written queries.
package sql

import (
	"embed"
)

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/billing_code_keys.sql
var BillingCodeKeys string

//go:embed queries/context_links.sql
var ContextLinks string

//go:embed queries/lookup_billing_code.sql
var LookupBillingCode string

//go:embed queries/lookup_establishment.sql
var LookupEstablishment string

//go:embed queries/upsert_import_job.sql
var UpsertImportJob string

//go:embed queries/import_jobs_for_run.sql
var ImportJobsForRun string
