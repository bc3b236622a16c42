// Package exitcode lists the process exit codes of ramqload.
package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2 // unreadable manifest or sources
	DBConnError     = 3
	LoadError       = 4 // migration or store failure outside a table job
	TransformError  = 5 // extract could not produce every checkpoint
	PartialSuccess  = 6 // run finished but at least one table rolled back
	NotFound        = 7 // lookup matched nothing
)
