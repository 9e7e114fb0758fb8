// Package introspect asks a live database to describe a query: the types
// of its parameters and the name, type, and nullability of its result
// columns. Nothing here ever executes a query; both engines stop at
// prepare/describe, so verification is safe to run against any database
// the credentials can reach.
//
// The Describer interface is the seam the verifier depends on. Postgres
// and SQLite implementations live here; tests substitute their own.
package introspect
