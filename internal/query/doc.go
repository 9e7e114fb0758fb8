// Package query defines the cache record model shared by every other
// preflight package: the normalization and content hashing that name a
// record, the closed type-tag catalog, and the JSON document stored for
// each verified query.
//
// All other internal packages import query; query imports nothing internal.
// This keeps the record model the foundational layer with no circular
// dependencies.
package query
