// Package query provides the query descriptor: a validated, immutable value
// describing predicates, ordering, the page window, fetched relations and
// lock hints, compiled onto Bun query builders.
package query
