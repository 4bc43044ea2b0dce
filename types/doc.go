// Package types holds the value types shared across the record-access layer:
// page requests and results, fetch and lock enums, and the error taxonomy.
package types
