// Package entity defines the Member and Team records, their Bun mappings and
// query schemas, and the MemberDto projection.
package entity
