// Package relation owns the Member to Team reference. Resolver is the only
// writer of both sides of the relationship, and lookups hand out Ref values
// that are either resolved or explicitly loaded later within the request
// scope.
package relation
