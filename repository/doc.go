// Package repository implements the record store on top of Bun: a generic
// repository with descriptor driven queries, pagination and bulk updates,
// and the member specific finders built from descriptors.
//
// Every statement runs on the transaction carried by the context when there
// is one, and reads and writes go through the request scope found in the
// context.
package repository
