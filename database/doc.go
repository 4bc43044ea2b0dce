// Package database provides connection management, SQL error
// classification, model registration and migrations, query hooks and the
// transaction manager used by the repositories, all built on top of Bun.
package database
