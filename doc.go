// Package datajpa is a member and team record-access layer on Bun. Service
// combines the repositories, the relationship resolver and the projection
// mapper into transactional operations, and Seeder loads YAML fixtures.
package datajpa
