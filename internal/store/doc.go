// Package store defines the persistence contracts for songs and the
// transaction glue shared by their implementations. The Postgres
// implementation lives in internal/platform/postgres.
package store
