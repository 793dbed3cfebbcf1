// Package postgres implements the song repository of internal/store on
// PostgreSQL through the pgx database/sql driver, and ships the schema
// migrations that create its tables.
package postgres
