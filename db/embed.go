// Package db provides the embedded database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Seed is the default nursery catalog used by seed-db when no seed file is
// given.
//
//go:embed seed/nursery.json
var Seed []byte
