// Package library persists enriched track metadata in SQLite.
package library
