// Package storage opens the shared SQLite database and applies the embedded
// schema.
//
// Both the queue and the image library live in one database file so the
// claim machinery can join against image metadata in a single statement.
// Schema changes bump schemaVersion; there is no migration path beyond
// clearing the database.
package storage
