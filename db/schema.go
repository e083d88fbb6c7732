// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation for the record store
package db

import (
	"database/sql"
)

// One flat table holds every collection: records are opaque JSON blobs keyed by
// (collection, id), mirroring the browser-origin database layout. Secondary
// indexes only accelerate local queries and carry no integrity constraints.
const schema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
CREATE INDEX IF NOT EXISTS idx_records_updated_at ON records(collection, updated_at);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
