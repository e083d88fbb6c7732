// ABOUTME: Whole-database export and import as a single JSON document
// ABOUTME: Used for manual backup and disaster recovery, with cloud re-push on restore
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/lodgekit/lodgekit/cloud"
	"github.com/lodgekit/lodgekit/db"
	"github.com/lodgekit/lodgekit/models"
)

// Document is the backup file format: top-level keys are collection names,
// values are that collection's records verbatim as stored locally. Forward
// compatibility is by convention only — unknown keys are ignored on import,
// missing keys leave the existing collection untouched.
type Document map[string][]models.Record

// Export reads every collection and writes one indented JSON document.
func Export(ctx context.Context, store *db.Store, w io.Writer) error {
	doc := make(Document)
	for _, collection := range models.BootstrapOrder() {
		records, err := store.GetAll(ctx, collection)
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", collection, err)
		}
		doc[collection] = records
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Import restores collections from a backup document. For each recognized
// collection present in the file: clear the local collection, bulk-put the
// imported records, and — when cloud integration is enabled — push every
// imported record to the cloud one by one to force-reconcile the remote state.
//
// The operation is not atomic: a failure partway leaves earlier collections
// restored. Parse errors reject the whole import before anything is touched.
func Import(ctx context.Context, store *db.Store, bridge *cloud.Bridge, r io.Reader, log zerolog.Logger) error {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("failed to parse backup: %w", err)
	}

	known := make(map[string]bool)
	for _, collection := range models.BootstrapOrder() {
		known[collection] = true
	}

	for _, collection := range models.BootstrapOrder() {
		records, ok := doc[collection]
		if !ok {
			continue
		}
		if err := store.Clear(ctx, collection); err != nil {
			return fmt.Errorf("failed to clear %s: %w", collection, err)
		}
		if err := store.MergeRemote(ctx, collection, records); err != nil {
			return fmt.Errorf("failed to restore %s: %w", collection, err)
		}

		if bridge.Enabled() {
			for _, rec := range records {
				if !bridge.PushToCloud(ctx, collection, rec) {
					log.Warn().Str("collection", collection).Str("id", rec.ID()).Msg("import: cloud push failed")
				}
			}
		}
		log.Info().Str("collection", collection).Int("records", len(records)).Msg("restored collection")
	}

	for name := range doc {
		if !known[name] {
			log.Warn().Str("collection", name).Msg("import: unknown collection ignored")
		}
	}
	return nil
}
