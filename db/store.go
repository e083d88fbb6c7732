// ABOUTME: Entity store over SQLite with per-collection CRUD operations
// ABOUTME: Fires post-commit change hooks that drive the cloud mirror and UI refresh
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/lodgekit/lodgekit/models"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Op tags a change event with the mutation that produced it.
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Source tags where a mutation originated. Writes applied by the sync layer
// itself (bootstrap merges, live-change applies, import restores) carry
// SourceSync so the interceptor does not mirror remote state back to the cloud.
type Source string

const (
	SourceLocal Source = "local"
	SourceSync  Source = "sync"
)

// ChangeEvent describes one committed local mutation. For OpPut the Record is
// the full post-merge image; for OpDelete only ID is set.
type ChangeEvent struct {
	Collection string
	Op         Op
	ID         string
	Record     models.Record
	Source     Source
}

// Hook observes committed mutations. Hooks run after the local write commits
// and before control returns to the caller; their errors never reach the
// writer, and any slow work they start must be asynchronous.
type Hook func(ev ChangeEvent)

// Store is the local source of truth: every collection the application reads
// or writes lives here, and the cloud mirror only ever trails it.
type Store struct {
	db *sql.DB

	hookMu sync.RWMutex
	hooks  []Hook
}

// Open opens (creating if needed) the record store at path.
func Open(path string) (*Store, error) {
	conn, err := openDatabase(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: conn}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// OnChange registers a post-commit hook. Hooks are attached once at engine
// construction; registration is not synchronized against in-flight writes.
func (s *Store) OnChange(h Hook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, h)
}

func (s *Store) fire(ev ChangeEvent) {
	s.hookMu.RLock()
	hooks := s.hooks
	s.hookMu.RUnlock()
	for _, h := range hooks {
		h(ev)
	}
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (models.Record, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec models.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetAll returns every record in the collection in insertion order.
func (s *Store) GetAll(ctx context.Context, collection string) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM records WHERE collection = ? ORDER BY rowid`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]models.Record, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec models.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Put creates or replaces the record keyed by its id.
func (s *Store) Put(ctx context.Context, collection string, rec models.Record) error {
	if err := s.upsert(ctx, collection, rec); err != nil {
		return err
	}
	s.fire(ChangeEvent{Collection: collection, Op: OpPut, ID: rec.ID(), Record: rec.Clone(), Source: SourceLocal})
	return nil
}

// BulkPut upserts every record in one transaction, then fires one hook per
// record as a local write (so seeded defaults mirror to the cloud like any
// other write).
func (s *Store) BulkPut(ctx context.Context, collection string, records []models.Record) error {
	return s.bulkPut(ctx, collection, records, SourceLocal)
}

// MergeRemote upserts remote-sourced records: same additive merge as BulkPut,
// but hooks fire with SourceSync so the mirror interceptor ignores them.
func (s *Store) MergeRemote(ctx context.Context, collection string, records []models.Record) error {
	return s.bulkPut(ctx, collection, records, SourceSync)
}

func (s *Store) bulkPut(ctx context.Context, collection string, records []models.Record, src Source) error {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, upsertQuery, collection, rec.ID(), data, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, rec := range records {
		s.fire(ChangeEvent{Collection: collection, Op: OpPut, ID: rec.ID(), Record: rec.Clone(), Source: src})
	}
	return nil
}

// Update shallow-merges the patch into the existing record and stores the
// result. The hook receives the fully merged image, never the bare patch, so
// the remote mirror always holds complete records.
func (s *Store) Update(ctx context.Context, collection, id string, patch models.Record) (models.Record, error) {
	existing, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	merged := existing.Merge(patch)
	merged["id"] = id // a patch cannot re-key a record
	if err := s.upsert(ctx, collection, merged); err != nil {
		return nil, err
	}
	s.fire(ChangeEvent{Collection: collection, Op: OpPut, ID: id, Record: merged.Clone(), Source: SourceLocal})
	return merged, nil
}

// Delete removes the record by id. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.delete(ctx, collection, id, SourceLocal)
}

// RemoveRemote deletes a record in response to a remote delete notification;
// the hook fires with SourceSync so no delete is mirrored back.
func (s *Store) RemoveRemote(ctx context.Context, collection, id string) error {
	return s.delete(ctx, collection, id, SourceSync)
}

func (s *Store) delete(ctx context.Context, collection, id string, src Source) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`,
		collection, id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}
	s.fire(ChangeEvent{Collection: collection, Op: OpDelete, ID: id, Source: src})
	return nil
}

// Clear wipes the collection without firing hooks: it only runs inside import
// restores, where the subsequent BulkPut re-mirrors the final state.
func (s *Store) Clear(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collection)
	return err
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, collection,
	).Scan(&n)
	return n, err
}

// Collections returns the distinct collection names currently holding records.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT collection FROM records ORDER BY collection`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const upsertQuery = `
	INSERT INTO records (collection, id, data, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(collection, id) DO UPDATE SET
		data = excluded.data,
		updated_at = excluded.updated_at
`

func (s *Store) upsert(ctx context.Context, collection string, rec models.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertQuery, collection, rec.ID(), data, time.Now().UTC())
	return err
}
