// ABOUTME: In-memory application state mirroring the local store
// ABOUTME: Populated only by the refresh cascade, one atomic snapshot swap per collection
package state

import (
	"context"
	"sync"

	"github.com/lodgekit/lodgekit/db"
	"github.com/lodgekit/lodgekit/models"
)

// AppState is the UI-facing cache of every collection. It has exactly one
// write path, Refresh, which re-reads the local store and swaps each
// collection's snapshot atomically. Nothing ever patches a snapshot in place,
// so a snapshot is always internally consistent with some committed state of
// its collection (though not across collections).
type AppState struct {
	store *db.Store

	mu        sync.RWMutex
	snapshots map[string][]models.Record
}

func New(store *db.Store) *AppState {
	return &AppState{
		store:     store,
		snapshots: make(map[string][]models.Record),
	}
}

// Refresh re-reads every collection from the local store. Idempotent and safe
// to call repeatedly; a failed read leaves that collection's previous snapshot
// in place and moves on.
func (a *AppState) Refresh(ctx context.Context) error {
	var firstErr error
	for _, collection := range models.BootstrapOrder() {
		records, err := a.store.GetAll(ctx, collection)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		a.mu.Lock()
		a.snapshots[collection] = records
		a.mu.Unlock()
	}
	return firstErr
}

// Collection returns the current snapshot for a collection. The returned slice
// must be treated as read-only.
func (a *AppState) Collection(name string) []models.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshots[name]
}

// Rooms decodes the rooms snapshot into typed models, skipping records that
// fail to decode.
func (a *AppState) Rooms() []models.Room {
	return decodeAll[models.Room](a.Collection(models.CollectionRooms))
}

func (a *AppState) Guests() []models.Guest {
	return decodeAll[models.Guest](a.Collection(models.CollectionGuests))
}

func (a *AppState) Bookings() []models.Booking {
	return decodeAll[models.Booking](a.Collection(models.CollectionBookings))
}

func (a *AppState) Transactions() []models.Transaction {
	return decodeAll[models.Transaction](a.Collection(models.CollectionTransactions))
}

func (a *AppState) Staff() []models.StaffMember {
	return decodeAll[models.StaffMember](a.Collection(models.CollectionStaff))
}

func (a *AppState) MenuItems() []models.MenuItem {
	return decodeAll[models.MenuItem](a.Collection(models.CollectionMenuItems))
}

// Settings returns the singleton settings record, or defaults if absent.
func (a *AppState) Settings() models.Settings {
	for _, rec := range a.Collection(models.CollectionSettings) {
		if rec.ID() == models.SettingsID {
			var s models.Settings
			if err := rec.ToModel(&s); err == nil {
				return s
			}
		}
	}
	return models.DefaultSettings()
}

func decodeAll[T any](records []models.Record) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := rec.ToModel(&v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
