// ABOUTME: Startup reconciliation between the remote mirror and the local store
// ABOUTME: Pulls each collection, merges additively, opens live subscriptions, seeds defaults
package sync

import (
	"context"
	"time"

	"github.com/lodgekit/lodgekit/cloud"
	"github.com/lodgekit/lodgekit/db"
	"github.com/lodgekit/lodgekit/models"
)

const (
	defaultHealthInterval = 30 * time.Second
	healthProbeTimeout    = 10 * time.Second
)

// Bootstrap runs once at startup, before the UI renders meaningful content.
// Per collection, in fixed order: pull the remote snapshot, additively merge
// it into the local store (remote wins on id collision, local-only records
// survive), then open a live subscription. Afterwards it seeds the default
// room list on a cold start and starts the periodic health ticker.
//
// A pull failure for one collection never aborts the others, and any error is
// absorbed here: the application proceeds with whatever local state exists.
func (e *Engine) Bootstrap(ctx context.Context) {
	e.bridge.CheckHealth(ctx)

	for _, collection := range models.BootstrapOrder() {
		e.bootstrapCollection(ctx, collection)
	}

	e.seedDefaults(ctx)

	if err := e.state.Refresh(ctx); err != nil {
		e.log.Warn().Err(err).Msg("bootstrap: state refresh failed")
	}

	e.startHealthTicker(defaultHealthInterval)
	e.signalDrain()
}

func (e *Engine) bootstrapCollection(ctx context.Context, collection string) {
	if e.bridge.Enabled() {
		remote := e.bridge.PullFromCloud(ctx, collection)
		if len(remote) > 0 {
			if err := e.store.MergeRemote(ctx, collection, remote); err != nil {
				e.log.Warn().Err(err).Str("collection", collection).Msg("bootstrap merge failed")
			} else {
				e.log.Info().Str("collection", collection).Int("records", len(remote)).Msg("merged remote snapshot")
			}
		}
	}

	sub := e.bridge.SubscribeToTable(collection, e.onRemoteChange)
	e.subMu.Lock()
	e.subs = append(e.subs, sub)
	e.subMu.Unlock()
}

// onRemoteChange handles one live notification. Echoes of this session's own
// writes are skipped; everything else lands in the local store and triggers a
// full refresh cascade rather than an incremental UI patch.
func (e *Engine) onRemoteChange(ev cloud.ChangeEvent) {
	if ev.Origin != "" && ev.Origin == e.bridge.Origin() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	switch {
	case ev.Type == cloud.EventDelete && ev.ID() != "":
		if err := e.store.RemoveRemote(ctx, ev.Table, ev.ID()); err != nil {
			e.log.Warn().Err(err).Str("table", ev.Table).Str("id", ev.ID()).Msg("remote delete apply failed")
		}
	case ev.Record != nil:
		if err := e.store.MergeRemote(ctx, ev.Table, []models.Record{ev.Record}); err != nil {
			e.log.Warn().Err(err).Str("table", ev.Table).Msg("remote change apply failed")
		}
	default:
		// Notification without a row image: fall back to a full pull.
		remote := e.bridge.PullFromCloud(ctx, ev.Table)
		if len(remote) > 0 {
			if err := e.store.MergeRemote(ctx, ev.Table, remote); err != nil {
				e.log.Warn().Err(err).Str("table", ev.Table).Msg("remote resync failed")
			}
		}
	}

	if err := e.state.Refresh(ctx); err != nil {
		e.log.Warn().Err(err).Msg("refresh after remote change failed")
	}
}

// seedDefaults populates the room grid and the settings singleton when they
// are still empty after every pull: cold start, cloud disabled, or cloud
// empty. Seeded records are ordinary local writes, so they mirror out.
func (e *Engine) seedDefaults(ctx context.Context) {
	count, err := e.store.Count(ctx, models.CollectionRooms)
	if err != nil {
		e.log.Warn().Err(err).Msg("seed: room count failed")
		return
	}
	if count == 0 {
		records := make([]models.Record, 0)
		for _, room := range models.DefaultRooms() {
			rec, err := models.ToRecord(room)
			if err != nil {
				continue
			}
			records = append(records, rec)
		}
		if err := e.store.BulkPut(ctx, models.CollectionRooms, records); err != nil {
			e.log.Warn().Err(err).Msg("seed: rooms failed")
		} else {
			e.log.Info().Int("rooms", len(records)).Msg("seeded default room list")
		}
	}

	if _, err := e.store.Get(ctx, models.CollectionSettings, models.SettingsID); err == db.ErrNotFound {
		rec, err := models.ToRecord(models.DefaultSettings())
		if err == nil {
			if err := e.store.Put(ctx, models.CollectionSettings, rec); err != nil {
				e.log.Warn().Err(err).Msg("seed: settings failed")
			}
		}
	}
}

// startHealthTicker re-probes the backend on a fixed interval for the life of
// the session, driving the online/offline indicator. A transition back to
// reachable nudges the drainer so queued pushes flush promptly.
func (e *Engine) startHealthTicker(interval time.Duration) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stop:
				return
			case <-ticker.C:
				wasOnline := e.bridge.Online()
				ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
				ok := e.bridge.CheckHealth(ctx)
				cancel()
				if ok && !wasOnline {
					e.log.Info().Msg("cloud reachable again")
					e.signalDrain()
				}
			}
		}
	}()
}
