// ABOUTME: Replication engine tying the local store, outbox, cloud bridge, and app state together
// ABOUTME: Intercepts local writes to mirror them and drains the outbox with retry and backoff
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lodgekit/lodgekit/cloud"
	"github.com/lodgekit/lodgekit/db"
	"github.com/lodgekit/lodgekit/models"
	"github.com/lodgekit/lodgekit/state"
)

const (
	drainBatchSize  = 50
	drainInterval   = 3 * time.Second
	drainMaxBackoff = time.Minute
	pushTimeout     = 30 * time.Second
)

// Engine implements the local-first contract: writes land in the local store
// and the refresh cascade before any network traffic happens; the cloud mirror
// trails behind via the outbox drainer and never blocks a caller.
type Engine struct {
	store  *db.Store
	bridge *cloud.Bridge
	outbox *Outbox
	state  *state.AppState
	log    zerolog.Logger

	notify chan struct{}
	stop   chan struct{}
	wg     sync.WaitGroup

	subMu sync.Mutex
	subs  []*cloud.Subscription

	closeOnce sync.Once
}

// NewEngine wires the components and installs the mirror interceptor on the
// store. The drainer goroutine starts immediately; live subscriptions open
// during Bootstrap.
func NewEngine(store *db.Store, bridge *cloud.Bridge, outbox *Outbox, appState *state.AppState, log zerolog.Logger) *Engine {
	e := &Engine{
		store:  store,
		bridge: bridge,
		outbox: outbox,
		state:  appState,
		log:    log.With().Str("component", "sync").Logger(),
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}

	store.OnChange(e.intercept)

	e.wg.Add(1)
	go e.drainLoop()

	return e
}

// Close stops the drainer, the health ticker, and every live subscription.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.stop)
		e.subMu.Lock()
		for _, sub := range e.subs {
			sub.Unsubscribe()
		}
		e.subs = nil
		e.subMu.Unlock()
		e.wg.Wait()
	})
}

// State returns the UI-facing state container.
func (e *Engine) State() *state.AppState { return e.state }

// Bridge returns the cloud bridge, for the connectivity indicator.
func (e *Engine) Bridge() *cloud.Bridge { return e.bridge }

// PendingCount returns the number of queued mirror operations.
func (e *Engine) PendingCount() (int, error) { return e.outbox.PendingCount() }

// Put writes a record locally, schedules its mirror push, and refreshes app
// state before returning, so the caller observes its own write immediately
// regardless of cloud reachability.
func (e *Engine) Put(ctx context.Context, collection string, rec models.Record) error {
	if err := e.store.Put(ctx, collection, rec); err != nil {
		return err
	}
	return e.state.Refresh(ctx)
}

// Update shallow-merges a patch into an existing record. The mirror receives
// the fully merged image, never the bare patch.
func (e *Engine) Update(ctx context.Context, collection, id string, patch models.Record) (models.Record, error) {
	merged, err := e.store.Update(ctx, collection, id, patch)
	if err != nil {
		return nil, err
	}
	return merged, e.state.Refresh(ctx)
}

// Delete removes a record locally and schedules the remote delete.
func (e *Engine) Delete(ctx context.Context, collection, id string) error {
	if err := e.store.Delete(ctx, collection, id); err != nil {
		return err
	}
	return e.state.Refresh(ctx)
}

// Get reads one record from the local store.
func (e *Engine) Get(ctx context.Context, collection, id string) (models.Record, error) {
	return e.store.Get(ctx, collection, id)
}

// GetAll reads an entire collection from the local store.
func (e *Engine) GetAll(ctx context.Context, collection string) ([]models.Record, error) {
	return e.store.GetAll(ctx, collection)
}

// intercept is the store hook: after a local commit, enqueue the matching
// mirror operation and nudge the drainer. Sync-sourced writes are skipped so
// remote state is never mirrored back. Enqueue failures are logged and
// dropped; the local write already succeeded and must not be disturbed.
func (e *Engine) intercept(ev db.ChangeEvent) {
	if ev.Source == db.SourceSync {
		return
	}
	if !e.bridge.Enabled() {
		return
	}

	item := OutboxItem{Collection: ev.Collection, ID: ev.ID}
	switch ev.Op {
	case db.OpPut:
		item.Op = OutboxUpsert
		item.Record = ev.Record
	case db.OpDelete:
		item.Op = OutboxDelete
	default:
		return
	}

	if err := e.outbox.Enqueue(item); err != nil {
		e.log.Error().Err(err).Str("collection", ev.Collection).Str("id", ev.ID).Msg("outbox enqueue failed")
		return
	}
	e.signalDrain()
}

func (e *Engine) signalDrain() {
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// drainLoop empties the outbox whenever nudged or on a fixed cadence, backing
// off exponentially after failed pushes so an unreachable backend is not
// hammered.
func (e *Engine) drainLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	backoff := drainInterval
	for {
		select {
		case <-e.stop:
			return
		case <-e.notify:
		case <-ticker.C:
		}

		if e.drainOnce() {
			backoff = drainInterval
			continue
		}

		// Failed or not ready: wait out the backoff before listening again.
		select {
		case <-e.stop:
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > drainMaxBackoff {
			backoff = drainMaxBackoff
		}
	}
}

// drainOnce pushes queued items in order until the queue is empty or a push
// fails. Returns false when the bridge is not ready or a push failed, so the
// caller backs off.
func (e *Engine) drainOnce() bool {
	if !e.bridge.Ready() {
		return false
	}

	for {
		items, err := e.outbox.DequeueBatch(drainBatchSize)
		if err != nil {
			e.log.Error().Err(err).Msg("outbox read failed")
			return false
		}
		if len(items) == 0 {
			return true
		}

		for _, item := range items {
			if !e.pushItem(item) {
				if err := e.outbox.Bump(item); err != nil {
					e.log.Error().Err(err).Uint64("seq", item.Seq).Msg("outbox bump failed")
				}
				return false
			}
			if err := e.outbox.Ack(item.Seq); err != nil {
				e.log.Error().Err(err).Uint64("seq", item.Seq).Msg("outbox ack failed")
				return false
			}
		}
	}
}

func (e *Engine) pushItem(item OutboxItem) bool {
	// The bridge reports fake success when offline; acking an unsent item
	// would lose it, so reachability is re-checked per item, not just per
	// drain pass.
	if !e.bridge.Ready() {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	switch item.Op {
	case OutboxDelete:
		return e.bridge.RemoveFromCloud(ctx, item.Collection, item.ID)
	default:
		return e.bridge.PushToCloud(ctx, item.Collection, item.Record)
	}
}
