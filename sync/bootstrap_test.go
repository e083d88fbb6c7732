// ABOUTME: Tests for startup reconciliation between the cloud mirror and the local store
// ABOUTME: Covers additive merges, remote-wins collisions, default seeding, and remote change handling
package sync

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgekit/lodgekit/cloud"
	"github.com/lodgekit/lodgekit/models"
)

func TestBootstrapColdStartSeedsDefaults(t *testing.T) {
	b := cloud.NewBridge("", "", "session-1", zerolog.Nop())
	eng := newTestEngine(t, b)

	eng.Bootstrap(context.Background())

	rooms := eng.State().Rooms()
	require.Len(t, rooms, len(models.DefaultRooms()))
	for _, room := range rooms {
		assert.Equal(t, models.RoomVacant, room.Status)
	}

	settings := eng.State().Settings()
	assert.Equal(t, models.DefaultSettings().PropertyName, settings.PropertyName)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	b := cloud.NewBridge("", "", "session-1", zerolog.Nop())
	eng := newTestEngine(t, b)

	ctx := context.Background()
	eng.Bootstrap(ctx)

	// mutate one seeded room, then bootstrap again: the edit must survive
	_, err := eng.Update(ctx, models.CollectionRooms, "room-101", models.Record{"status": models.RoomOccupied})
	require.NoError(t, err)

	eng.Bootstrap(ctx)

	assert.Len(t, eng.State().Rooms(), len(models.DefaultRooms()))
	got, err := eng.Get(ctx, models.CollectionRooms, "room-101")
	require.NoError(t, err)
	assert.Equal(t, models.RoomOccupied, got["status"])
}

func TestBootstrapMergesAdditively(t *testing.T) {
	fc := newFakeCloud(t)
	fc.seed("guests",
		models.Record{"id": "g-remote", "name": "Remote Guest"},
		models.Record{"id": "g-both", "name": "Cloud Copy"},
	)

	eng := newTestEngine(t, cloudBridge(fc, "session-1"))
	ctx := context.Background()

	// local-only record and a colliding id, written before bootstrap runs
	require.NoError(t, eng.store.MergeRemote(ctx, models.CollectionGuests, []models.Record{
		{"id": "g-local", "name": "Local Guest"},
		{"id": "g-both", "name": "Local Copy"},
	}))

	eng.Bootstrap(ctx)

	// local-only survives, remote-only arrives, collision goes to the remote copy
	local, err := eng.Get(ctx, models.CollectionGuests, "g-local")
	require.NoError(t, err)
	assert.Equal(t, "Local Guest", local["name"])

	remote, err := eng.Get(ctx, models.CollectionGuests, "g-remote")
	require.NoError(t, err)
	assert.Equal(t, "Remote Guest", remote["name"])

	both, err := eng.Get(ctx, models.CollectionGuests, "g-both")
	require.NoError(t, err)
	assert.Equal(t, "Cloud Copy", both["name"])
}

func TestBootstrapSkipsSeedingWhenCloudHasRooms(t *testing.T) {
	fc := newFakeCloud(t)
	fc.seed("rooms", models.Record{"id": "room-cloud", "status": models.RoomOccupied})

	eng := newTestEngine(t, cloudBridge(fc, "session-1"))
	eng.Bootstrap(context.Background())

	// the pulled room satisfies the cold-start check; no defaults are layered on
	records := eng.State().Collection(models.CollectionRooms)
	require.Len(t, records, 1)
	assert.Equal(t, "room-cloud", records[0].ID())
}

func TestBootstrapProceedsWithCloudUnreachable(t *testing.T) {
	fc := newFakeCloud(t)
	fc.setFailing(true)

	eng := newTestEngine(t, cloudBridge(fc, "session-1"))
	eng.Bootstrap(context.Background())

	// pulls failed silently; seeding and local operation continue
	assert.False(t, eng.Bridge().Online())
	assert.Len(t, eng.State().Rooms(), len(models.DefaultRooms()))

	require.NoError(t, eng.Put(context.Background(), models.CollectionGuests, models.Record{"id": "g-1"}))
	assert.Len(t, eng.State().Collection(models.CollectionGuests), 1)
}

func TestRemoteChangeRefreshesState(t *testing.T) {
	fc := newFakeCloud(t)
	eng := newTestEngine(t, cloudBridge(fc, "session-1"))
	ctx := context.Background()
	eng.Bootstrap(ctx)

	eng.onRemoteChange(cloud.ChangeEvent{
		Type:   cloud.EventInsert,
		Table:  models.CollectionGuests,
		Record: models.Record{"id": "g-remote", "name": "Walk In"},
		Origin: "session-2",
	})

	// state already reflects the applied change when the handler returns
	snapshot := eng.State().Collection(models.CollectionGuests)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "g-remote", snapshot[0].ID())

	stored, err := eng.Get(ctx, models.CollectionGuests, "g-remote")
	require.NoError(t, err)
	assert.Equal(t, "Walk In", stored["name"])
}

func TestRemoteDeleteRemovesLocally(t *testing.T) {
	fc := newFakeCloud(t)
	eng := newTestEngine(t, cloudBridge(fc, "session-1"))
	ctx := context.Background()

	require.NoError(t, eng.store.MergeRemote(ctx, models.CollectionGuests, []models.Record{{"id": "g-1", "name": "Asha"}}))

	eng.onRemoteChange(cloud.ChangeEvent{
		Type:   cloud.EventDelete,
		Table:  models.CollectionGuests,
		Record: models.Record{"id": "g-1"},
		Origin: "session-2",
	})

	_, err := eng.Get(ctx, models.CollectionGuests, "g-1")
	assert.Error(t, err)

	// applying the delete must not queue a mirror delete of its own
	n, err := eng.PendingCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRemoteChangeWithoutRowImageResyncs(t *testing.T) {
	fc := newFakeCloud(t)
	fc.seed("menu_items", models.Record{"id": "m-1", "name": "Masala Dosa", "price": 120.0})

	eng := newTestEngine(t, cloudBridge(fc, "session-1"))
	ctx := context.Background()

	eng.onRemoteChange(cloud.ChangeEvent{
		Type:   cloud.EventUpdate,
		Table:  models.CollectionMenuItems,
		Origin: "session-2",
	})

	got, err := eng.Get(ctx, models.CollectionMenuItems, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "Masala Dosa", got["name"])
}

func TestHealthRecoveryNudgesDrainer(t *testing.T) {
	fc := newFakeCloud(t)
	fc.setFailing(true)

	eng := newTestEngine(t, cloudBridge(fc, "session-1"))
	ctx := context.Background()
	eng.Bridge().SetOnline(false)

	require.NoError(t, eng.Put(ctx, models.CollectionGuests, models.Record{"id": "g-1", "name": "Asha"}))
	eng.startHealthTicker(50 * time.Millisecond)

	fc.setFailing(false)

	// the ticker notices recovery and the queued push flushes
	assert.Eventually(t, func() bool {
		return fc.row("guests", "g-1") != nil
	}, 10*time.Second, 20*time.Millisecond)
}
