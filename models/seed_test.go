// ABOUTME: Tests for default seed data
// ABOUTME: Seed ids must be stable so repeated seeding stays idempotent
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRooms(t *testing.T) {
	first := DefaultRooms()
	second := DefaultRooms()
	require.NotEmpty(t, first)

	ids := make(map[string]bool)
	for i, room := range first {
		assert.NotEmpty(t, room.ID)
		assert.False(t, ids[room.ID], "duplicate seed id %s", room.ID)
		ids[room.ID] = true
		assert.Equal(t, RoomVacant, room.Status)
		assert.Equal(t, second[i].ID, room.ID, "seed ids must be stable across calls")
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, SettingsID, s.ID)
	assert.NotEmpty(t, s.RoomTypes)
}
