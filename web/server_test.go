// ABOUTME: Tests for the REST facade
// ABOUTME: Covers table pass-through, health, the API-key guard, and the external summaries
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgekit/lodgekit/cloud"
	"github.com/lodgekit/lodgekit/db"
	"github.com/lodgekit/lodgekit/models"
	"github.com/lodgekit/lodgekit/state"
	"github.com/lodgekit/lodgekit/sync"
)

func newTestServer(t *testing.T) (*sync.Engine, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()

	store, err := db.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	outbox, err := sync.OpenOutbox(filepath.Join(dir, "outbox"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = outbox.Close() })

	bridge := cloud.NewBridge("", "", "session-1", zerolog.Nop())
	eng := sync.NewEngine(store, bridge, outbox, state.New(store), zerolog.Nop())
	t.Cleanup(eng.Close)

	srv := httptest.NewServer(NewServer(eng, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return eng, srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	var body map[string]any
	status := getJSON(t, srv.URL+"/api/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["cloud_enabled"])
	assert.Equal(t, false, body["cloud_online"], "disabled cloud must not read as online")
	assert.Equal(t, float64(0), body["pending_sync"])
}

func TestTableListAndCreate(t *testing.T) {
	eng, srv := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, eng.Put(ctx, models.CollectionGuests, models.Record{"id": "g-1", "name": "Asha"}))

	var records []models.Record
	status := getJSON(t, srv.URL+"/api/guests", &records)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, records, 1)
	assert.Equal(t, "Asha", records[0]["name"])

	// POST an object without an id: the facade assigns one
	resp, err := http.Post(srv.URL+"/api/guests", "application/json",
		strings.NewReader(`{"name": "Ravi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created []models.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Len(t, created, 1)
	assert.NotEmpty(t, created[0].ID())

	all, err := eng.GetAll(ctx, models.CollectionGuests)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTableCreateArrayBody(t *testing.T) {
	eng, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/menu_items", "application/json",
		strings.NewReader(`[{"id": "m-1", "name": "Idli"}, {"id": "m-2", "name": "Vada"}]`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	all, err := eng.GetAll(context.Background(), models.CollectionMenuItems)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTableRejections(t *testing.T) {
	_, srv := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/not_a_table", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/guests/g-1", nil))

	resp, err := http.Post(srv.URL+"/api/guests", "application/json", strings.NewReader(`{"name": `))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/guests", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func setAPIKey(t *testing.T, eng *sync.Engine, key string) {
	t.Helper()
	settings := models.DefaultSettings()
	settings.APIKey = key
	rec, err := models.ToRecord(settings)
	require.NoError(t, err)
	require.NoError(t, eng.Put(context.Background(), models.CollectionSettings, rec))
}

func TestExternalEndpointsRequireAPIKey(t *testing.T) {
	eng, srv := newTestServer(t)

	// no key configured: closed, not open
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, srv.URL+"/api/external/accounting", nil))

	setAPIKey(t, eng, "secret-key")

	for _, path := range []string{"/api/external/accounting", "/api/external/occupancy"} {
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		req.Header.Set("X-API-Key", "wrong")
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		req.Header.Set("X-API-Key", "secret-key")
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestAccountingSummary(t *testing.T) {
	eng, srv := newTestServer(t)
	ctx := context.Background()
	setAPIKey(t, eng, "secret-key")

	for _, rec := range []models.Record{
		{"id": "t-1", "kind": models.TxnRoomCharge, "amount": 1500},
		{"id": "t-2", "kind": models.TxnPayment, "amount": 1000},
		{"id": "t-3", "kind": models.TxnRefund, "amount": 200},
	} {
		require.NoError(t, eng.Put(ctx, models.CollectionTransactions, rec))
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/external/accounting", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret-key")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(1500), body["total_charges"])
	assert.Equal(t, float64(800), body["total_payments"])
}

func TestOccupancySummary(t *testing.T) {
	eng, srv := newTestServer(t)
	ctx := context.Background()
	setAPIKey(t, eng, "secret-key")

	for _, rec := range []models.Record{
		{"id": "room-1", "number": "101", "status": models.RoomOccupied},
		{"id": "room-2", "number": "102", "status": models.RoomOccupied},
		{"id": "room-3", "number": "103", "status": models.RoomVacant},
		{"id": "room-4", "number": "104", "status": models.RoomMaintenance},
	} {
		require.NoError(t, eng.Put(ctx, models.CollectionRooms, rec))
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/external/occupancy", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret-key")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(4), body["total_rooms"])
	assert.Equal(t, float64(2), body["occupied"])
	assert.Equal(t, 0.5, body["occupancy_rate"])
}
