// ABOUTME: Thin client over the hosted realtime backend
// ABOUTME: Exposes push, remove, pull, subscribe, and health primitives per collection
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lodgekit/lodgekit/models"
)

const (
	restPath       = "/rest/v1/"
	requestTimeout = 15 * time.Second
)

// Bridge is the single gateway to the remote mirror. Every other component is
// ignorant of the transport; swapping the backend means changing only this
// package. All methods follow the availability-over-visibility contract:
// network, auth, and payload errors are swallowed and normalized to a boolean
// failure or an empty result, never an exception in the caller's path.
type Bridge struct {
	baseURL string
	apiKey  string
	origin  string // session id stamped on outgoing writes for echo suppression
	http    *http.Client
	log     zerolog.Logger

	enabled bool
	online  atomic.Bool
}

// NewBridge builds a bridge for the given endpoint. An empty or placeholder
// endpoint yields a disabled bridge: every primitive becomes a successful
// no-op and the system runs local-only.
func NewBridge(baseURL, apiKey, origin string, log zerolog.Logger) *Bridge {
	b := &Bridge{
		baseURL: baseURL,
		apiKey:  apiKey,
		origin:  origin,
		http:    &http.Client{Timeout: requestTimeout},
		log:     log.With().Str("component", "cloud").Logger(),
		enabled: isConfigured(baseURL, apiKey),
	}
	// An enabled bridge assumes reachable until the first health check says
	// otherwise, so the bootstrap pull gets one real attempt. A disabled
	// bridge is never online.
	b.online.Store(b.enabled)
	return b
}

func isConfigured(baseURL, apiKey string) bool {
	if baseURL == "" || apiKey == "" {
		return false
	}
	if baseURL == "YOUR_CLOUD_URL" || apiKey == "YOUR_ANON_KEY" {
		return false
	}
	if _, err := url.Parse(baseURL); err != nil {
		return false
	}
	return true
}

// Enabled reports whether cloud integration is configured at all.
func (b *Bridge) Enabled() bool { return b.enabled }

// Online reports the last observed reachability of the remote backend.
func (b *Bridge) Online() bool { return b.online.Load() }

// Ready reports whether a mirror write is worth attempting right now.
func (b *Bridge) Ready() bool { return b.enabled && b.Online() }

// Origin returns the session id stamped on this client's writes.
func (b *Bridge) Origin() string { return b.origin }

// PushToCloud upserts the given records into the named remote collection,
// with the primary key as conflict target. Returns false only on a transport
// failure; disabled or offline bridges report success without doing anything.
func (b *Bridge) PushToCloud(ctx context.Context, collection string, records ...models.Record) bool {
	if !b.enabled || len(records) == 0 {
		return true
	}
	if !b.Online() {
		return true
	}

	body, err := json.Marshal(records)
	if err != nil {
		b.log.Warn().Err(err).Str("collection", collection).Msg("push: marshal failed")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+restPath+collection, bytes.NewReader(body))
	if err != nil {
		return false
	}
	b.setHeaders(req)
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	if err := b.do(req); err != nil {
		b.log.Warn().Err(err).Str("collection", collection).Int("records", len(records)).Msg("push failed")
		return false
	}
	return true
}

// RemoveFromCloud deletes one record by primary key. Deleting an id that does
// not exist remotely is a success. Same no-op contract as PushToCloud.
func (b *Bridge) RemoveFromCloud(ctx context.Context, collection, id string) bool {
	if !b.enabled {
		return true
	}
	if !b.Online() {
		return true
	}

	u := fmt.Sprintf("%s%s%s?id=eq.%s", b.baseURL, restPath, collection, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return false
	}
	b.setHeaders(req)

	if err := b.do(req); err != nil {
		b.log.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("remove failed")
		return false
	}
	return true
}

// PullFromCloud fetches the entire remote collection. Any failure, including a
// disabled bridge, yields an empty slice; callers cannot distinguish an empty
// collection from a failed fetch.
func (b *Bridge) PullFromCloud(ctx context.Context, collection string) []models.Record {
	if !b.enabled {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+restPath+collection+"?select=*", nil)
	if err != nil {
		return nil
	}
	b.setHeaders(req)

	resp, err := b.http.Do(req)
	if err != nil {
		b.log.Warn().Err(err).Str("collection", collection).Msg("pull failed")
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b.log.Warn().Int("status", resp.StatusCode).Str("collection", collection).Msg("pull rejected")
		return nil
	}

	var records []models.Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		b.log.Warn().Err(err).Str("collection", collection).Msg("pull: malformed payload")
		return nil
	}
	return records
}

// CheckHealth probes the backend with a trivial query and records the result
// in the reachability flag. Never returns an error.
func (b *Bridge) CheckHealth(ctx context.Context) bool {
	if !b.enabled {
		b.online.Store(false)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.baseURL+restPath+models.CollectionRooms+"?select=id&limit=1", nil)
	if err != nil {
		b.online.Store(false)
		return false
	}
	b.setHeaders(req)

	resp, err := b.http.Do(req)
	if err != nil {
		b.online.Store(false)
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	ok := resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusUnauthorized
	b.online.Store(ok)
	return ok
}

// SetOnline overrides the reachability flag. Exposed for the health ticker and
// for tests simulating network loss.
func (b *Bridge) SetOnline(v bool) {
	b.online.Store(v)
}

func (b *Bridge) setHeaders(req *http.Request) {
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if b.origin != "" {
		req.Header.Set("X-Client-Origin", b.origin)
	}
}

func (b *Bridge) do(req *http.Request) error {
	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("remote returned %d", resp.StatusCode)
	}
	return nil
}
