// ABOUTME: Live subscription channel over websocket
// ABOUTME: Delivers row-level remote change events per collection, with reconnect
package cloud

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lodgekit/lodgekit/models"
)

const (
	realtimePath   = "/realtime/v1/websocket"
	reconnectDelay = 5 * time.Second
)

// Change event types, tagged the way the backend labels row events.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ChangeEvent is one row-level remote change. Record is the full row image
// for inserts and updates; for deletes only the id survives. Origin carries
// the session id of the writing client, "" for writes from other systems.
type ChangeEvent struct {
	Type   string        `json:"type"`
	Table  string        `json:"table"`
	Record models.Record `json:"record,omitempty"`
	Origin string        `json:"origin,omitempty"`
}

// ID returns the changed row's id regardless of event type.
func (ev ChangeEvent) ID() string {
	if ev.Record != nil {
		return ev.Record.ID()
	}
	return ""
}

type subscribeFrame struct {
	Action string `json:"action"`
	Table  string `json:"table"`
	APIKey string `json:"apikey"`
}

// OnChange is invoked for every remote change observed server-side, including
// echoes of this client's own writes; callers filter by Origin if they care.
type OnChange func(ev ChangeEvent)

// Subscription is a handle on one live channel. Unsubscribe tears the channel
// down and is safe to call more than once.
type Subscription struct {
	table string
	stop  chan struct{}
	once  sync.Once

	mu   sync.Mutex
	conn *websocket.Conn
}

// Unsubscribe closes the channel and stops the reader.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.stop)
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	})
}

// Table returns the collection this subscription watches.
func (s *Subscription) Table() string { return s.table }

// SubscribeToTable opens a persistent channel for the named collection and
// invokes onChange for every insert, update, or delete the backend observes.
// A disabled bridge returns an inert handle whose Unsubscribe is a no-op.
// The channel redials with a fixed delay after transport errors and stays up
// for the life of the session otherwise.
func (b *Bridge) SubscribeToTable(table string, onChange OnChange) *Subscription {
	sub := &Subscription{table: table, stop: make(chan struct{})}
	if !b.enabled {
		return sub
	}

	go b.runSubscription(sub, onChange)
	return sub
}

func (b *Bridge) runSubscription(sub *Subscription, onChange OnChange) {
	log := b.log.With().Str("table", sub.table).Logger()

	for {
		select {
		case <-sub.stop:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(b.realtimeURL(), nil)
		if err != nil {
			log.Debug().Err(err).Msg("realtime dial failed")
			if !sleepOrStop(sub.stop, reconnectDelay) {
				return
			}
			continue
		}

		// Unsubscribe may have fired while the dial was in flight, in which
		// case it found no conn to close. The stop re-check and the store
		// share the lock so one side always sees the other.
		sub.mu.Lock()
		select {
		case <-sub.stop:
			sub.mu.Unlock()
			_ = conn.Close()
			return
		default:
		}
		sub.conn = conn
		sub.mu.Unlock()

		frame := subscribeFrame{Action: "subscribe", Table: sub.table, APIKey: b.apiKey}
		if err := conn.WriteJSON(frame); err != nil {
			sub.mu.Lock()
			sub.conn = nil
			sub.mu.Unlock()
			_ = conn.Close()
			if !sleepOrStop(sub.stop, reconnectDelay) {
				return
			}
			continue
		}
		log.Debug().Msg("realtime channel open")

		b.readLoop(sub, conn, onChange)

		sub.mu.Lock()
		sub.conn = nil
		sub.mu.Unlock()

		select {
		case <-sub.stop:
			return
		default:
			if !sleepOrStop(sub.stop, reconnectDelay) {
				return
			}
		}
	}
}

func (b *Bridge) readLoop(sub *Subscription, conn *websocket.Conn, onChange OnChange) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return
		}

		var ev ChangeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			b.log.Debug().Err(err).Str("table", sub.table).Msg("realtime: malformed event")
			continue
		}
		if ev.Table != "" && ev.Table != sub.table {
			continue
		}
		onChange(ev)
	}
}

func (b *Bridge) realtimeURL() string {
	u := b.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + realtimePath + "?apikey=" + url.QueryEscape(b.apiKey)
}

func sleepOrStop(stop <-chan struct{}, d time.Duration) bool {
	select {
	case <-stop:
		return false
	case <-time.After(d):
		return true
	}
}
