// ABOUTME: Persisted outbox queue for pending cloud mirror operations
// ABOUTME: Badger-backed FIFO so a missed push survives restarts instead of being lost
package sync

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/lodgekit/lodgekit/models"
)

// Outbox operation kinds.
const (
	OutboxUpsert = "upsert"
	OutboxDelete = "delete"
)

var outboxPrefix = []byte("outbox/")

// OutboxItem is one pending mirror operation. For upserts Record holds the
// full post-merge image; for deletes only ID is set. Items drain in enqueue
// order per queue, which preserves the order of edits to a single record.
type OutboxItem struct {
	Seq        uint64        `json:"seq"`
	Collection string        `json:"collection"`
	Op         string        `json:"op"`
	ID         string        `json:"id"`
	Record     models.Record `json:"record,omitempty"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
	Attempts   int           `json:"attempts,omitempty"`
}

// Outbox is the durable pending-sync queue. Writers enqueue synchronously
// right after the local commit; the engine's drainer empties it whenever the
// bridge is ready, retrying with backoff on failure.
type Outbox struct {
	db  *badger.DB
	seq *badger.Sequence
}

// OpenOutbox opens (creating if needed) the outbox at dir.
func OpenOutbox(dir string) (*Outbox, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open outbox: %w", err)
	}
	seq, err := bdb.GetSequence([]byte("outbox-seq"), 128)
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("failed to open outbox sequence: %w", err)
	}
	return &Outbox{db: bdb, seq: seq}, nil
}

func (o *Outbox) Close() error {
	if o.seq != nil {
		_ = o.seq.Release()
	}
	return o.db.Close()
}

// Enqueue appends one item to the queue.
func (o *Outbox) Enqueue(item OutboxItem) error {
	n, err := o.seq.Next()
	if err != nil {
		return err
	}
	item.Seq = n
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}

	val, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return o.db.Update(func(txn *badger.Txn) error {
		return txn.Set(outboxKey(n), val)
	})
}

// DequeueBatch returns up to limit items in enqueue order without removing
// them; callers Ack items once the mirror confirms them.
func (o *Outbox) DequeueBatch(limit int) ([]OutboxItem, error) {
	var items []OutboxItem
	err := o.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = outboxPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(items) < limit; it.Next() {
			var item OutboxItem
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			})
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// Ack removes a confirmed item from the queue.
func (o *Outbox) Ack(seq uint64) error {
	return o.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(outboxKey(seq))
	})
}

// Bump increments an item's attempt counter in place after a failed push.
func (o *Outbox) Bump(item OutboxItem) error {
	item.Attempts++
	val, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return o.db.Update(func(txn *badger.Txn) error {
		return txn.Set(outboxKey(item.Seq), val)
	})
}

// PendingCount returns the number of queued items.
func (o *Outbox) PendingCount() (int, error) {
	count := 0
	err := o.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = outboxPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func outboxKey(seq uint64) []byte {
	key := make([]byte, len(outboxPrefix)+8)
	copy(key, outboxPrefix)
	binary.BigEndian.PutUint64(key[len(outboxPrefix):], seq)
	return key
}
