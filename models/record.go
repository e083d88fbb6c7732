// ABOUTME: Generic record form shared by the store, cloud bridge, and backup layers
// ABOUTME: Handles record validation, shallow merging, and collision-resistant id generation
package models

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrMissingID      = errors.New("record has no id")
	ErrInvalidRecord  = errors.New("invalid record")
	ErrUnmarshalModel = errors.New("record does not decode into model")
)

// Record is the wire and storage form of every entity: a JSON object with at
// minimum a string "id" field. Nested objects (payment lists, menu options)
// ride along as opaque values and are never normalized.
type Record map[string]any

// ID returns the record's id, or "" if absent or not a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Validate checks the minimum contract enforced at the store boundary.
func (r Record) Validate() error {
	if r == nil {
		return ErrInvalidRecord
	}
	if r.ID() == "" {
		return ErrMissingID
	}
	if _, err := json.Marshal(r); err != nil {
		return err
	}
	return nil
}

// Merge returns a new record with the patch shallow-merged over r. Top-level
// keys in patch replace keys in r; nested values are not merged.
func (r Record) Merge(patch Record) Record {
	merged := make(Record, len(r)+len(patch))
	for k, v := range r {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// Clone returns a deep copy via a JSON round-trip, so callers can hand records
// to asynchronous consumers without sharing mutable state.
func (r Record) Clone() Record {
	data, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// ToModel decodes the record into a typed struct.
func (r Record) ToModel(v any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Join(ErrUnmarshalModel, err)
	}
	return nil
}

// ToRecord converts a typed struct to its generic record form.
func ToRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewID generates a collision-resistant record id: a ULID carries a millisecond
// timestamp prefix plus random suffix, so ids sort by creation time.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
