package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Store persists component records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save writes rec, overwriting any record with the same ID.
	Save(ctx context.Context, rec *Record) error

	// Load returns the record for id.
	// Returns (nil, nil) if no record exists.
	Load(ctx context.Context, id string) (*Record, error)

	// Delete removes the record for id. Deleting a missing record is not an
	// error.
	Delete(ctx context.Context, id string) error

	// List returns the ids of all stored records in lexical order.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// Record is one component checkpoint.
type Record struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Data    map[string]any `json:"data"`
	Markup  string         `json:"markup"`
	SavedAt time.Time      `json:"savedAt"`
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("snapshot: store is closed")

// ErrInvalidID is returned for an empty record id.
var ErrInvalidID = errors.New("snapshot: empty record id")

// Encode serializes a record.
func Encode(rec *Record) ([]byte, error) {
	return json.Marshal(rec)
}

// Decode parses a serialized record.
func Decode(b []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
