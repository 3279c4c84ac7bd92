package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	CollectionUsers           = "users"
	CollectionHealthData      = "health_data"
	CollectionRecommendations = "recommendations"
	CollectionChatHistory     = "chat_history"
)

// DocumentStore keeps JSON documents grouped in named collections. A
// collection maps keys to either a single document (Get/Put) or an ordered,
// capped list of entries (Append/Entries). Atomicity is only guaranteed per
// single document.
type DocumentStore interface {
	// Get decodes the document at collection/key into dst. It reports false
	// when the document is absent or cannot be decoded.
	Get(ctx context.Context, collection, key string, dst any) (bool, error)
	Put(ctx context.Context, collection, key string, value any) error
	All(ctx context.Context, collection string) (map[string]json.RawMessage, error)
	// Append adds entry to the list at collection/key and keeps only the most
	// recent limit entries. limit <= 0 keeps everything.
	Append(ctx context.Context, collection, key string, entry any, limit int) error
	Entries(ctx context.Context, collection, key string) ([]json.RawMessage, error)
	Close() error
}

// PersistenceError wraps a read or write failure of the underlying backend.
type PersistenceError struct {
	Op         string
	Collection string
	Key        string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("store %s %s/%s: %v", e.Op, e.Collection, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsPersistenceError(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr)
}

func persistenceErr(op, collection, key string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Collection: collection, Key: key, Err: err}
}

func encodeDocument(value any) ([]byte, error) {
	if raw, ok := value.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, errors.New("invalid raw JSON document")
		}
		return raw, nil
	}
	return json.Marshal(value)
}

// trimTail keeps the last limit elements.
func trimTail(entries []json.RawMessage, limit int) []json.RawMessage {
	if limit <= 0 || len(entries) <= limit {
		return entries
	}
	return entries[len(entries)-limit:]
}
