// Package store persists drift reports for serve mode. Three backends share
// one interface: an in-memory store for single-instance runs, Redis for
// shared ephemeral storage with TTL, and Postgres for durable history.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/driftlab/driftdetect/drift"
)

// Record is one persisted drift report with its identity and provenance. Key
// is the combined content hash of the two snapshots, so identical inputs
// always map to the same record.
type Record struct {
	Key         string        `json:"key"`
	GeneratedAt time.Time     `json:"generated_at"`
	Drift       *drift.Report `json:"drift"`
}

// Store persists and retrieves drift report records.
type Store interface {
	// Save upserts a record under its key and marks it the latest.
	Save(ctx context.Context, rec *Record) error

	// Latest returns the most recently saved record, or nil if none exists.
	Latest(ctx context.Context) (*Record, error)

	// Close releases resources.
	Close() error
}

// Open selects a backend by name: "memory", "redis", or "postgres".
func Open(backend, redisAddr, postgresConn string, ttl time.Duration) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(redisAddr, ttl)
	case "postgres":
		return NewPostgresStore(postgresConn)
	default:
		return nil, fmt.Errorf("unknown report store backend %q", backend)
	}
}

// MemoryStore is an in-memory report store.
type MemoryStore struct {
	mu     sync.RWMutex
	byKey  map[string]*Record
	latest *Record
}

// NewMemoryStore creates an in-memory report store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: make(map[string]*Record)}
}

func (m *MemoryStore) Save(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey[rec.Key] = rec
	m.latest = rec
	return nil
}

func (m *MemoryStore) Latest(ctx context.Context) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, nil
}

func (m *MemoryStore) Close() error { return nil }
