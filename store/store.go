// Package store keeps the results of annotation requests for later retrieval.
package store

import (
	"sync"
	"time"

	"github.com/foghegehog/inference-server/annotate"
)

// DefaultTTL is how long results are kept unless configured otherwise.
const DefaultTTL = time.Hour

// Result is an annotated image.
type Result struct {
	MimeType string            `json:"mime_type"`
	Data     []byte            `json:"data"`
	Box      annotate.PixelBox `json:"box"`
	Created  int64             `json:"created"` // Unix time.
}

// Store keeps results by key.
type Store interface {
	// Put stores r under key for ttl.
	Put(key string, r Result, ttl time.Duration) error
	// Get returns the result stored under key. ok is false if there is none or it expired.
	Get(key string) (r Result, ok bool, err error)
	Close() error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	result  Result
	expires time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Put(key string, r Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)
	s.entries[key] = memoryEntry{result: r, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(key string) (Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Result{}, false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return Result{}, false, nil
	}
	return e.result, true, nil
}

// Len is the number of stored results, including expired ones not yet evicted.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error {
	return nil
}

// evictExpired drops the expired entries. Must be called with s.mu held.
func (s *MemoryStore) evictExpired(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}
