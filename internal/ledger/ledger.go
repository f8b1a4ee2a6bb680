// Package ledger implements the in-memory retry attempt counters
package ledger

import (
	"errors"
	"hash/fnv"
	"sync"
)

const defaultShards = 32

// A Key identifies one logical message on one tier
type Key struct {
	Tier string
	ID   string
}

type shard struct {
	mu     sync.Mutex
	counts map[Key]int
}

// A Ledger counts failed attempts per Key, capped at max
type Ledger struct {
	shards []*shard
	max    int
}

// NewLedger creates a Ledger whose counters never exceed maxAttempts
func NewLedger(maxAttempts int) (*Ledger, error) {
	if maxAttempts < 1 {
		return nil, errors.New("max attempts must be positive")
	}

	shards := make([]*shard, defaultShards)
	for i := range shards {
		shards[i] = &shard{counts: make(map[Key]int)}
	}
	return &Ledger{shards: shards, max: maxAttempts}, nil
}

func (l *Ledger) shardFor(key Key) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.Tier))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key.ID))
	return l.shards[h.Sum32()%uint32(len(l.shards))]
}

// Max is the cap of every counter
func (l *Ledger) Max() int {
	return l.max
}

// RecordFailure stores 1 for a new key, otherwise increments the counter, and returns the new value
func (l *Ledger) RecordFailure(key Key) int {
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.counts[key] + 1
	if n > l.max {
		n = l.max
	}
	s.counts[key] = n
	return n
}

// Reset removes the counter of key
func (l *Ledger) Reset(key Key) {
	s := l.shardFor(key)
	s.mu.Lock()
	delete(s.counts, key)
	s.mu.Unlock()
}

// Has reports whether key has a counter
func (l *Ledger) Has(key Key) bool {
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.counts[key]
	return ok
}

// Count returns the counter of key, 0 if absent
func (l *Ledger) Count(key Key) int {
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counts[key]
}

// Len returns the number of live counters
func (l *Ledger) Len() int {
	total := 0
	for _, s := range l.shards {
		s.mu.Lock()
		total += len(s.counts)
		s.mu.Unlock()
	}
	return total
}
