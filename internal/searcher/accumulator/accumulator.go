// Package accumulator provides a lock-striped map from document id to an
// additive relevance score. Writers touching different shards never contend;
// writers touching the same key are serialised by that shard's mutex.
package accumulator

import (
	"sort"
	"sync"
)

// DefaultShardCount trades memory and Snapshot cost for lower contention.
const DefaultShardCount = 50

type shard struct {
	mu     sync.Mutex
	scores map[int]float64
}

// Map is safe for concurrent Increment and Erase. Snapshot and Entries must
// only be called once all writers have finished.
type Map struct {
	shards []shard
}

// New creates a Map with shardCount shards (DefaultShardCount if not
// positive).
func New(shardCount int) *Map {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	m := &Map{shards: make([]shard, shardCount)}
	for i := range m.shards {
		m.shards[i].scores = make(map[int]float64)
	}
	return m
}

func (m *Map) shardFor(key int) *shard {
	return &m.shards[uint64(key)%uint64(len(m.shards))]
}

// Increment adds delta to key, inserting it at zero first if absent.
func (m *Map) Increment(key int, delta float64) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.scores[key] += delta
	s.mu.Unlock()
}

// Erase removes key. Erasing an absent key is a no-op.
func (m *Map) Erase(key int) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.scores, key)
	s.mu.Unlock()
}

// Snapshot merges all shards into one ordinary map.
func (m *Map) Snapshot() map[int]float64 {
	out := make(map[int]float64)
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for k, v := range s.scores {
			out[k] = v
		}
		s.mu.Unlock()
	}
	return out
}

// Entry is one key/score pair of an ordered snapshot.
type Entry struct {
	Key   int
	Score float64
}

// Entries is Snapshot ordered by ascending key.
func (m *Map) Entries() []Entry {
	snap := m.Snapshot()
	out := make([]Entry, 0, len(snap))
	for k, v := range snap {
		out = append(out, Entry{Key: k, Score: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}
