package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/corprag/leadgate/internal/cache"
)

const memoryShards = 16

// DefaultMemoryCapacity bounds the number of tracked keys per process.  When
// full, the least recently seen key is dropped and starts over on its next
// request.
const DefaultMemoryCapacity = 65536

// MemoryStore keeps windows in process memory.  Keys are spread over
// sixteen shards, each with its own mutex, so unrelated callers never
// contend.  State is per process and vanishes on restart.
type MemoryStore struct {
	shards [memoryShards]*memoryShard
}

type memoryShard struct {
	mu  sync.Mutex
	lru *cache.LRU[string, Window]
}

// NewMemoryStore returns a store holding at most capacity keys (rounded up to
// a multiple of the shard count).  capacity < 1 selects
// DefaultMemoryCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = DefaultMemoryCapacity
	}
	per := (capacity + memoryShards - 1) / memoryShards
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i] = &memoryShard{lru: cache.New[string, Window](per)}
	}
	return s
}

// Take implements Store.
func (s *MemoryStore) Take(_ context.Context, key string, max int, window time.Duration, now time.Time) (Window, bool, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.lru.Get(key)
	if !ok || !w.ResetAt.After(now) {
		w = Window{Count: 1, ResetAt: now.Add(window)}
		sh.lru.Add(key, w)
		return w, true, nil
	}
	if w.Count >= max {
		return w, false, nil
	}
	w.Count++
	sh.lru.Add(key, w)
	return w, true, nil
}

// Len reports how many keys are currently tracked.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += sh.lru.Len()
		sh.mu.Unlock()
	}
	return n
}

func (s *MemoryStore) shard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%memoryShards]
}
