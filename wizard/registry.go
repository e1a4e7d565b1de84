// Package wizard is the SessionRegistry (C9): in-process, non-durable
// state for multi-step ephemeral wizard UIs (currently just /setup).
// Deliberately never backed by Redis — persisting this would conflict with
// the "reconcile from DB on restart" invariant the rest of the core relies
// on (§9's design note); session/ is the Redis-backed registry, but that
// one is for the admin web dashboard's login sessions, a different thing
// entirely.
package wizard

import (
	"sync"
	"time"
)

const (
	shardCount = 16
	// DefaultTTL is how long a wizard session survives without being
	// touched before SessionGC considers it abandoned.
	DefaultTTL = 2 * time.Hour
)

// Kind distinguishes wizard flows sharing the same (guild, user) key space.
type Kind string

const (
	KindSetup Kind = "setup"
)

// Key identifies one in-flight wizard.
type Key struct {
	GuildID int64
	UserID  int64
	Kind    Kind
}

type entry struct {
	state     any
	expiresAt time.Time
}

type shard struct {
	mu   sync.Mutex
	data map[Key]entry
}

// Registry is a 16-way sharded map keyed by (guild, user, kind), guarded by
// per-shard locks rather than one global mutex so unrelated wizards never
// contend. TTL defaults to DefaultTTL and is refreshed on every Put.
type Registry struct {
	ttl    time.Duration
	shards [shardCount]*shard
}

func New() *Registry { return NewWithTTL(DefaultTTL) }

func NewWithTTL(ttl time.Duration) *Registry {
	r := &Registry{ttl: ttl}
	for i := range r.shards {
		r.shards[i] = &shard{data: map[Key]entry{}}
	}
	return r
}

func (r *Registry) shardFor(k Key) *shard {
	h := uint64(k.GuildID)*1000003 + uint64(k.UserID)*31 + hashKind(k.Kind)
	return r.shards[h%shardCount]
}

func hashKind(k Kind) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(k); i++ {
		h ^= uint64(k[i])
		h *= 1099511628211
	}
	return h
}

// Put stores state for key, resetting its TTL.
func (r *Registry) Put(key Key, state any) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{state: state, expiresAt: time.Now().Add(r.ttl)}
}

// Get returns the state for key and whether it exists and is unexpired.
// An expired entry is evicted lazily on lookup, same as Sweep would do.
func (r *Registry) Get(key Key) (any, bool) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(s.data, key)
		return nil, false
	}
	return e.state, true
}

// Delete drops key unconditionally, e.g. on wizard completion or /setup
// cancellation.
func (r *Registry) Delete(key Key) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Sweep drops every expired entry across all shards and returns the count
// removed. This is the SessionGC job body.
func (r *Registry) Sweep(now time.Time) int {
	removed := 0
	for _, s := range r.shards {
		s.mu.Lock()
		for k, e := range s.data {
			if now.After(e.expiresAt) {
				delete(s.data, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the total number of stored entries, including expired ones
// that have not been swept yet — for tests and /setup diagnostics.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.Lock()
		n += len(s.data)
		s.mu.Unlock()
	}
	return n
}
