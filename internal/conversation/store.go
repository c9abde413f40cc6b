package conversation

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store maps user IDs to histories. Histories idle longer than the TTL are
// evicted; a zero TTL keeps them for the life of the process. A history with
// a turn in flight is never replaced, even if the cache expired it.
type Store struct {
	mu       sync.Mutex
	cache    *cache.Cache
	ttl      time.Duration
	limit    int
	inflight map[string]*pinned
}

type pinned struct {
	history *History
	turns   int
}

// NewStore creates a store whose histories keep at most limit messages.
func NewStore(ttl time.Duration, limit int) *Store {
	exp, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		exp, cleanup = ttl, ttl/2
		if cleanup < time.Second {
			cleanup = time.Second
		}
	}
	return &Store{
		cache:    cache.New(exp, cleanup),
		ttl:      exp,
		limit:    limit,
		inflight: make(map[string]*pinned),
	}
}

// Get returns the history for userID, creating and registering an empty one
// on first use. Each call counts as activity for expiry.
func (s *Store) Get(userID string) *History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(userID)
}

// BeginTurn returns userID's history with its turn lock held. Until end is
// called every Get and BeginTurn for userID returns the same history.
func (s *Store) BeginTurn(userID string) (h *History, end func()) {
	s.mu.Lock()
	h = s.lookup(userID)
	p := s.inflight[userID]
	if p == nil {
		p = &pinned{history: h}
		s.inflight[userID] = p
	}
	p.turns++
	s.mu.Unlock()

	unlock := h.BeginTurn()
	var once sync.Once
	return h, func() {
		once.Do(func() {
			unlock()
			s.mu.Lock()
			defer s.mu.Unlock()
			p.turns--
			if p.turns == 0 {
				delete(s.inflight, userID)
			}
			s.cache.Set(userID, h, s.ttl)
		})
	}
}

// lookup must be called with s.mu held.
func (s *Store) lookup(userID string) *History {
	if p, ok := s.inflight[userID]; ok {
		s.cache.Set(userID, p.history, s.ttl)
		return p.history
	}
	if x, found := s.cache.Get(userID); found {
		h := x.(*History)
		s.cache.Set(userID, h, s.ttl)
		return h
	}
	h := NewHistory(s.limit)
	s.cache.Set(userID, h, s.ttl)
	return h
}

// Delete forgets userID's history.
func (s *Store) Delete(userID string) {
	s.cache.Delete(userID)
}

// Len returns the number of stored histories, including expired ones not yet purged.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
