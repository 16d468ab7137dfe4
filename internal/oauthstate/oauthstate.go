// Package oauthstate keeps short-lived OAuth handshake state between the chat
// command that starts a connect flow and the HTTP callback that finishes it.
package oauthstate

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

const DefaultTTL = 15 * time.Minute

// Pending is one started handshake. Secret carries the FatSecret request
// token secret and is empty for WHOOP.
type Pending struct {
	UserID int64
	Secret string
}

type Store struct {
	cache *ttlcache.Cache[string, Pending]
}

// New starts the expiry loop; call Stop on shutdown.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, Pending](ttl),
		ttlcache.WithDisableTouchOnHit[string, Pending](),
	)
	go cache.Start()
	return &Store{cache: cache}
}

func (s *Store) Stop() { s.cache.Stop() }

// Issue stores a new random state for the user and returns it.
func (s *Store) Issue(userID int64) string {
	state := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.Put(state, Pending{UserID: userID})
	return state
}

func (s *Store) Put(key string, p Pending) {
	s.cache.Set(key, p, ttlcache.DefaultTTL)
}

// Take returns and forgets the state; each state is usable once.
func (s *Store) Take(key string) (Pending, bool) {
	if key == "" {
		return Pending{}, false
	}
	item, ok := s.cache.GetAndDelete(key)
	if !ok || item == nil {
		return Pending{}, false
	}
	return item.Value(), true
}

// Peek returns the state without consuming it.
func (s *Store) Peek(key string) (Pending, bool) {
	item := s.cache.Get(key)
	if item == nil {
		return Pending{}, false
	}
	return item.Value(), true
}
