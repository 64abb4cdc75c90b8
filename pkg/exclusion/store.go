// Package exclusion remembers, per session, which places a user already
// rejected so recommend-again does not offer them twice.
package exclusion

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

type set struct {
	mu    sync.Mutex
	order []string // insertion order, oldest first
	ids   map[string]struct{}
}

// Store is bounded twice: the least recently used session is evicted past
// maxSessions, and a session forgets its oldest ids past perSession.
type Store struct {
	sessions   *lru.Cache[string, *set]
	perSession int
	mu         sync.Mutex // serializes get-or-create
}

func New(maxSessions, perSession int) (*Store, error) {
	if maxSessions < 1 {
		maxSessions = 1
	}
	if perSession < 1 {
		perSession = 1
	}
	c, err := lru.New[string, *set](maxSessions)
	if err != nil {
		return nil, err
	}
	return &Store{sessions: c, perSession: perSession}, nil
}

func (s *Store) session(id string) *set {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions.Get(id); ok {
		return e
	}
	e := &set{ids: map[string]struct{}{}}
	s.sessions.Add(id, e)
	return e
}

// Add records placeIDs for the session; blank ids are ignored.
func (s *Store) Add(sessionID string, placeIDs ...string) {
	var e *set
	for _, id := range placeIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if e == nil {
			e = s.session(sessionID)
			e.mu.Lock()
			defer e.mu.Unlock()
		}
		if _, ok := e.ids[id]; ok {
			continue
		}
		e.ids[id] = struct{}{}
		e.order = append(e.order, id)
		for len(e.order) > s.perSession {
			delete(e.ids, e.order[0])
			e.order = e.order[1:]
		}
	}
}

// Snapshot returns a copy of the session's excluded ids.
func (s *Store) Snapshot(sessionID string) map[string]struct{} {
	out := map[string]struct{}{}
	e, ok := s.sessions.Get(sessionID)
	if !ok {
		return out
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.ids {
		out[id] = struct{}{}
	}
	return out
}

func (s *Store) Reset(sessionID string) { s.sessions.Remove(sessionID) }

func (s *Store) Len() int { return s.sessions.Len() }
