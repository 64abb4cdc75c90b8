// Package revision tracks the optimistic-concurrency revision of each draft.
// Revisions live in process memory only and are never evicted.
package revision

import (
	"strings"
	"sync"

	"daytrip/pkg/apperr"
)

type Registry struct {
	mu   sync.Mutex
	revs map[string]int
}

func NewRegistry() *Registry { return &Registry{revs: map[string]int{}} }

// Get returns the current revision; unknown or blank ids are at 0.
func (r *Registry) Get(draftID string) int {
	if strings.TrimSpace(draftID) == "" {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revs[draftID]
}

// Check reports whether expected is the stored revision without bumping it.
func (r *Registry) Check(draftID string, expected *int) error {
	if strings.TrimSpace(draftID) == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return mismatch(draftID, r.revs[draftID], expected)
}

// AssertAndBump accepts the edit only when expected equals the stored
// revision, then stores revision+1. A blank draftID is a no-op.
func (r *Registry) AssertAndBump(draftID string, expected *int) error {
	if strings.TrimSpace(draftID) == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.revs[draftID]
	if err := mismatch(draftID, current, expected); err != nil {
		return err
	}
	r.revs[draftID] = current + 1
	return nil
}

func mismatch(draftID string, current int, expected *int) error {
	if expected == nil || *expected != current {
		return apperr.Newf(apperr.RevisionMismatch, "revision mismatch for draft %q (current %d); refresh and retry", draftID, current)
	}
	return nil
}
