package rule

import (
	"sync"

	"portrelay/internal/shared/errors"
)

// Entry pairs a RuleId with its Rule for list's ascending-order output.
type Entry struct {
	ID   ID
	Rule Rule
}

// Store is the concurrent index of rules: an append-only slice of optional
// entries, grounded on _examples/original_source/src/session/rules.rs's
// Database{rules: Vec<Option<Rule>>}, and per spec.md §9 deliberately NOT a
// hash map — the list form gives monotonic stable ids, O(1) get/update/
// delete, and a naturally ordered list for free. A sync.RWMutex gives a
// many-reader, writer-serialized discipline: HTTP GET/
// list handlers take the read lock, create/update/delete (driven by the
// session manager) take the write lock.
type Store struct {
	mu    sync.RWMutex
	rules []*Rule // nil entry = tombstone
}

// NewStore returns an empty rule store.
func NewStore() *Store {
	return &Store{}
}

// Create validates r, appends it, and returns the newly allocated ID.
// Ids are assigned by slice position, so they are strictly monotonic and
// never reused even after a delete.
func (s *Store) Create(r Rule) (ID, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := ID(len(s.rules))
	s.rules = append(s.rules, &r)
	return id, nil
}

// Get returns the rule at id, or a not-found AppError if id is out of
// range or tombstoned.
func (s *Store) Get(id ID) (Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.get(id)
	if r == nil {
		return Rule{}, errors.NewNotFoundError("rule not found")
	}
	return *r, nil
}

func (s *Store) get(id ID) *Rule {
	if int(id) < 0 || int(id) >= len(s.rules) {
		return nil
	}
	return s.rules[id]
}

// List returns every live (non-tombstoned) rule in ascending id order.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.rules))
	for i, r := range s.rules {
		if r == nil {
			continue
		}
		entries = append(entries, Entry{ID: ID(i), Rule: *r})
	}
	return entries
}

// Update replaces the rule at id and returns the previous value. Returns a
// not-found AppError if id is unknown or tombstoned.
func (s *Store) Update(id ID, r Rule) (Rule, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.get(id)
	if prev == nil {
		return Rule{}, errors.NewNotFoundError("rule not found")
	}
	previous := *prev
	s.rules[id] = &r
	return previous, nil
}

// Delete tombstones the rule at id and returns the value that was removed.
// A delete of an already-tombstoned or unknown id returns not-found, making
// double-delete observable.
func (s *Store) Delete(id ID) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.get(id)
	if prev == nil {
		return Rule{}, errors.NewNotFoundError("rule not found")
	}
	removed := *prev
	s.rules[id] = nil
	return removed, nil
}

// ActiveSourceCollision reports whether an active (non-tombstoned) rule
// other than excludeID already binds (protocol, source). Used by the
// manager to enforce spec.md §3's "distinct active rules must not share the
// same (protocol, source)" invariant at add/update time.
func (s *Store) ActiveSourceCollision(protocol Protocol, source Endpoint, excludeID ID, excludeSet bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, r := range s.rules {
		if r == nil {
			continue
		}
		if excludeSet && ID(i) == excludeID {
			continue
		}
		if r.Protocol == protocol && r.Source.Equal(source) {
			return true
		}
	}
	return false
}
