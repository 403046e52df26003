// Package frontier owns the mutable state of one crawl run: the dedup set,
// the result budget, and per-listing pagination bookkeeping. Handlers run
// concurrently, so every mutation here is an atomic check-then-set under a
// mutex. A RunState is created at run start and discarded at run end;
// nothing persists across runs.
package frontier

import "sync"

// RunState tracks seen product identities and the saved-count budget.
type RunState struct {
	mu     sync.Mutex
	dedup  bool
	target int
	seen   map[string]struct{}
	saved  int
}

// NewRunState builds run state. target <= 0 means the run never stops on
// count.
func NewRunState(dedup bool, target int) *RunState {
	return &RunState{
		dedup:  dedup,
		target: target,
		seen:   make(map[string]struct{}),
	}
}

// ShouldSkip reports whether key was already recorded. It does not insert:
// marking happens separately, once the caller commits to keeping the item,
// so a record that fails downstream is not silently lost to a premature
// "seen" mark.
func (s *RunState) ShouldSkip(key string) bool {
	if !s.dedup || key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, present := s.seen[key]
	return present
}

// MarkSeen atomically records key and reports whether it was newly
// inserted. Two concurrent handlers racing on the same key get exactly one
// true between them. Always true when dedup is disabled.
func (s *RunState) MarkSeen(key string) bool {
	if !s.dedup || key == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, present := s.seen[key]; present {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// RecordSaved consumes one unit of the result budget and reports whether
// the save may proceed. False means the target was already met while this
// record was in flight; the caller drops it. With no target every save
// proceeds.
func (s *RunState) RecordSaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target > 0 && s.saved >= s.target {
		return false
	}
	s.saved++
	return true
}

// ShouldStop reports whether the run reached its result budget. Checked
// before each unit of work so a met budget stops new fetches; RecordSaved
// is what keeps in-flight work from overshooting the count itself.
func (s *RunState) ShouldStop() bool {
	if s.target <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved >= s.target
}

// SavedCount returns the number of records saved so far.
func (s *RunState) SavedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}
