// Package store implements the in-memory entry inventory as an ordered map
// guarded by a single read/write mutex.
package store

import (
	"sync"

	"github.com/google/btree"

	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/ports"
)

const degree = 32

func lessByPath(a, b domain.Entry) bool { return a.Path < b.Path }

// Store is a concurrent ordered map of entries keyed by path.
type Store struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[domain.Entry]
}

var _ ports.EntryStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{tree: btree.NewG(degree, lessByPath)}
}

// Put inserts or replaces the entry under e.Path.
// It reports whether the stored checksum changed (true for new entries).
func (s *Store) Put(e domain.Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.tree.ReplaceOrInsert(e)
	return !ok || prev.Checksum() != e.Checksum()
}

// Delete removes the entry stored under path and reports whether it existed.
func (s *Store) Delete(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tree.Delete(domain.Entry{Path: path})
	return ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// View runs fn while holding the read lock.
func (s *Store) View(fn func(r ports.EntryReader)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(reader{tree: s.tree})
}

type reader struct {
	tree *btree.BTreeG[domain.Entry]
}

func (r reader) Ascend(fn func(e domain.Entry) bool) {
	r.tree.Ascend(btree.ItemIteratorG[domain.Entry](fn))
}

func (r reader) AscendRange(begin, end string, fn func(e domain.Entry) bool) {
	if begin > end {
		return
	}
	r.tree.AscendGreaterOrEqual(domain.Entry{Path: begin}, func(e domain.Entry) bool {
		if e.Path > end {
			return false
		}
		return fn(e)
	})
}

func (r reader) Get(path string) (domain.Entry, bool) {
	return r.tree.Get(domain.Entry{Path: path})
}

func (r reader) Len() int {
	return r.tree.Len()
}
