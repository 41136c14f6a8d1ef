// Package integrity computes order-sensitive digests over ranges of the
// entry store and splits mismatched ranges in two.
package integrity

import (
	"encoding/hex"
	"hash"
	"io"

	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/ports"
)

// Digest summarizes a contiguous range of entries.
type Digest struct {
	Begin    string
	End      string
	Checksum string
	Count    int
}

// Range is one half of a split.
type Range struct {
	Begin string
	End   string
	// Tail is the first key after End, empty for the right half.
	Tail     string
	Checksum string
	Count    int
}

// Split is the outcome of splitting a range.
//
// Count == 0: nothing to report. Count == 1: Entry holds the only entry.
// Count > 1: Left and Right partition the range.
type Split struct {
	Count int
	Entry *domain.Entry
	Left  Range
	Right Range
}

// Engine computes digests over an EntryStore.
type Engine struct {
	store   ports.EntryStore
	newHash func() hash.Hash
}

// NewEngine creates an engine. A nil newHash selects SHA-1.
func NewEngine(store ports.EntryStore, newHash func() hash.Hash) *Engine {
	if newHash == nil {
		newHash, _ = NewHasher(AlgorithmSHA1)
	}
	return &Engine{store: store, newHash: newHash}
}

type keyed struct {
	path     string
	checksum string
}

// Global digests every entry in the store.
// It returns domain.ErrEmptyStore when there is nothing to summarize.
func (e *Engine) Global() (Digest, error) {
	var items []keyed
	e.store.View(func(r ports.EntryReader) {
		items = make([]keyed, 0, r.Len())
		r.Ascend(func(en domain.Entry) bool {
			items = append(items, keyed{path: en.Path, checksum: en.Checksum()})
			return true
		})
	})

	if len(items) == 0 {
		return Digest{}, domain.ErrEmptyStore
	}
	return Digest{
		Begin:    items[0].path,
		End:      items[len(items)-1].path,
		Checksum: e.digest(items),
		Count:    len(items),
	}, nil
}

// Split splits the inclusive range [begin, end] in two halves of n/2 and
// n-n/2 entries. Both halves come from one read-lock acquisition.
func (e *Engine) Split(begin, end string) Split {
	var (
		items []keyed
		only  domain.Entry
	)
	e.store.View(func(r ports.EntryReader) {
		r.AscendRange(begin, end, func(en domain.Entry) bool {
			if len(items) == 0 {
				only = en
			}
			items = append(items, keyed{path: en.Path, checksum: en.Checksum()})
			return true
		})
	})

	n := len(items)
	switch n {
	case 0:
		return Split{}
	case 1:
		return Split{Count: 1, Entry: &only}
	}

	m := n / 2
	left, right := items[:m], items[m:]
	return Split{
		Count: n,
		Left: Range{
			Begin:    left[0].path,
			End:      left[m-1].path,
			Tail:     right[0].path,
			Checksum: e.digest(left),
			Count:    len(left),
		},
		Right: Range{
			Begin:    right[0].path,
			End:      right[len(right)-1].path,
			Checksum: e.digest(right),
			Count:    len(right),
		},
	}
}

// List returns a copy of every entry in [begin, end].
func (e *Engine) List(begin, end string) []domain.Entry {
	var out []domain.Entry
	e.store.View(func(r ports.EntryReader) {
		r.AscendRange(begin, end, func(en domain.Entry) bool {
			out = append(out, en)
			return true
		})
	})
	return out
}

func (e *Engine) digest(items []keyed) string {
	h := e.newHash()
	for _, it := range items {
		_, _ = io.WriteString(h, it.checksum)
	}
	return hex.EncodeToString(h.Sum(nil))
}
