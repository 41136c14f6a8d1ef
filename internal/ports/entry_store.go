package ports

import "github.com/bft-labs/fimsync/internal/domain"

// EntryReader gives read access to the store while its lock is held.
// It must not be retained after the View callback returns.
type EntryReader interface {
	// Ascend calls fn for every entry in ascending path order until fn
	// returns false.
	Ascend(fn func(e domain.Entry) bool)

	// AscendRange calls fn for every entry whose path is in [begin, end],
	// both bounds inclusive, in ascending order until fn returns false.
	AscendRange(begin, end string, fn func(e domain.Entry) bool)

	// Get returns the entry stored under path.
	Get(path string) (domain.Entry, bool)

	// Len returns the number of entries.
	Len() int
}

// EntryStore is the mutex-guarded ordered map of entries keyed by path.
type EntryStore interface {
	// View runs fn while holding the store's read lock.
	View(fn func(r EntryReader))
}
