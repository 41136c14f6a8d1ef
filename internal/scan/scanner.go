// Package scan produces entries for the monitored directories and keeps
// the store current, periodically and optionally on filesystem events.
package scan

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/metrics"
	"github.com/bft-labs/fimsync/internal/ports"
	"github.com/bft-labs/fimsync/internal/store"
	"github.com/bft-labs/fimsync/pkg/log"
)

// DefaultDebounce is how long realtime events are collected before a rescan.
const DefaultDebounce = 100 * time.Millisecond

// Config contains configuration for the scanner.
type Config struct {
	Directories  []string
	ScanInterval time.Duration
	Realtime     bool
	Debounce     time.Duration
}

// Stats counts the changes made by one scan.
type Stats struct {
	Changed int
	Deleted int
	Total   int
}

// Scanner walks the configured directories into the store.
type Scanner struct {
	config Config
	store  *store.Store
	clock  clockwork.Clock
	logger log.Logger
}

// New creates a scanner.
func New(config Config, s *store.Store, clock clockwork.Clock, logger log.Logger) *Scanner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	return &Scanner{config: config, store: s, clock: clock, logger: logger}
}

// Scan walks every configured directory once.
func (s *Scanner) Scan(ctx context.Context) (Stats, error) {
	start := s.clock.Now()
	var total Stats
	for _, dir := range s.config.Directories {
		st, err := s.scanTree(ctx, dir)
		if err != nil {
			return total, err
		}
		total.Changed += st.Changed
		total.Deleted += st.Deleted
	}
	total.Total = s.store.Len()
	metrics.SetEntries(total.Total)

	s.logger.Info("scan complete",
		log.Int("entries", total.Total),
		log.Int("changed", total.Changed),
		log.Int("deleted", total.Deleted),
		log.Duration("took", s.clock.Since(start)),
	)
	return total, nil
}

// Run rescans every ScanInterval and, in realtime mode, rescans the paths
// reported by fsnotify. It does not perform an initial scan.
func (s *Scanner) Run(ctx context.Context) error {
	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	var watcher *fsnotify.Watcher
	if s.config.Realtime {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			s.logger.Warn("realtime monitoring unavailable", log.Err(err))
		} else {
			defer w.Close()
			watcher = w
			events, errs = w.Events, w.Errors
			s.watchDirectories(watcher)
		}
	}

	s.logger.Info("scanner running",
		log.Strings("directories", s.config.Directories),
		log.Duration("scan_interval", s.config.ScanInterval),
		log.Bool("realtime", watcher != nil),
	)

	var tick <-chan time.Time
	if s.config.ScanInterval > 0 {
		ticker := s.clock.NewTicker(s.config.ScanInterval)
		defer ticker.Stop()
		tick = ticker.Chan()
	}

	pending := make(map[string]struct{})
	var (
		debounce clockwork.Timer
		flush    <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()

		case <-tick:
			if _, err := s.Scan(ctx); err != nil {
				return err
			}
			if watcher != nil {
				s.watchDirectories(watcher)
			}

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op == fsnotify.Chmod && !s.tracked(event.Name) {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			if debounce == nil {
				debounce = s.clock.NewTimer(s.config.Debounce)
				flush = debounce.Chan()
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("watcher error", log.Err(err))

		case <-flush:
			debounce, flush = nil, nil
			if err := s.rescan(ctx, pending, watcher); err != nil {
				return err
			}
			pending = make(map[string]struct{})
		}
	}
}

func (s *Scanner) rescan(ctx context.Context, pending map[string]struct{}, watcher *fsnotify.Watcher) error {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var changed, deleted int
	for _, p := range paths {
		st, err := s.scanTree(ctx, p)
		if err != nil {
			return err
		}
		changed += st.Changed
		deleted += st.Deleted
	}
	if watcher != nil {
		s.watchDirectories(watcher)
	}
	metrics.SetEntries(s.store.Len())
	s.logger.Debug("realtime rescan",
		log.Int("paths", len(paths)),
		log.Int("changed", changed),
		log.Int("deleted", deleted),
	)
	return nil
}

// scanTree records root and everything below it, then deletes stored
// entries under root that were not seen.
func (s *Scanner) scanTree(ctx context.Context, root string) (Stats, error) {
	root = filepath.Clean(root)
	now := s.clock.Now().Unix()
	seen := make(map[string]struct{})
	var st Stats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			s.logger.Debug("skipping unreadable path", log.String("path", path), log.Err(err))
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		seen[path] = struct{}{}
		if s.store.Put(BuildEntry(path, info, now)) {
			st.Changed++
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return st, err
	}

	for _, p := range s.pathsUnder(root) {
		if _, ok := seen[p]; ok {
			continue
		}
		if s.store.Delete(p) {
			st.Deleted++
		}
	}
	return st, nil
}

func (s *Scanner) pathsUnder(root string) []string {
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	var out []string
	s.store.View(func(r ports.EntryReader) {
		r.Ascend(func(e domain.Entry) bool {
			if e.Path == root || strings.HasPrefix(e.Path, prefix) {
				out = append(out, e.Path)
			}
			return true
		})
	})
	return out
}

func (s *Scanner) tracked(path string) bool {
	var ok bool
	s.store.View(func(r ports.EntryReader) {
		_, ok = r.Get(filepath.Clean(path))
	})
	return ok
}

// watchDirectories registers every known directory with the watcher.
// fsnotify is not recursive.
func (s *Scanner) watchDirectories(watcher *fsnotify.Watcher) {
	dirs := append([]string(nil), s.config.Directories...)
	s.store.View(func(r ports.EntryReader) {
		r.Ascend(func(e domain.Entry) bool {
			if e.Attributes.Type == domain.EntryTypeDir {
				dirs = append(dirs, e.Path)
			}
			return true
		})
	})

	watched := make(map[string]struct{}, len(watcher.WatchList()))
	for _, w := range watcher.WatchList() {
		watched[w] = struct{}{}
	}
	for _, d := range dirs {
		d = filepath.Clean(d)
		if _, ok := watched[d]; ok {
			continue
		}
		if err := watcher.Add(d); err != nil {
			s.logger.Debug("failed to watch directory", log.String("path", d), log.Err(err))
			continue
		}
		watched[d] = struct{}{}
	}
}
