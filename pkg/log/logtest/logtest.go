// Package logtest provides a recording logger for tests.
package logtest

import (
	"strings"
	"sync"

	"github.com/bft-labs/fimsync/pkg/log"
)

// Entry is a single recorded log message.
type Entry struct {
	Level   string
	Message string
	Fields  []log.Field
}

// Field returns the value of the named field and whether it was present.
func (e Entry) Field(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Recorder implements log.Logger and keeps every message in memory.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	with    []log.Field
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (r *Recorder) Debug(msg string, fields ...log.Field) { r.record("debug", msg, fields) }
func (r *Recorder) Info(msg string, fields ...log.Field)  { r.record("info", msg, fields) }
func (r *Recorder) Warn(msg string, fields ...log.Field)  { r.record("warn", msg, fields) }
func (r *Recorder) Error(msg string, fields ...log.Field) { r.record("error", msg, fields) }

// With returns a Recorder sharing the same buffer.
func (r *Recorder) With(fields ...log.Field) log.Logger {
	with := append(append([]log.Field{}, r.with...), fields...)
	return &Recorder{mu: r.mu, entries: r.entries, with: with}
}

// Entries returns a copy of the recorded messages.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), (*r.entries)...)
}

// Contains reports whether any message at level contains substr.
func (r *Recorder) Contains(level, substr string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func (r *Recorder) record(level, msg string, fields []log.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := append(append([]log.Field{}, r.with...), fields...)
	*r.entries = append(*r.entries, Entry{Level: level, Message: msg, Fields: all})
}
