// Package monitor keeps a bounded in-memory log of the requests that
// went through the network emulator.
package monitor

import (
	"sync"
	"time"

	"github.com/abrlab/netshaper/internal/netemu"
)

// DefaultMaxEntries is the default number of entries we keep.
const DefaultMaxEntries = 50

// Entry is an entry in the request log.
type Entry struct {
	ID             string  `json:"id"`
	Method         string  `json:"method"`
	URL            string  `json:"url"`
	Outcome        string  `json:"outcome"`
	Status         int     `json:"status"`
	Failure        string  `json:"failure,omitempty"`
	LatencyMs      int64   `json:"latencyMs"`
	DurationMs     int64   `json:"durationMs"`
	Throttled      bool    `json:"throttled"`
	BytesPerSecond float64 `json:"bytesPerSecond,omitempty"`
	Timestamp      string  `json:"timestamp"`
}

// NewEntry converts a [*netemu.Event] to an [Entry].
func NewEntry(ev *netemu.Event) Entry {
	return Entry{
		ID:             ev.ID,
		Method:         ev.Method,
		URL:            ev.URL,
		Outcome:        string(ev.Outcome),
		Status:         ev.StatusCode,
		Failure:        ev.Failure,
		LatencyMs:      ev.InjectedLatency.Milliseconds(),
		DurationMs:     ev.Elapsed.Milliseconds(),
		Throttled:      ev.Throttled,
		BytesPerSecond: ev.BytesPerSecond,
		Timestamp:      ev.Started.UTC().Format(time.RFC3339Nano),
	}
}

// Store is a bounded log of entries, newest first. Construct
// using [NewStore]. Methods are safe for concurrent use.
type Store struct {
	entries []Entry
	max     int
	mu      sync.RWMutex
}

var _ netemu.Observer = &Store{}

// NewStore creates a [*Store] keeping at most maxEntries entries. A
// non-positive value means [DefaultMaxEntries].
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{
		entries: []Entry{},
		max:     maxEntries,
	}
}

// Add prepends entry, dropping the oldest entries beyond the limit.
func (s *Store) Add(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry{entry}, s.entries...)
	if len(s.entries) > s.max {
		s.entries = s.entries[:s.max]
	}
}

// OnRequest implements netemu.Observer.
func (s *Store) OnRequest(ev *netemu.Event) {
	s.Add(NewEntry(ev))
}

// Entries returns a copy of the entries, newest first.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all the entries.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = []Entry{}
	s.mu.Unlock()
}
