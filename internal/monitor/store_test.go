package monitor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abrlab/netshaper/internal/netemu"
	"github.com/google/go-cmp/cmp"
)

func TestNewStore(t *testing.T) {
	if s := NewStore(0); s.max != DefaultMaxEntries {
		t.Fatal("unexpected max", s.max)
	}
	if s := NewStore(7); s.max != 7 {
		t.Fatal("unexpected max", s.max)
	}
	if entries := NewStore(0).Entries(); entries == nil || len(entries) != 0 {
		t.Fatal("expected an empty non-nil slice")
	}
}

func TestStore(t *testing.T) {
	t.Run("keeps the newest entries first", func(t *testing.T) {
		s := NewStore(3)
		for idx := 0; idx < 5; idx++ {
			s.Add(Entry{ID: fmt.Sprintf("%d", idx)})
		}
		var got []string
		for _, e := range s.Entries() {
			got = append(got, e.ID)
		}
		if diff := cmp.Diff([]string{"4", "3", "2"}, got); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Entries returns a copy", func(t *testing.T) {
		s := NewStore(3)
		s.Add(Entry{ID: "a"})
		entries := s.Entries()
		entries[0].ID = "b"
		if s.Entries()[0].ID != "a" {
			t.Fatal("the store has been modified")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		s := NewStore(3)
		s.Add(Entry{ID: "a"})
		s.Clear()
		if s.Len() != 0 {
			t.Fatal("expected no entries")
		}
	})

	t.Run("is safe for concurrent use", func(t *testing.T) {
		s := NewStore(10)
		wg := &sync.WaitGroup{}
		for idx := 0; idx < 32; idx++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Add(Entry{})
				_ = s.Entries()
			}()
		}
		wg.Wait()
		if s.Len() != 10 {
			t.Fatal("unexpected length", s.Len())
		}
	})
}

func TestOnRequest(t *testing.T) {
	s := NewStore(0)
	started := time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)
	s.OnRequest(&netemu.Event{
		ID:              "7c1d",
		Method:          "GET",
		URL:             "http://127.0.0.1/segment3.ts",
		Outcome:         netemu.OutcomeThrottled,
		StatusCode:      200,
		InjectedLatency: 200 * time.Millisecond,
		Throttled:       true,
		BytesPerSecond:  125000,
		Started:         started,
		Elapsed:         250 * time.Millisecond,
	})
	expect := []Entry{{
		ID:             "7c1d",
		Method:         "GET",
		URL:            "http://127.0.0.1/segment3.ts",
		Outcome:        "throttled",
		Status:         200,
		LatencyMs:      200,
		DurationMs:     250,
		Throttled:      true,
		BytesPerSecond: 125000,
		Timestamp:      "2024-03-12T09:30:00Z",
	}}
	if diff := cmp.Diff(expect, s.Entries()); diff != "" {
		t.Fatal(diff)
	}
}
