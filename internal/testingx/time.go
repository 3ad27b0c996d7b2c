package testingx

import (
	"sync"
	"time"
)

// TimeDeterministic implements time.Now in a deterministic fashion
// such that every Now call returns a moment in time that occurs one
// Step after the previous call.
//
// It's safe to use this struct from multiple goroutine contexts.
type TimeDeterministic struct {
	// Step is the amount of time each call adds. Zero means one second.
	Step time.Duration

	// counter is the offset of the next returned time from zeroTime.
	counter time.Duration

	// mu protects fields in this structure from concurrent access.
	mu sync.Mutex

	// zeroTime is the lazy-initialized zero time. The first call to Now
	// will initialize this field with the current time.
	zeroTime time.Time
}

// NewTimeDeterministic creates a new instance using the given zeroTime value.
func NewTimeDeterministic(zeroTime time.Time) *TimeDeterministic {
	return &TimeDeterministic{
		Step:     time.Second,
		counter:  0,
		mu:       sync.Mutex{},
		zeroTime: zeroTime,
	}
}

// Now is like time.Now but more deterministic. The first call returns the
// configured zeroTime and subsequent calls return moments in time that occur
// exactly one Step after the time returned by the previous call.
func (td *TimeDeterministic) Now() time.Time {
	td.mu.Lock()
	defer td.mu.Unlock()
	if td.zeroTime.IsZero() {
		td.zeroTime = time.Now()
	}
	step := td.Step
	if step <= 0 {
		step = time.Second
	}
	offset := td.counter
	td.counter += step
	return td.zeroTime.Add(offset)
}
