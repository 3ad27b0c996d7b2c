// Package humanize is like dustin/go-humanize.
package humanize

import (
	"fmt"
	"time"
)

// SI is like dustin/go-humanize.SI but its implementation is
// specially tailored for printing transfer speeds.
func SI(value float64, unit string) string {
	value, prefix := reduce(value)
	return fmt.Sprintf("%6.2f %s%s", value, prefix, unit)
}

// Bytes formats a byte count using SI prefixes.
func Bytes(count int64) string {
	return SI(float64(count), "B")
}

// Bitrate formats the speed at which we transferred count bytes
// in elapsed time as bit/s using SI prefixes.
func Bitrate(count int64, elapsed time.Duration) string {
	return SI(BitsPerSecond(count, elapsed), "bit/s")
}

// BitsPerSecond returns the speed at which we transferred count
// bytes in elapsed time, or zero when elapsed is not positive.
func BitsPerSecond(count int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(count) * 8 / elapsed.Seconds()
}

// reduce reduces value to a base value and a unit prefix. For
// example, reduce(1055) returns (1.055, "k").
func reduce(value float64) (float64, string) {
	if value < 1e03 {
		return value, " "
	}
	value /= 1e03
	if value < 1e03 {
		return value, "k"
	}
	value /= 1e03
	if value < 1e03 {
		return value, "M"
	}
	value /= 1e03
	return value, "G"
}
