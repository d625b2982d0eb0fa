package engine

import "time"

// Clock supplies the validation timestamp of each result and the "today"
// that date-based rules compare against.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
//
// Thread-safety: SystemClock is stateless and safe for concurrent use.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
