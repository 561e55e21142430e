package market

import "time"

// Clock supplies the current time to the engine. Every operation reads it
// exactly once, so auction expiry is a data comparison rather than a scheduled
// event, and tests can drive time explicitly.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation used by the service
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
