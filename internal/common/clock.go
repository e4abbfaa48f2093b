package common

import "time"

// Clock supplies the current instant. Services take one so tests can pin "today".
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }
