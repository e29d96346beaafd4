package service

import "time"

// Clock returns the current time. Use cases take one so time-window rules can be tested.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}
