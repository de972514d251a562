package core

import "time"

// Clock abstracts the current time so schedule decisions can be fixed in
// tests instead of depending on the wall clock.
type Clock interface {
	Now() time.Time
	Today() Date
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (SystemClock) Today() Date {
	return DateOf(time.Now())
}
