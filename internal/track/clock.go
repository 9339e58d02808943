package track

import "time"

// Clock supplies wall-clock time in milliseconds since the Unix epoch.
type Clock interface {
	Now() int64
}

// SystemClock reads the real time.
type SystemClock struct{}

// Now returns the current time in ms.
func (SystemClock) Now() int64 {
	return time.Now().UnixMilli()
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

// Now calls f.
func (f ClockFunc) Now() int64 {
	return f()
}

// Millis converts t to ms epoch.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// Time converts ms epoch to a UTC time.
func Time(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
