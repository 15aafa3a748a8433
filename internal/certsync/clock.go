package certsync

import "time"

// Clock abstracts timer creation so tests can drive the scheduler without
// real sleeps.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	AfterFunc(d time.Duration, f func()) Timer
}

// Ticker mirrors time.Ticker behind an interface.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// Timer mirrors the subset of time.Timer the scheduler uses.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// RealClock is the production Clock over the time package.
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() time.Time {
	return time.Now()
}

// NewTicker implements Clock.
func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

// AfterFunc implements Clock.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) Chan() <-chan time.Time {
	return r.t.C
}

func (r realTicker) Stop() {
	r.t.Stop()
}
