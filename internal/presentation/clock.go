package presentation

import "time"

// Clock creates the cosmetic timers that pace a draw.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of *time.Timer the machine uses.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// RealClock uses the runtime timers.
type RealClock struct{}

func (RealClock) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }
