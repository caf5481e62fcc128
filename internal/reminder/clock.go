package reminder

import (
	"time"

	"noteria/internal/types"
)

// Timer is the handle of an armed one-shot callback.
type Timer interface {
	Stop() bool
}

// Clock supplies the current time and one-shot timers.
type Clock interface {
	types.Clock
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock runs callbacks on runtime timers.
type RealClock struct {
	types.RealClock
}

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
