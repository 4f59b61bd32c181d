// internal/engine/clock.go
package engine

import "time"

// Clock abstracts wall-clock reads so extraction budgets can be tested
// without real sleeps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real-time clock.
func SystemClock() Clock { return systemClock{} }
