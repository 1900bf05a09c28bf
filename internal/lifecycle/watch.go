package lifecycle

import (
	"context"
	"time"
)

// DefaultTickInterval is the refresh rate used by countdown displays.
const DefaultTickInterval = time.Second

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Tick is the derived output delivered on every refresh.
type Tick struct {
	Now            time.Time
	Phase          Phase
	Remaining      string
	GraceRemaining string
}

// Snapshot derives a Tick for expiresAt at the given instant.
func Snapshot(now, expiresAt time.Time) Tick {
	return Tick{
		Now:            now,
		Phase:          Classify(now, expiresAt),
		Remaining:      FormatRemaining(now, expiresAt),
		GraceRemaining: FormatGraceRemaining(now, expiresAt),
	}
}

// Watch calls fn with a fresh Tick immediately and then once per interval.
//
// It returns nil right after delivering the first PermanentlyExpired tick,
// since nothing changes after that, or ctx.Err() when ctx is cancelled.
// Watch holds no session state; fn is called on the caller's goroutine.
func Watch(ctx context.Context, clock Clock, expiresAt time.Time, interval time.Duration, fn func(Tick)) error {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	emit := func() bool {
		tick := Snapshot(clock.Now(), expiresAt)
		fn(tick)
		return tick.Phase == PermanentlyExpired
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if emit() {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// both channels may be ready; cancellation wins
			if err := ctx.Err(); err != nil {
				return err
			}
			if emit() {
				return nil
			}
		}
	}
}
