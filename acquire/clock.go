package acquire

import (
	"context"
	"time"
)

// Clock is the session's source of time
type Clock interface {
	Now() time.Time

	// Sleep waits for d, returning ctx.Err() early if ctx is done
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
