package connection

import (
	"context"
	"errors"
	"time"
)

// ErrGaveUp is returned by Until when the attempt limit is reached.
var ErrGaveUp = errors.New("connection: gave up waiting")

// CheckFunc reports whether the awaited condition holds. A non-nil error
// stops waiting immediately.
type CheckFunc func(ctx context.Context) (bool, error)

// Until calls check, sleeping b.Next() between calls, until it reports
// true. maxAttempts bounds the number of calls; zero means no limit.
func Until(ctx context.Context, b *Backoff, maxAttempts int, check CheckFunc) error {
	for n := 1; ; n++ {
		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if maxAttempts > 0 && n >= maxAttempts {
			return ErrGaveUp
		}

		t := time.NewTimer(b.Next())
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
