package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than limit goroutines are running.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines, limit %d", n, limit)
		}
		return nil
	}
}

// GCPauseCheck fails when the most recent GC pause exceeded limit.
func GCPauseCheck(limit time.Duration) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		if len(stats.Pause) > 0 && stats.Pause[0] > limit {
			return errors.Errorf("last GC pause %s, limit %s", stats.Pause[0], limit)
		}
		return nil
	}
}

// Pinger is implemented by store clients that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck wraps a Pinger as a CheckFunc.
func PingCheck(p Pinger) CheckFunc {
	return p.Ping
}
