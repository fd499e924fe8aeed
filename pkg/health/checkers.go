package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
// Catalog fetches that never return show up here first.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when a recent GC pause took longer than threshold.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		for _, pause := range stats.Pause {
			if pause > threshold {
				return errors.Errorf("GC pause %s exceeds threshold %s", pause, threshold)
			}
		}
		return nil
	}
}

// CountBelow fails when count reports threshold or more. The storefront uses it
// to stop taking traffic once too many page sessions are held in memory.
func CountBelow(what string, threshold int, count func() int) CheckFunc {
	return func(_ context.Context) error {
		if n := count(); n >= threshold {
			return errors.Errorf("%s count %d reached limit %d", what, n, threshold)
		}
		return nil
	}
}
