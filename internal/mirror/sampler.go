package mirror

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// sampler turns a growing byte counter into per-window transfer rates.
type sampler struct {
	received *atomic.Int64
	interval time.Duration
	observe  func(rateMBps float64)

	// last and opened mark the start of the current window. Only run
	// touches them once it has started.
	last   int64
	opened time.Time
}

// newSampler opens the first window at opened, taking the counter's
// current value as its baseline. It must be called before anything else
// can add to received.
func newSampler(received *atomic.Int64, interval time.Duration, opened time.Time, observe func(float64)) *sampler {
	return &sampler{
		received: received,
		interval: interval,
		observe:  observe,
		last:     received.Load(),
		opened:   opened,
	}
}

// run consumes ticks until ctx is done and returns the highest rate seen
// over a completed window. Each tick closes the window opened by the
// previous one, so the bytes of a window still open when ctx ends never
// produce a sample. A window is divided by the time between its ticks,
// which covers ticks the ticker dropped while observe was slow.
func (s *sampler) run(ctx context.Context, ticks <-chan time.Time) float64 {
	var peak float64
	for {
		select {
		case <-ctx.Done():
			return peak
		case now := <-ticks:
			// A tick that lost the race with cancellation is dropped.
			if ctx.Err() != nil {
				return peak
			}
			total := s.received.Load()
			delta := total - s.last
			if delta < 0 {
				panic(fmt.Sprintf("mirror: byte counter went backwards from %d to %d", s.last, total))
			}

			window := now.Sub(s.opened)
			if window <= 0 {
				window = s.interval
			}
			s.last = total
			s.opened = now

			rate := float64(delta) / mebibyte / window.Seconds()
			if rate > peak {
				peak = rate
			}
			if s.observe != nil {
				s.observe(rate)
			}
		}
	}
}
