package render

import (
	"context"
	"fmt"
	"image"
	"time"

	"svgkit/internal/config"
	u "svgkit/internal/logging"
)

// Settler waits until the engine's surface is considered visually stable.
type Settler interface {
	Settle(ctx context.Context, e Engine) error
}

// FixedDelay waits a constant time after load.
type FixedDelay struct {
	Delay time.Duration
}

// Settle implements Settler.
func (f FixedDelay) Settle(ctx context.Context, _ Engine) error {
	return sleep(ctx, f.Delay)
}

// UntilStable snapshots every Interval until two consecutive snapshots are
// pixel-identical or MaxAttempts snapshots have been taken.
type UntilStable struct {
	Interval    time.Duration
	MaxAttempts int
}

// Settle implements Settler. Running out of attempts is not an error: the
// capture still happens, it is only logged.
func (s UntilStable) Settle(ctx context.Context, e Engine) error {
	attempts := s.MaxAttempts
	if attempts < 2 {
		attempts = 2
	}

	var prev image.Image
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := sleep(ctx, s.Interval); err != nil {
				return err
			}
		}
		cur, err := e.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("stability probe: %w", err)
		}
		if prev != nil && sameImage(prev, cur) {
			u.Debug("Surface stable", "attempts", i+1)
			return nil
		}
		prev = cur
	}
	u.Warn("Surface did not stabilize, capturing anyway", "attempts", attempts, "interval", s.Interval.String())
	return nil
}

// NewSettler builds the settle strategy selected in cfg.
func NewSettler(cfg config.RenderConfig) Settler {
	if cfg.Settle == config.SettleStable {
		return UntilStable{Interval: cfg.StableInterval, MaxAttempts: cfg.StableMaxAttempts}
	}
	return FixedDelay{Delay: cfg.Delay}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sameImage compares bounds and every pixel in 16-bit RGBA.
func sameImage(a, b image.Image) bool {
	if a == nil || b == nil {
		return false
	}
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return false
	}
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				return false
			}
		}
	}
	return true
}
