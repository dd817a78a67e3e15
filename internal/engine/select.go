package engine

import (
	"context"
	"errors"
	"fmt"
	"image"

	"svgkit/internal/config"
	"svgkit/internal/domain"
	u "svgkit/internal/logging"
	"svgkit/internal/render"
)

// New returns the engine named by cfg.Render.Engine.
func New(cfg config.Config) (render.Engine, error) {
	switch cfg.Render.Engine {
	case config.EngineChrome:
		return NewChrome(cfg.Chrome), nil
	case config.EngineNative:
		return NewNative(), nil
	case config.EngineAuto:
		return &Fallback{Primary: NewChrome(cfg.Chrome), Secondary: NewNative()}, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", domain.ErrUsage, cfg.Render.Engine)
	}
}

// Fallback opens Primary and switches to Secondary when Primary cannot start.
// Load and capture failures are not retried on Secondary.
type Fallback struct {
	Primary   render.Engine
	Secondary render.Engine

	active render.Engine
}

// Name implements render.Engine.
func (f *Fallback) Name() string { return config.EngineAuto }

// Active returns the engine in use after Open, or nil.
func (f *Fallback) Active() render.Engine { return f.active }

// Preferred returns Primary.
func (f *Fallback) Preferred() render.Engine { return f.Primary }

var _ render.Delegator = (*Fallback)(nil)

// Open implements render.Engine.
func (f *Fallback) Open(ctx context.Context, s render.Surface) error {
	err := f.Primary.Open(ctx, s)
	if err == nil {
		f.active = f.Primary
		return nil
	}
	if ctx.Err() != nil || !errors.Is(err, domain.ErrEngineUnavailable) {
		return err
	}
	_ = f.Primary.Close()

	u.Warn("Primary engine unavailable, falling back", "primary", f.Primary.Name(),
		"fallback", f.Secondary.Name(), "error", err)
	if err := f.Secondary.Open(ctx, s); err != nil {
		return err
	}
	f.active = f.Secondary
	return nil
}

// Load implements render.Engine.
func (f *Fallback) Load(ctx context.Context, doc render.Document) error {
	if f.active == nil {
		return fmt.Errorf("%w: engine not opened", domain.ErrEngineUnavailable)
	}
	return f.active.Load(ctx, doc)
}

// Snapshot implements render.Engine.
func (f *Fallback) Snapshot(ctx context.Context) (image.Image, error) {
	if f.active == nil {
		return nil, fmt.Errorf("%w: engine not opened", domain.ErrCapture)
	}
	return f.active.Snapshot(ctx)
}

// Close implements render.Engine.
func (f *Fallback) Close() error {
	if f.active == nil {
		return nil
	}
	err := f.active.Close()
	f.active = nil
	return err
}
