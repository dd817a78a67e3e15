package engine

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svgkit/internal/config"
	"svgkit/internal/domain"
	"svgkit/internal/render"
)

type brokenEngine struct {
	openErr error
	closed  bool
}

func (b *brokenEngine) Name() string { return "broken" }
func (b *brokenEngine) Open(context.Context, render.Surface) error { return b.openErr }
func (b *brokenEngine) Load(context.Context, render.Document) error { return nil }
func (b *brokenEngine) Snapshot(context.Context) (image.Image, error) { return nil, nil }
func (b *brokenEngine) Close() error {
	b.closed = true
	return nil
}

func TestNew_SelectsEngine(t *testing.T) {
	cfg := config.Default()

	e, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Chrome{}, e)

	cfg.Render.Engine = config.EngineNative
	e, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Native{}, e)

	cfg.Render.Engine = config.EngineAuto
	e, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "auto", e.Name())

	cfg.Render.Engine = "webkit"
	_, err = New(cfg)
	assert.ErrorIs(t, err, domain.ErrUsage)
}

func TestFallback_UsesSecondaryWhenPrimaryUnavailable(t *testing.T) {
	primary := &brokenEngine{openErr: domain.ErrEngineUnavailable}
	f := &Fallback{Primary: primary, Secondary: NewNative()}

	src := writeDoc(t, "square.svg", quarterSquareSVG)
	_, err := convert(t, f, src, 20)
	require.NoError(t, err)
	assert.True(t, primary.closed)
	assert.Nil(t, f.Active(), "active engine is reset by Close")
}

func TestFallback_WithMissingChromeRendersNatively(t *testing.T) {
	f := &Fallback{Primary: NewChrome(missingChrome(t)), Secondary: NewNative()}
	ctx := context.Background()
	assert.Equal(t, "chrome", f.Preferred().Name())
	require.NoError(t, f.Open(ctx, render.SquareSurface(10)))
	assert.Equal(t, "native", f.Active().Name())
	require.NoError(t, f.Close())
}

func TestFallback_DoesNotMaskOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	f := &Fallback{Primary: &brokenEngine{openErr: boom}, Secondary: NewNative()}
	err := f.Open(context.Background(), render.SquareSurface(10))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, f.Active())

	assert.ErrorIs(t, f.Load(context.Background(), render.Document{}), domain.ErrEngineUnavailable)
	_, err = f.Snapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrCapture)
	assert.NoError(t, f.Close())
}
