package render

import (
	"context"
	"image"
)

// Surface is the off-screen area the engine paints into.
type Surface struct {
	Width       int
	Height      int
	Transparent bool
}

// SquareSurface returns the transparent width x width surface svg2png uses.
func SquareSurface(width int) Surface {
	return Surface{Width: width, Height: width, Transparent: true}
}

// Document is a local file plus the directory the engine may read from.
type Document struct {
	Path string
	Root string
}

// Engine is a rendering backend. Calls are made in order Open, Load,
// Snapshot (one or more times), Close, from a single goroutine.
type Engine interface {
	// Name identifies the engine in logs and cache keys.
	Name() string
	// Open prepares a surface. Failures wrap domain.ErrEngineUnavailable.
	Open(ctx context.Context, surface Surface) error
	// Load returns once the document has finished loading.
	Load(ctx context.Context, doc Document) error
	// Snapshot captures the current contents of the surface.
	Snapshot(ctx context.Context) (image.Image, error)
	Close() error
}

// Delegator is an Engine that hands the work to another engine chosen by Open.
type Delegator interface {
	Engine
	// Preferred is the engine used when nothing fails.
	Preferred() Engine
	// Active is the engine chosen by Open, or nil outside Open..Close.
	Active() Engine
}

// renderedBy names the engine whose output e produces: the active delegate
// once opened, the preferred one before that.
func renderedBy(e Engine) string {
	if d, ok := e.(Delegator); ok {
		if a := d.Active(); a != nil {
			return renderedBy(a)
		}
		if p := d.Preferred(); p != nil {
			return renderedBy(p)
		}
	}
	return e.Name()
}
