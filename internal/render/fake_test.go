package render

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// fakeEngine is a scripted Engine used by the driver tests.
type fakeEngine struct {
	name    string
	openErr error
	loadErr error
	snapErr error
	nilSnap bool
	onLoad  func(ctx context.Context) error

	// frames are returned by successive Snapshot calls; the last one repeats.
	frames []image.Image

	mu      sync.Mutex
	surface Surface
	doc     Document
	opened  bool
	closed  bool
	snaps   int
}

func (f *fakeEngine) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeEngine) Open(ctx context.Context, s Surface) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.surface = s
	f.opened = true
	return nil
}

func (f *fakeEngine) Load(ctx context.Context, doc Document) error {
	f.mu.Lock()
	f.doc = doc
	f.mu.Unlock()
	if f.onLoad != nil {
		if err := f.onLoad(ctx); err != nil {
			return err
		}
	}
	return f.loadErr
}

func (f *fakeEngine) Snapshot(ctx context.Context) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps++
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	if f.nilSnap {
		return nil, nil
	}
	if len(f.frames) == 0 {
		return halfRed(f.surface.Width, f.surface.Height), nil
	}
	i := f.snaps - 1
	if i >= len(f.frames) {
		i = len(f.frames) - 1
	}
	return f.frames[i], nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fallbackEngine always ends up on fallback, as if preferred could not start.
type fallbackEngine struct {
	preferred Engine
	fallback  Engine
	active    Engine
}

func (f *fallbackEngine) Name() string { return "fallback" }
func (f *fallbackEngine) Preferred() Engine { return f.preferred }
func (f *fallbackEngine) Active() Engine { return f.active }

func (f *fallbackEngine) Open(ctx context.Context, s Surface) error {
	if err := f.fallback.Open(ctx, s); err != nil {
		return err
	}
	f.active = f.fallback
	return nil
}

func (f *fallbackEngine) Load(ctx context.Context, doc Document) error {
	return f.active.Load(ctx, doc)
}

func (f *fallbackEngine) Snapshot(ctx context.Context) (image.Image, error) {
	return f.active.Snapshot(ctx)
}

func (f *fallbackEngine) Close() error {
	if f.active == nil {
		return nil
	}
	err := f.active.Close()
	f.active = nil
	return err
}

// halfRed paints the left half red and leaves the rest transparent.
func halfRed(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	return img
}

type memCache struct {
	mu   sync.Mutex
	m    map[string][]byte
	gets int
	sets int
}

func newMemCache() *memCache { return &memCache{m: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.m[key], nil
}

func (c *memCache) Set(ctx context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.m[key] = append([]byte(nil), data...)
	return nil
}
