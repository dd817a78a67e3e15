package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"svgkit/internal/config"
	"svgkit/internal/domain"
	"svgkit/internal/render"
)

// Native rasterizes SVG in-process with oksvg. It supports the static SVG
// subset oksvg understands and needs no browser; the viewBox is scaled to fit
// the surface, keeping its aspect ratio.
type Native struct {
	surface render.Surface
	icon    *oksvg.SvgIcon
	opened  bool
}

// NewNative returns an unopened native engine.
func NewNative() *Native {
	return &Native{}
}

// Name implements render.Engine.
func (n *Native) Name() string { return config.EngineNative }

// Open implements render.Engine.
func (n *Native) Open(ctx context.Context, s render.Surface) error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: invalid surface %dx%d", domain.ErrEngineUnavailable, s.Width, s.Height)
	}
	n.surface = s
	n.opened = true
	return ctx.Err()
}

// Load parses the document. Only files under doc.Root are accepted.
func (n *Native) Load(ctx context.Context, doc render.Document) error {
	if !n.opened {
		return fmt.Errorf("%w: engine not opened", domain.ErrEngineUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !within(doc.Root, doc.Path) {
		return fmt.Errorf("%w: %s is outside %s", domain.ErrLoad, doc.Path, doc.Root)
	}

	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLoad, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLoad, err)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		return fmt.Errorf("%w: %s has no usable viewBox", domain.ErrLoad, doc.Path)
	}
	n.icon = icon
	return nil
}

// Snapshot paints the icon onto a fresh transparent canvas.
func (n *Native) Snapshot(ctx context.Context) (image.Image, error) {
	if n.icon == nil {
		return nil, fmt.Errorf("%w: no document loaded", domain.ErrCapture)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := n.surface.Width, n.surface.Height
	vw, vh := n.icon.ViewBox.W, n.icon.ViewBox.H
	scale := float64(w) / vw
	if s := float64(h) / vh; s < scale {
		scale = s
	}
	tw, th := vw*scale, vh*scale
	n.icon.SetTarget((float64(w)-tw)/2, (float64(h)-th)/2, tw, th)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	n.icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return img, nil
}

// Close implements render.Engine.
func (n *Native) Close() error {
	n.icon = nil
	n.opened = false
	return nil
}

func within(root, path string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
