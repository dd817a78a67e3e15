// Package icon assigns custom Finder icons to files and folders.
package icon

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"svgkit/internal/domain"
	u "svgkit/internal/logging"
)

// Setter talks to the OS file-metadata service.
type Setter interface {
	// SetIcon assigns the PNG-encoded image as the custom icon of target.
	SetIcon(pngData []byte, target string) error
	// ClearIcon removes any custom icon from target.
	ClearIcon(target string) error
}

// Load decodes the image at path, applying its EXIF orientation.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %w", domain.ErrImageLoad, path, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w at %s: empty image", domain.ErrImageLoad, path)
	}
	return img, nil
}

// Prepare scales img to fit a canvas x canvas square, centered on a
// transparent background.
func Prepare(img image.Image, canvas int) *image.NRGBA {
	b := img.Bounds()
	var fitted *image.NRGBA
	if b.Dx() >= b.Dy() {
		fitted = imaging.Resize(img, canvas, 0, imaging.Lanczos)
	} else {
		fitted = imaging.Resize(img, 0, canvas, imaging.Lanczos)
	}
	bg := imaging.New(canvas, canvas, color.NRGBA{})
	return imaging.PasteCenter(bg, fitted)
}

func checkTarget(target string) error {
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrTargetMissing, target)
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrTargetMissing, target, err)
	}
	return nil
}

// Apply loads the image at imagePath, normalizes it and assigns it to target.
func Apply(s Setter, imagePath, target string, canvas int) error {
	img, err := Load(imagePath)
	if err != nil {
		return err
	}
	if err := checkTarget(target); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Prepare(img, canvas)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEncode, err)
	}

	if err := s.SetIcon(buf.Bytes(), target); err != nil {
		return wrapAssign(err, target)
	}
	u.Info("Icon set", "image", imagePath, "target", target, "canvas", canvas)
	return nil
}

// Clear removes the custom icon of target.
func Clear(s Setter, target string) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	if err := s.ClearIcon(target); err != nil {
		return wrapAssign(err, target)
	}
	u.Info("Icon cleared", "target", target)
	return nil
}

func wrapAssign(err error, target string) error {
	if errors.Is(err, domain.ErrUnsupportedPlatform) || errors.Is(err, domain.ErrIconAssign) {
		return err
	}
	return fmt.Errorf("%w for %s: %w", domain.ErrIconAssign, target, err)
}
