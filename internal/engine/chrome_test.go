package engine

import (
	"context"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svgkit/internal/config"
	"svgkit/internal/domain"
	"svgkit/internal/render"
)

func missingChrome(t *testing.T) config.ChromeConfig {
	return config.ChromeConfig{Path: "/definitely/missing/chrome", UserDataDir: t.TempDir()}
}

func TestChrome_OpenFailsWhenBinaryMissing(t *testing.T) {
	cfg := missingChrome(t)
	c := NewChrome(cfg)
	err := c.Open(context.Background(), render.SquareSurface(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
	assert.NoError(t, c.Close())

	entries, err := os.ReadDir(cfg.UserDataDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "profile dir must be removed after a failed start")
}

func TestChrome_CallsBeforeOpen(t *testing.T) {
	c := NewChrome(config.ChromeConfig{})
	assert.Equal(t, "chrome", c.Name())
	assert.ErrorIs(t, c.Load(context.Background(), render.Document{}), domain.ErrEngineUnavailable)
	_, err := c.Snapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrCapture)
	assert.NoError(t, c.Close())
}

func TestDriverWithMissingChrome_LeavesNoOutput(t *testing.T) {
	src := writeDoc(t, "square.svg", quarterSquareSVG)
	dst, err := convert(t, NewChrome(missingChrome(t)), src, 50)
	assert.ErrorIs(t, err, domain.ErrEngineUnavailable)
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func findChrome() string {
	if p := os.Getenv("CHROME_BIN"); p != "" {
		return p
	}
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

func TestChrome_RedSquareScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	bin := findChrome()
	if bin == "" {
		t.Skip("no Chrome/Chromium binary available")
	}

	src := writeDoc(t, "square.svg", quarterSquareSVG)
	dst := filepath.Join(filepath.Dir(src), "out.png")
	req, err := domain.NewRequest(src, dst, 50)
	require.NoError(t, err)

	d := &render.Driver{
		Engine:  NewChrome(config.ChromeConfig{Path: bin, NoSandbox: true, UserDataDir: t.TempDir()}),
		Settler: render.FixedDelay{Delay: 100 * time.Millisecond},
		Timeout: 30 * time.Second,
	}
	res, err := d.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, render.PhaseDone, res.Phase)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	// The browser draws the document at its intrinsic 100x100 size, so the
	// red quarter covers the whole 50x50 surface.
	_, _, _, a := img.At(10, 10).RGBA()
	assert.Equal(t, uint32(0xffff), a)
}

func TestChrome_InvalidDocumentIsLoadError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	bin := findChrome()
	if bin == "" {
		t.Skip("no Chrome/Chromium binary available")
	}

	src := writeDoc(t, "broken.svg", `<svg xmlns="http://www.w3.org/2000/svg"><rect`)
	d := &render.Driver{
		Engine:  NewChrome(config.ChromeConfig{Path: bin, NoSandbox: true, UserDataDir: t.TempDir()}),
		Timeout: 30 * time.Second,
	}
	req, err := domain.NewRequest(src, filepath.Join(filepath.Dir(src), "out.png"), 20)
	require.NoError(t, err)
	_, err = d.Run(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrLoad)
}
