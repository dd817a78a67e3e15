package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svgkit/internal/domain"
)

type fakeSetter struct {
	set     []string
	cleared []string
	err     error
}

func (f *fakeSetter) SetIcon(_ []byte, target string) error {
	f.set = append(f.set, target)
	return f.err
}

func (f *fakeSetter) ClearIcon(target string) error {
	f.cleared = append(f.cleared, target)
	return f.err
}

func runSeticon(t *testing.T, s *fakeSetter, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	var stdout, stderr bytes.Buffer
	code := runSetIcon(context.Background(), s, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func iconFixture(t *testing.T) (imagePath, target string) {
	t.Helper()
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	img.SetNRGBA(8, 8, color.NRGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	imagePath = filepath.Join(dir, "icon.png")
	require.NoError(t, os.WriteFile(imagePath, buf.Bytes(), 0o644))
	target = filepath.Join(dir, "Project")
	require.NoError(t, os.Mkdir(target, 0o755))
	return imagePath, target
}

func TestSetIcon_Success(t *testing.T) {
	imagePath, target := iconFixture(t)
	s := &fakeSetter{}

	code, stdout, stderr := runSeticon(t, s, "--canvas", "64", imagePath, target)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Successfully set icon for "+target+"\n", stdout)
	assert.Empty(t, stderr)
	assert.Equal(t, []string{target}, s.set)
}

func TestSetIcon_Clear(t *testing.T) {
	_, target := iconFixture(t)
	s := &fakeSetter{}

	code, stdout, _ := runSeticon(t, s, "--clear", target)
	require.Equal(t, 0, code)
	assert.Equal(t, "Successfully cleared icon for "+target+"\n", stdout)
	assert.Equal(t, []string{target}, s.cleared)
}

func TestSetIcon_Usage(t *testing.T) {
	cases := map[string][]string{
		"no args":          nil,
		"one arg":          {"icon.png"},
		"three args":       {"a", "b", "c"},
		"clear needs one":  {"--clear", "a", "b"},
		"unknown flag":     {"--bogus", "a", "b"},
		"canvas not a int": {"--canvas", "big", "a", "b"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			s := &fakeSetter{}
			code, stdout, stderr := runSeticon(t, s, args...)
			assert.Equal(t, 1, code)
			assert.Empty(t, stdout)
			assert.Equal(t, seticonUsage+"\n", stderr)
			assert.Empty(t, s.set)
		})
	}
}

func TestSetIcon_Failures(t *testing.T) {
	imagePath, target := iconFixture(t)

	t.Run("missing image leaves target untouched", func(t *testing.T) {
		s := &fakeSetter{}
		missing := filepath.Join(t.TempDir(), "nope.png")
		code, stdout, stderr := runSeticon(t, s, missing, target)
		assert.Equal(t, 1, code)
		assert.Empty(t, stdout)
		assert.Equal(t, "Error: Could not load image at "+missing+"\n", stderr)
		assert.Empty(t, s.set)
	})

	t.Run("missing target", func(t *testing.T) {
		s := &fakeSetter{}
		gone := filepath.Join(t.TempDir(), "gone")
		code, _, stderr := runSeticon(t, s, imagePath, gone)
		assert.Equal(t, 1, code)
		assert.Equal(t, "Error: Target does not exist: "+gone+"\n", stderr)
		assert.Empty(t, s.set)
	})

	t.Run("setter refuses", func(t *testing.T) {
		s := &fakeSetter{err: errors.New("permission denied")}
		code, _, stderr := runSeticon(t, s, imagePath, target)
		assert.Equal(t, 1, code)
		assert.Equal(t, "Error: Failed to set icon for "+target+"\n", stderr)
	})

	t.Run("clear refused", func(t *testing.T) {
		s := &fakeSetter{err: errors.New("permission denied")}
		code, _, stderr := runSeticon(t, s, "--clear", target)
		assert.Equal(t, 1, code)
		assert.Equal(t, "Error: Failed to clear icon for "+target+"\n", stderr)
	})

	t.Run("unsupported platform", func(t *testing.T) {
		s := &fakeSetter{err: domain.ErrUnsupportedPlatform}
		code, _, stderr := runSeticon(t, s, imagePath, target)
		assert.Equal(t, 1, code)
		assert.Equal(t, "Error: Setting file icons is only supported on macOS\n", stderr)
	})

	t.Run("canvas out of range", func(t *testing.T) {
		s := &fakeSetter{}
		code, _, stderr := runSeticon(t, s, "--canvas", "4", imagePath, target)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "Error: Icon.canvas must be between 16 and 2048")
		assert.Empty(t, s.set)
	})
}
