//go:build !darwin || !cgo

package icon

import (
	"runtime"

	"svgkit/internal/domain"
	u "svgkit/internal/logging"
)

type unsupportedSetter struct{}

// NewSetter returns a setter that always reports ErrUnsupportedPlatform.
func NewSetter() Setter {
	return unsupportedSetter{}
}

func (unsupportedSetter) SetIcon([]byte, string) error { return unsupported() }

func (unsupportedSetter) ClearIcon(string) error { return unsupported() }

func unsupported() error {
	u.Debug("Icon setter unavailable", "goos", runtime.GOOS)
	return domain.ErrUnsupportedPlatform
}
