package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxWidth is the largest accepted output edge in pixels. It matches the
// largest surface Chrome will paint and keeps the RGBA buffer near 1 GiB.
const MaxWidth = 16384

// Request describes a single SVG to PNG conversion. The output is always
// square: height equals Width.
type Request struct {
	Source      string
	Destination string
	Width       int
}

// NewRequest validates and builds a Request.
func NewRequest(source, destination string, width int) (Request, error) {
	if strings.TrimSpace(source) == "" {
		return Request{}, fmt.Errorf("%w: source path is empty", ErrUsage)
	}
	if strings.TrimSpace(destination) == "" {
		return Request{}, fmt.Errorf("%w: destination path is empty", ErrUsage)
	}
	if err := CheckWidth(width); err != nil {
		return Request{}, err
	}
	return Request{Source: source, Destination: destination, Width: width}, nil
}

// ParseWidth parses a command-line width argument.
func ParseWidth(s string) (int, error) {
	w, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidWidth, s)
	}
	if err := CheckWidth(w); err != nil {
		return 0, err
	}
	return w, nil
}

// CheckWidth reports an ErrInvalidWidth unless w is within 1..MaxWidth.
func CheckWidth(w int) error {
	if w <= 0 {
		return fmt.Errorf("%w: must be a positive integer, got %d", ErrInvalidWidth, w)
	}
	if w > MaxWidth {
		return fmt.Errorf("%w: %d exceeds the maximum of %d", ErrInvalidWidth, w, MaxWidth)
	}
	return nil
}

// Height returns the output height, which equals the width.
func (r Request) Height() int {
	return r.Width
}
