package domain

import (
	"context"
	"errors"
)

var (
	// ErrUsage signals a wrong argument count or malformed flags.
	ErrUsage = errors.New("usage error")
	// ErrInvalidWidth signals a width that is not a positive integer.
	ErrInvalidWidth = errors.New("invalid width")
	// ErrSourceUnreadable signals a missing or unreadable source document.
	ErrSourceUnreadable = errors.New("source document is not readable")
	// ErrDestinationUnwritable signals that the destination cannot be created.
	ErrDestinationUnwritable = errors.New("destination is not writable")
	// ErrEngineUnavailable signals that the rendering engine could not be started.
	ErrEngineUnavailable = errors.New("rendering engine unavailable")
	// ErrLoad signals that the document failed to load in the rendering engine.
	ErrLoad = errors.New("document failed to load")
	// ErrCapture signals that the snapshot failed or produced no image.
	ErrCapture = errors.New("snapshot capture failed")
	// ErrEncode signals that the captured image could not be encoded or written.
	ErrEncode = errors.New("image encoding failed")
	// ErrTimeout signals that the conversion did not finish within the configured bound.
	ErrTimeout = errors.New("conversion timed out")

	// ErrImageLoad signals that the icon image could not be decoded.
	ErrImageLoad = errors.New("could not load image")
	// ErrTargetMissing signals that the icon target path does not exist.
	ErrTargetMissing = errors.New("target does not exist")
	// ErrIconAssign signals that the OS refused to assign the icon.
	ErrIconAssign = errors.New("failed to set icon")
	// ErrUnsupportedPlatform signals that Finder icons cannot be set on this OS.
	ErrUnsupportedPlatform = errors.New("setting file icons is only supported on macOS")
)

// Kind groups errors into the taxonomy reported to callers.
type Kind string

const (
	KindNone      Kind = ""
	KindUsage     Kind = "usage"
	KindResource  Kind = "resource"
	KindRendering Kind = "rendering"
	KindEncoding  Kind = "encoding"
	KindTimeout   Kind = "timeout"
	KindPlatform  Kind = "platform"
	KindUnknown   Kind = "unknown"
)

// KindOf classifies err. Deadline errors are reported as timeouts even when
// they were not wrapped with ErrTimeout.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrUsage), errors.Is(err, ErrInvalidWidth):
		return KindUsage
	case errors.Is(err, ErrSourceUnreadable), errors.Is(err, ErrDestinationUnwritable),
		errors.Is(err, ErrImageLoad), errors.Is(err, ErrTargetMissing):
		return KindResource
	case errors.Is(err, ErrEngineUnavailable), errors.Is(err, ErrLoad),
		errors.Is(err, ErrCapture), errors.Is(err, ErrIconAssign):
		return KindRendering
	case errors.Is(err, ErrEncode):
		return KindEncoding
	case errors.Is(err, ErrUnsupportedPlatform):
		return KindPlatform
	default:
		return KindUnknown
	}
}
