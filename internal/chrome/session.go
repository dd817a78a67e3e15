package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"

	"svgkit/internal/config"
	u "svgkit/internal/logging"
)

// Session is one headless browser with a single tab, owned by one conversion.
type Session struct {
	profileDir string

	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	tabCtx        context.Context

	closeOnce sync.Once
}

// createProfileDir makes a throwaway user-data dir so concurrent runs never
// share browser state.
func createProfileDir(cfg config.ChromeConfig) (string, error) {
	base := cfg.UserDataDir
	if base == "" {
		base = os.TempDir()
	}
	dir, err := os.MkdirTemp(base, "svg2png-chrome-*")
	if err != nil {
		return "", fmt.Errorf("cannot create chrome profile dir: %w", err)
	}
	return dir, nil
}

// allocatorOptions builds the exec allocator flags.
func allocatorOptions(cfg config.ChromeConfig, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		// Force software rendering and avoid Vulkan/ANGLE issues in minimal environments.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("force-device-scale-factor", "1"),
	)
	if cfg.Path != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Path))
	}
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	for _, f := range cfg.ExtraFlags {
		name, value, hasValue := strings.Cut(strings.TrimLeft(f, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// NewSession prepares a browser and one tab. The browser process itself is
// started lazily by the first action run against Ctx().
func NewSession(parent context.Context, cfg config.ChromeConfig) (*Session, error) {
	profileDir, err := createProfileDir(cfg)
	if err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocatorOptions(cfg, profileDir)...)
	tabCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			u.Debug("chrome", "message", fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			u.Warn("chrome error", "message", fmt.Sprintf(format, args...))
		}),
	)

	u.Debug("Chrome session prepared", "profile_dir", profileDir, "exec_path", cfg.Path)

	return &Session{
		profileDir:    profileDir,
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		tabCtx:        tabCtx,
	}, nil
}

// Ctx returns the tab context that chromedp actions run against.
func (s *Session) Ctx() context.Context {
	return s.tabCtx
}

// ProfileDir returns the temporary browser profile directory.
func (s *Session) ProfileDir() string {
	return s.profileDir
}

// Close shuts the browser down and removes the profile dir. Safe to call twice.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.browserCancel != nil {
			s.browserCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		if s.profileDir != "" {
			if err := os.RemoveAll(s.profileDir); err != nil {
				u.Warn("Failed to remove chrome profile dir", "dir", s.profileDir, "error", err)
			}
		}
	})
}

// IsSessionInterrupted reports whether err means the browser or tab went away
// rather than the page failing on its own.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"target closed", "websocket", "browser closed", "broken pipe", "connection reset"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// IsStartFailure reports whether err came from launching the browser binary.
func IsStartFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"exec:", "executable file not found", "no such file or directory", "chrome failed to start", "websocket url timeout"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
