// Package docserver exposes exactly one directory to the rendering engine over
// a loopback-only HTTP listener, so a document can pull sibling fonts and
// images but nothing outside its own folder.
package docserver

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	u "svgkit/internal/logging"
)

// Server serves Root on 127.0.0.1 at a random port.
type Server struct {
	Root string

	app  *fiber.App
	ln   net.Listener
	base string
	done chan error

	mu      sync.RWMutex
	granted map[string]bool
}

// newApp builds the fiber app serving root read-only. Dotfiles are hidden
// unless granted reports the unescaped request path as explicitly handed out.
func newApp(root string, granted func(path string) bool) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			u.Warn("Document resource request failed", "path", c.Path(), "status", code, "error", err)
			return c.Status(code).SendString(err.Error())
		},
	})

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
			return fiber.ErrMethodNotAllowed
		}
		p, err := url.PathUnescape(c.Path())
		if err != nil {
			return fiber.ErrNotFound
		}
		// A granted path never contains "..", URL only hands out paths under root.
		if hidden(p) && (granted == nil || !granted(p)) {
			return fiber.ErrNotFound
		}
		u.Debug("Serving document resource", "path", c.Path(), "request_id", c.GetRespHeader(fiber.HeaderXRequestID))
		return c.Next()
	})

	app.Static("/", root, fiber.Static{
		Browse:    false,
		ByteRange: true,
	})

	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	return app
}

// Start begins serving root. The caller must Close the server.
func Start(root string) (*Server, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve document root: %w", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen on loopback: %w", err)
	}

	s := &Server{
		Root:    abs,
		ln:      ln,
		base:    "http://" + ln.Addr().String(),
		done:    make(chan error, 1),
		granted: make(map[string]bool),
	}
	s.app = newApp(abs, s.isGranted)
	go func() {
		s.done <- s.app.Listener(ln)
	}()

	u.Debug("Document server started", "root", abs, "addr", s.base)
	return s, nil
}

// URL returns the address of the file at path, which must live under Root.
// The file is served even if its name starts with a dot.
func (s *Server) URL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.Root, abs)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the document root %s", path, s.Root)
	}

	slashed := filepath.ToSlash(rel)
	s.mu.Lock()
	s.granted["/"+slashed] = true
	s.mu.Unlock()

	segs := strings.Split(slashed, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.base + "/" + strings.Join(segs, "/"), nil
}

// Close stops the listener and waits for the serve loop to exit.
func (s *Server) Close() error {
	err := s.app.ShutdownWithTimeout(2 * time.Second)
	select {
	case serveErr := <-s.done:
		if serveErr != nil && !errors.Is(serveErr, net.ErrClosed) && err == nil {
			err = serveErr
		}
	case <-time.After(2 * time.Second):
	}
	return err
}

func (s *Server) isGranted(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted[path]
}

// hidden reports whether any segment of path is ".." or a dotfile name.
func hidden(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}
	return false
}
