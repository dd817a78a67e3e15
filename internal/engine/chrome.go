package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"svgkit/internal/chrome"
	"svgkit/internal/config"
	"svgkit/internal/docserver"
	"svgkit/internal/domain"
	u "svgkit/internal/logging"
	"svgkit/internal/render"
)

// Chrome renders documents in headless Chrome through chromedp.
type Chrome struct {
	cfg config.ChromeConfig

	session *chrome.Session
	server  *docserver.Server
	surface render.Surface
}

// NewChrome returns an unopened Chrome engine.
func NewChrome(cfg config.ChromeConfig) *Chrome {
	return &Chrome{cfg: cfg}
}

// Name implements render.Engine.
func (c *Chrome) Name() string { return config.EngineChrome }

// documentProbe is what the page reports about itself after load.
type documentProbe struct {
	Root        string `json:"root"`
	ParserError bool   `json:"parserError"`
}

const probeScript = `(() => {
	const r = document.documentElement;
	return {
		root: r ? r.localName : "",
		parserError: document.getElementsByTagName("parsererror").length > 0
	};
})()`

// Open starts the browser and sizes the viewport to the surface.
func (c *Chrome) Open(ctx context.Context, s render.Surface) error {
	sess, err := chrome.NewSession(ctx, c.cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEngineUnavailable, err)
	}
	c.session = sess
	c.surface = s

	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(int64(s.Width), int64(s.Height), 1, false),
	}
	if s.Transparent {
		actions = append(actions, emulation.SetDefaultBackgroundColorOverride().
			WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0}))
	}

	if err := chromedp.Run(sess.Ctx(), actions...); err != nil {
		sess.Close()
		c.session = nil
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if chrome.IsStartFailure(err) {
			u.Warn("Chrome could not be launched", "exec_path", c.cfg.Path, "error", err)
		}
		return fmt.Errorf("%w: %w", domain.ErrEngineUnavailable, err)
	}
	u.Debug("Chrome surface ready", "width", s.Width, "height", s.Height, "profile_dir", sess.ProfileDir())
	return nil
}

// Load serves doc.Root on loopback and navigates to the document. It returns
// after the load event has fired.
func (c *Chrome) Load(ctx context.Context, doc render.Document) error {
	if c.session == nil {
		return fmt.Errorf("%w: engine not opened", domain.ErrEngineUnavailable)
	}

	srv, err := docserver.Start(doc.Root)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLoad, err)
	}
	c.server = srv

	docURL, err := srv.URL(doc.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLoad, err)
	}

	resp, err := chromedp.RunResponse(c.session.Ctx(), chromedp.Navigate(docURL))
	if err != nil {
		if chrome.IsSessionInterrupted(err) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", domain.ErrLoad, err)
	}
	if resp != nil && resp.Status >= 400 {
		return fmt.Errorf("%w: HTTP %d for %s", domain.ErrLoad, resp.Status, doc.Path)
	}

	var probe documentProbe
	if err := chromedp.Run(c.session.Ctx(), chromedp.Evaluate(probeScript, &probe)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLoad, err)
	}
	if probe.ParserError {
		return fmt.Errorf("%w: %s is not well-formed", domain.ErrLoad, doc.Path)
	}
	if probe.Root != "svg" {
		return fmt.Errorf("%w: document root is <%s>, not <svg>", domain.ErrLoad, probe.Root)
	}

	u.Debug("Document loaded", "url", docURL)
	return nil
}

// Snapshot captures the viewport as PNG and decodes it.
func (c *Chrome) Snapshot(ctx context.Context) (image.Image, error) {
	if c.session == nil {
		return nil, fmt.Errorf("%w: engine not opened", domain.ErrCapture)
	}

	var buf []byte
	err := chromedp.Run(c.session.Ctx(), chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{
				X:      0,
				Y:      0,
				Width:  float64(c.surface.Width),
				Height: float64(c.surface.Height),
				Scale:  1,
			}).
			WithFromSurface(true).
			Do(ctx)
		return err
	}))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrCapture, err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty screenshot", domain.ErrCapture)
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: decode screenshot: %w", domain.ErrCapture, err)
	}
	return img, nil
}

// Close stops the document server and the browser.
func (c *Chrome) Close() error {
	var errs []error
	if c.server != nil {
		errs = append(errs, c.server.Close())
		c.server = nil
	}
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	return errors.Join(errs...)
}
