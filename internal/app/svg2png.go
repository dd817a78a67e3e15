package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"svgkit/internal/cache"
	"svgkit/internal/config"
	"svgkit/internal/domain"
	"svgkit/internal/engine"
	"svgkit/internal/render"
)

const svg2pngUsage = "Usage: svg2png <input.svg> <output.png> <width>"

type svg2pngOptions struct {
	configPath string
	engine     string
	settle     string
	delay      time.Duration
	timeout    time.Duration
	verbose    bool
}

// NewSVG2PNGCommand builds the svg2png command. Flags must precede the
// positional arguments so a width such as -5 reaches width validation.
func NewSVG2PNGCommand(stderr io.Writer) *cobra.Command {
	var opts svg2pngOptions

	cmd := &cobra.Command{
		Use:   "svg2png [flags] <input.svg> <output.png> <width>",
		Short: "Rasterize an SVG document to a square PNG with transparency",
		Args:  exactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			width, err := domain.ParseWidth(args[2])
			if err != nil {
				return err
			}
			req, err := domain.NewRequest(args[0], args[1], width)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if err := opts.apply(c, &cfg); err != nil {
				return err
			}
			initLogging(cfg.Logger, opts.verbose, stderr)

			return convert(c.Context(), cfg, req)
		},
	}
	cmd.SetFlagErrorFunc(flagError)

	f := cmd.Flags()
	f.SetInterspersed(false)
	f.StringVar(&opts.configPath, "config", "", "YAML config file (overrides CONFIG_PATH)")
	f.StringVar(&opts.engine, "engine", "", "rendering engine: chrome, native or auto")
	f.StringVar(&opts.settle, "settle", "", "settle strategy: fixed or stable")
	f.DurationVar(&opts.delay, "delay", 0, "settle delay for the fixed strategy")
	f.DurationVar(&opts.timeout, "timeout", 0, "bound on the whole conversion, 0 for none")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "write debug logs to stderr")
	return cmd
}

// apply overrides cfg with the flags that were set explicitly.
func (o svg2pngOptions) apply(c *cobra.Command, cfg *config.Config) error {
	changed := c.Flags().Changed
	if changed("engine") {
		cfg.Render.Engine = strings.ToLower(strings.TrimSpace(o.engine))
	}
	if changed("settle") {
		cfg.Render.Settle = strings.ToLower(strings.TrimSpace(o.settle))
	}
	if changed("delay") {
		cfg.Render.Delay = o.delay
	}
	if changed("timeout") {
		cfg.Render.Timeout = o.timeout
	}
	return cfg.Validate()
}

func convert(ctx context.Context, cfg config.Config, req domain.Request) error {
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}

	d := &render.Driver{
		Engine:  eng,
		Settler: render.NewSettler(cfg.Render),
		Timeout: cfg.Render.Timeout,
	}
	if store := cache.FromConfig(cfg.Cache); store != nil {
		defer store.Close()
		d.Cache = store
	}

	_, err = d.Run(ctx, req)
	return err
}

func svg2pngDiagnostic(err error) string {
	switch {
	case errors.Is(err, domain.ErrUsage):
		return svg2pngUsage
	case errors.Is(err, domain.ErrInvalidWidth):
		return "Error: Invalid width"
	}
	return genericDiagnostic(err)
}

// RunSVG2PNG runs svg2png with args (program name excluded) and returns the
// process exit code.
func RunSVG2PNG(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, NewSVG2PNGCommand(stderr), args, stdout, stderr, svg2pngDiagnostic)
}
