package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"svgkit/internal/config"
	"svgkit/internal/domain"
	"svgkit/internal/icon"
)

const seticonUsage = "Usage: seticon <image-path> <target-path>"

type seticonOptions struct {
	configPath string
	clear      bool
	canvas     int
	verbose    bool
}

// NewSetIconCommand builds the seticon command around setter.
func NewSetIconCommand(stdout, stderr io.Writer, setter icon.Setter) *cobra.Command {
	var opts seticonOptions

	cmd := &cobra.Command{
		Use:   "seticon [flags] <image-path> <target-path>",
		Short: "Set the Finder icon of a file or folder from an image",
		Args: func(c *cobra.Command, args []string) error {
			if opts.clear {
				return exactArgs(1)(c, args)
			}
			return exactArgs(2)(c, args)
		},
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if c.Flags().Changed("canvas") {
				cfg.Icon.Canvas = opts.canvas
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			initLogging(cfg.Logger, opts.verbose, stderr)

			if opts.clear {
				if err := icon.Clear(setter, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Successfully cleared icon for %s\n", args[0])
				return nil
			}

			if err := icon.Apply(setter, args[0], args[1], cfg.Icon.Canvas); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Successfully set icon for %s\n", args[1])
			return nil
		},
	}
	cmd.SetFlagErrorFunc(flagError)

	f := cmd.Flags()
	f.SetInterspersed(false)
	f.StringVar(&opts.configPath, "config", "", "YAML config file (overrides CONFIG_PATH)")
	f.BoolVar(&opts.clear, "clear", false, "remove the custom icon of the target instead")
	f.IntVar(&opts.canvas, "canvas", config.Default().Icon.Canvas, "edge in pixels of the square icon canvas")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "write debug logs to stderr")
	return cmd
}

// seticonDiagnostic words failures after the paths given on the command line.
func seticonDiagnostic(cmd *cobra.Command) func(error) string {
	return func(err error) string {
		if errors.Is(err, domain.ErrUsage) {
			return seticonUsage
		}

		args := cmd.Flags().Args()
		clearing, _ := cmd.Flags().GetBool("clear")
		var imagePath, target string
		switch {
		case clearing && len(args) == 1:
			target = args[0]
		case !clearing && len(args) == 2:
			imagePath, target = args[0], args[1]
		default:
			return genericDiagnostic(err)
		}

		switch {
		case errors.Is(err, domain.ErrImageLoad) && imagePath != "":
			return "Error: Could not load image at " + imagePath
		case errors.Is(err, domain.ErrTargetMissing):
			return "Error: Target does not exist: " + target
		case errors.Is(err, domain.ErrIconAssign) && clearing:
			return "Error: Failed to clear icon for " + target
		case errors.Is(err, domain.ErrIconAssign):
			return "Error: Failed to set icon for " + target
		}
		return genericDiagnostic(err)
	}
}

func runSetIcon(ctx context.Context, setter icon.Setter, args []string, stdout, stderr io.Writer) int {
	cmd := NewSetIconCommand(stdout, stderr, setter)
	return execute(ctx, cmd, args, stdout, stderr, seticonDiagnostic(cmd))
}

// RunSetIcon runs seticon with args (program name excluded) against the
// platform icon setter and returns the process exit code.
func RunSetIcon(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return runSetIcon(ctx, icon.NewSetter(), args, stdout, stderr)
}
