// Package app builds the svg2png and seticon commands and maps their
// failures to a single diagnostic line and an exit code.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"svgkit/internal/config"
	"svgkit/internal/domain"
	u "svgkit/internal/logging"
)

// execute runs cmd with args and prints at most one diagnostic line on
// stderr. It returns the process exit code.
func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer, diagnose func(error) string) int {
	// cobra falls back to os.Args when args is nil.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	u.Debug("Command failed", "command", cmd.Name(), "kind", string(domain.KindOf(err)), "error", err)
	fmt.Fprintln(stderr, diagnose(err))
	return 1
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%w: expected %d arguments, got %d", domain.ErrUsage, n, len(args))
		}
		return nil
	}
}

func flagError(_ *cobra.Command, err error) error {
	return fmt.Errorf("%w: %w", domain.ErrUsage, err)
}

// loadConfig reads path, or CONFIG_PATH when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func initLogging(cfg config.LoggerConfig, verbose bool, stderr io.Writer) {
	u.InitLogger(cfg.File, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays, cfg.Compress, cfg.Level)
	if verbose {
		u.EnableConsole(stderr)
		u.SetLogLevel("debug")
	}
}

// describe renders err as a single sentence.
func describe(err error) string {
	msg := strings.Join(strings.Fields(strings.ReplaceAll(err.Error(), "\n", "; ")), " ")
	if msg == "" {
		return "Unknown error"
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}

func genericDiagnostic(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Error: Interrupted"
	}
	return "Error: " + describe(err)
}
