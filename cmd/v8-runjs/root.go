package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/scripthost/v8host"
	"github.com/scripthost/v8host/v8console"
)

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
)

var validColors = []string{"auto", "always", "never"}

type options struct {
	ConfigPath string
	Timeout    time.Duration
	Color      string
	Verbose    bool
	V8Flags    []string
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "v8-runjs [files...]",
		Short: "Run javascript files or an interactive REPL",
		Long: `Run javascript files in order in a single V8 context.

Without files, v8-runjs starts an interactive REPL.

Example:
  v8-runjs lib.js main.js
  v8-runjs --timeout 2s --config runjs.yaml script.js`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range validColors {
				if c == opts.Color {
					return nil
				}
			}
			return fmt.Errorf("invalid color %q: must be one of %v", opts.Color, validColors)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runJS(opts, args, stdout, stderr)
			if err != nil {
				describe(stderr, err, opts.Verbose, styler(opts.Color, stderr, errorStyle))
			}
			return err
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "terminate any single evaluation running longer than this (0 = no limit)")
	cmd.Flags().StringVar(&opts.Color, "color", "auto", "colorize output (auto|always|never)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.Flags().StringArrayVar(&opts.V8Flags, "v8-flag", nil, "flag passed to V8, may be repeated")
	return cmd
}

func runJS(opts *options, files []string, stdout, stderr io.Writer) error {
	log := zap.NewNop()
	if opts.Verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		log = l
		defer log.Sync()
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}

	rt, err := initRuntime(append(cfg.Flags, opts.V8Flags...), log)
	if err != nil {
		return err
	}

	colorize := useColor(opts.Color, stderr)
	console := v8console.Config{
		Prefix:   cfg.Prefix,
		Stdout:   stdout,
		Stderr:   stderr,
		Colorize: colorize,
		Logger:   log.Named("console"),
	}
	s, err := newSession(rt, cfg, console, log)
	if err != nil {
		return err
	}
	defer s.close()

	for _, path := range files {
		if err := s.runFile(path); err != nil {
			return err
		}
	}
	if len(files) == 0 {
		return repl(s, stdout, stderr, opts.Verbose,
			styler(opts.Color, stderr, errorStyle), styler(opts.Color, stdout, resultStyle))
	}
	return nil
}

// initRuntime returns the process runtime, initializing it on first use. Flags
// only take effect on initialization.
func initRuntime(flags []string, log *zap.Logger) (*v8host.Runtime, error) {
	rt, err := v8host.Current()
	if err == nil {
		if len(flags) > 0 {
			log.Warn("runtime already initialized, ignoring V8 flags", zap.Strings("flags", flags))
		}
		return rt, nil
	}
	var ierr *v8host.InitError
	if !errors.As(err, &ierr) || ierr.State != v8host.StateUninitialized {
		return nil, err
	}
	return v8host.Initialize(v8host.WithFlags(flags...), v8host.WithLogger(log))
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func styler(mode string, w io.Writer, style lipgloss.Style) func(string) string {
	if !useColor(mode, w) {
		return func(s string) string { return s }
	}
	return func(s string) string { return style.Render(s) }
}
