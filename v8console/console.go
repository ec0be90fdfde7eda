// Package v8console provides a simple console implementation to allow JS to
// log messages.
//
// It supports the console.log, console.info, console.warn, and console.error
// functions and writes the string form of each argument.  It can color
// warning and error messages, but does not support Chrome's fancy %c message
// styling.
package v8console

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scripthost/v8host"
)

const (
	kRESET    = "\033[0m"
	kNO_COLOR = ""
	kRED      = "\033[91m"
	kYELLOW   = "\033[93m"
)

// Config holds configuration for a particular console instance.
type Config struct {
	// Prefix to prepend to every log message.
	Prefix string
	// Destination for all .log and .info calls.
	Stdout io.Writer
	// Destination for all .warn and .error calls.
	Stderr io.Writer
	// Whether to enable ANSI color escape codes in the output.
	Colorize bool
	// If set, every message is also written to this logger at the level
	// matching the console method.
	Logger *zap.Logger
}

// Inject sets the global "console" object of the specified Context to bind
// .log, .info, .warn, and .error to call this Console object.  If the console
// object already exists in the global namespace, only the log/info/warn/error
// properties are replaced.
func (c Config) Inject(ctx *v8host.Context) error {
	methods := []struct {
		name string
		fn   v8host.NativeFunc
	}{
		{"log", c.Info},
		{"info", c.Info},
		{"warn", c.Warn},
		{"error", c.Error},
	}

	ob, err := ctx.Get("console")
	if err != nil {
		return err
	}
	if ob.IsKind(v8host.KindObject) && !ob.IsKind(v8host.KindFunction) {
		// Keep the existing object, just replace the logging methods.
		for _, m := range methods {
			fn, err := ctx.Create(m.fn)
			if err != nil {
				return err
			}
			if err := ob.Set(m.name, fn); err != nil {
				return fmt.Errorf("cannot set %s on console object: %w", m.name, err)
			}
		}
		return nil
	}

	fns := make(map[string]interface{}, len(methods))
	for _, m := range methods {
		fns[m.name] = m.fn
	}
	return ctx.Set("console", fns)
}

func (c Config) writeLog(w io.Writer, color string, vals []string) {
	if w == nil {
		return
	}
	var b strings.Builder
	if color != "" && c.Colorize {
		b.WriteString(color)
	}
	b.WriteString(c.Prefix)
	b.WriteString(strings.Join(vals, " "))
	if color != "" && c.Colorize {
		b.WriteString(kRESET)
	}
	b.WriteString("\n")
	io.WriteString(w, b.String())
}

func (c Config) mirror(level zapcore.Level, loc v8host.Loc, vals []string) {
	if c.Logger == nil {
		return
	}
	fields := []zap.Field{}
	if loc.Filename != "" {
		fields = append(fields, zap.Stringer("caller", loc))
	}
	if ce := c.Logger.Check(level, strings.Join(vals, " ")); ce != nil {
		ce.Write(fields...)
	}
}

func toStrings(args v8host.Args) []string {
	out := make([]string, args.Len())
	for i, arg := range args.All() {
		out[i] = arg.String()
	}
	return out
}

func withLoc(loc v8host.Loc, vals []string) []string {
	if loc.Filename == "" {
		return vals
	}
	return append([]string{fmt.Sprintf("[%s:%d]", loc.Filename, loc.Line)}, vals...)
}

// Info is the native function registered for the console.log and
// console.info functions.
func (c Config) Info(s *v8host.Scope, args v8host.Args, _ *v8host.ReturnSlot) error {
	vals := toStrings(args)
	c.writeLog(c.Stdout, kNO_COLOR, vals)
	c.mirror(zapcore.InfoLevel, v8host.Loc{}, vals)
	return nil
}

// Warn is the native function registered for console.warn. Warnings are
// prefixed with the calling script location.
func (c Config) Warn(s *v8host.Scope, args v8host.Args, _ *v8host.ReturnSlot) error {
	return c.located(s, args, kYELLOW, zapcore.WarnLevel)
}

// Error is the native function registered for console.error.
func (c Config) Error(s *v8host.Scope, args v8host.Args, _ *v8host.ReturnSlot) error {
	return c.located(s, args, kRED, zapcore.ErrorLevel)
}

func (c Config) located(s *v8host.Scope, args v8host.Args, color string, level zapcore.Level) error {
	loc, err := s.Caller()
	if err != nil {
		return err
	}
	vals := toStrings(args)
	c.writeLog(c.Stderr, color, withLoc(loc, vals))
	c.mirror(level, loc, vals)
	return nil
}
