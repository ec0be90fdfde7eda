package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"oss.terrastruct.com/xdefer"

	"github.com/scripthost/v8host"
	"github.com/scripthost/v8host/v8console"
)

// session is one isolate with one context, shared by every file and REPL
// line of an invocation.
type session struct {
	iso     *v8host.Isolate
	ctx     *v8host.Context
	loop    *eventLoop
	timeout time.Duration
	log     *zap.Logger
}

func newSession(rt *v8host.Runtime, cfg *Config, console v8console.Config, log *zap.Logger) (_ *session, err error) {
	defer xdefer.Errorf(&err, "failed to start session")
	iso, err := rt.NewIsolate()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			iso.Dispose()
		}
	}()

	s := &session{iso: iso, loop: newEventLoop(), timeout: cfg.Timeout, log: log}
	tmpl := v8host.NewGlobalTemplate(iso)
	tmpl.BindFunction("sleep", s.loop.sleep)
	for name, val := range cfg.Globals {
		if err := tmpl.BindValue(name, val); err != nil {
			return nil, err
		}
	}
	if s.ctx, err = iso.NewContext(tmpl); err != nil {
		return nil, err
	}

	for _, path := range cfg.Preload {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if _, err := s.run(v8console.WrapForBuffer(string(src)), path); err != nil {
			return nil, err
		}
		log.Debug("preloaded", zap.String("file", path))
	}
	exception, err := v8console.FlushAndInject(s.ctx, console)
	if err != nil {
		return nil, err
	}
	if exception != nil {
		return nil, fmt.Errorf("preload failed: %s", exception)
	}
	return s, nil
}

// run evaluates src, then waits for outstanding timers. The evaluation is
// terminated if it exceeds the session timeout, and waiting for timers stops
// at the same deadline. On failure, outstanding timers are dropped.
func (s *session) run(src, origin string) (*v8host.Value, error) {
	start := time.Now()
	var expired <-chan time.Time
	var terminate *time.Timer
	if s.timeout > 0 {
		terminate = time.AfterFunc(s.timeout, func() {
			s.log.Warn("terminating script", zap.String("origin", origin), zap.Duration("timeout", s.timeout))
			s.iso.Terminate()
		})
		deadline := time.NewTimer(s.timeout)
		defer deadline.Stop()
		expired = deadline.C
	}
	res, err := s.ctx.Eval(src, origin)
	// Only an executing script is terminated; the isolate is idle from here.
	if terminate != nil {
		terminate.Stop()
	}
	if err == nil {
		err = s.loop.drain(s.ctx, expired)
	}
	if err != nil {
		s.loop.discard()
		return nil, err
	}
	s.log.Debug("evaluated", zap.String("origin", origin), zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (s *session) runFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = s.run(string(src), path)
	return err
}

func (s *session) close() { s.iso.Dispose() }

// describe renders an evaluation error for the terminal. Verbose output
// includes the script stack trace.
func describe(w io.Writer, err error, verbose bool, style func(string) string) {
	msg := err.Error()
	var rerr *v8host.RuntimeError
	if verbose && errors.As(err, &rerr) && rerr.StackTrace != "" {
		msg += "\n" + rerr.StackTrace
	}
	fmt.Fprintln(w, style(msg))
}
