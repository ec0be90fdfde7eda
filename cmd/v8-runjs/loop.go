package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/scripthost/v8host"
)

// eventLoop settles promises created by native functions. Timers fire on
// their own goroutines but only hand completions back over a channel: the
// completions themselves run on the goroutine that drains the loop, which is
// the one executing the context.
type eventLoop struct {
	done    chan *timer
	pending map[*timer]struct{}
}

type timer struct {
	t        *time.Timer
	complete func() error
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		done:    make(chan *timer, 16),
		pending: make(map[*timer]struct{}),
	}
}

// sleep implements the sleep(msec) global.
func (l *eventLoop) sleep(s *v8host.Scope, args v8host.Args, ret *v8host.ReturnSlot) error {
	if args.Len() == 0 {
		return errors.New("sleep requires duration parameter (in msec)")
	}
	msec, err := args.Arg(0).ToNumber()
	if err != nil {
		return err
	}
	r, err := s.NewPromise()
	if err != nil {
		return err
	}
	tm := &timer{complete: func() error { return r.Resolve(msec) }}
	tm.t = time.AfterFunc(time.Duration(msec*float64(time.Millisecond)), func() { l.done <- tm })
	l.pending[tm] = struct{}{}
	ret.Set(r.Promise())
	return nil
}

// drain runs completions until no timers are outstanding. Completions may
// start new timers. It gives up with ErrTerminated once expired fires; a nil
// channel never does.
func (l *eventLoop) drain(ctx *v8host.Context, expired <-chan time.Time) error {
	for len(l.pending) > 0 {
		select {
		case tm := <-l.done:
			delete(l.pending, tm)
			if err := tm.complete(); err != nil {
				return err
			}
			if err := ctx.RunMicrotasks(); err != nil {
				return err
			}
		case <-expired:
			return fmt.Errorf("%w: %d timers still pending", v8host.ErrTerminated, len(l.pending))
		}
	}
	return nil
}

// discard cancels every outstanding timer. Timers that already fired are
// received and dropped so that none stays blocked on the channel.
func (l *eventLoop) discard() {
	for tm := range l.pending {
		if tm.t.Stop() {
			delete(l.pending, tm)
		}
	}
	for len(l.pending) > 0 {
		delete(l.pending, <-l.done)
	}
}
