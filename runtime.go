package v8host

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"rogchap.com/v8go"
)

// RuntimeState is the lifecycle state of the process-wide engine runtime.
type RuntimeState uint8

const (
	StateUninitialized RuntimeState = iota
	StatePlatformAttached
	StateInitialized
	StateShuttingDown
	StateDisposed
	kNumRuntimeStates
)

var runtimeStateStrings = [kNumRuntimeStates]string{
	"Uninitialized", "PlatformAttached", "Initialized", "ShuttingDown", "Disposed",
}

func (s RuntimeState) String() string {
	if s >= kNumRuntimeStates {
		return fmt.Sprintf("InvalidRuntimeState:%d", int(s))
	}
	return runtimeStateStrings[s]
}

// Option configures a Runtime.
type Option func(*runtimeConfig)

type runtimeConfig struct {
	logger *zap.Logger
	flags  []string
}

// WithLogger sets the logger used by the runtime and everything created
// from it. It also becomes the package Logger().
func WithLogger(l *zap.Logger) Option {
	return func(c *runtimeConfig) { c.logger = l }
}

// WithFlags passes command line flags (e.g. "--harmony", "--max-old-space-size=64")
// to V8 while the platform is attached, before any isolate exists.
func WithFlags(flags ...string) Option {
	return func(c *runtimeConfig) { c.flags = append(c.flags, flags...) }
}

// Runtime is the process-wide engine runtime. There is at most one live
// Runtime per process, and once shut down it cannot be initialized again.
type Runtime struct {
	eng *engine
	log *zap.Logger

	mu       sync.Mutex
	isolates map[*Isolate]struct{}
	nextID   uint64
}

// engine holds the process-wide lifecycle. The package uses a single
// instance; tests construct their own to exercise the state machine.
type engine struct {
	mu       sync.Mutex
	state    RuntimeState
	rt       *Runtime
	setFlags func(...string)
}

var process = &engine{setFlags: v8go.SetFlags}

// Initialize attaches the engine platform and brings the runtime to the
// initialized state. Calling it again without an intervening Shutdown, or at
// all after Shutdown, fails with an *InitError.
func Initialize(opts ...Option) (*Runtime, error) { return process.initialize(opts...) }

// MustInitialize is like Initialize but panics on failure.
func MustInitialize(opts ...Option) *Runtime {
	rt, err := Initialize(opts...)
	if err != nil {
		panic(err)
	}
	return rt
}

// Current returns the live Runtime of this process.
func Current() (*Runtime, error) { return process.current() }

// Version reports the version of the linked V8 library.
func Version() string { return v8go.Version() }

func (e *engine) initialize(opts ...Option) (*Runtime, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateUninitialized:
	case StateDisposed:
		return nil, &InitError{Op: "initialize", State: e.state, Reason: "engine cannot be re-initialized after shutdown"}
	default:
		return nil, &InitError{Op: "initialize", State: e.state, Reason: "engine is already initialized"}
	}

	var cfg runtimeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger != nil {
		SetLogger(cfg.logger)
	}
	log := Logger()

	if len(cfg.flags) > 0 {
		e.setFlags(cfg.flags...)
	}
	e.state = StatePlatformAttached
	log.Debug("engine platform attached", zap.Strings("flags", cfg.flags))

	e.rt = &Runtime{eng: e, log: log, isolates: map[*Isolate]struct{}{}}
	e.state = StateInitialized
	log.Debug("engine initialized", zap.String("v8", Version()))
	return e.rt, nil
}

func (e *engine) current() (*Runtime, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInitialized {
		return nil, &InitError{Op: "current", State: e.state, Reason: "engine is not initialized"}
	}
	return e.rt, nil
}

// State reports the lifecycle state of the runtime.
func (rt *Runtime) State() RuntimeState {
	rt.eng.mu.Lock()
	defer rt.eng.mu.Unlock()
	return rt.eng.state
}

// Shutdown releases the platform. It fails if any Isolate created from this
// runtime is still alive; dispose them first.
func (rt *Runtime) Shutdown() error {
	e := rt.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInitialized || e.rt != rt {
		return &InitError{Op: "shutdown", State: e.state, Reason: "engine is not initialized"}
	}

	rt.mu.Lock()
	live := len(rt.isolates)
	rt.mu.Unlock()
	if live > 0 {
		return &InitError{Op: "shutdown", State: e.state, Reason: fmt.Sprintf("%d isolate(s) still alive", live)}
	}

	e.state = StateShuttingDown
	rt.log.Debug("engine shutting down")
	e.rt = nil
	e.state = StateDisposed
	rt.log.Debug("engine disposed")
	return nil
}

// NewIsolate creates a new Isolate with its own heap.
func (rt *Runtime) NewIsolate() (*Isolate, error) {
	e := rt.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInitialized || e.rt != rt {
		return nil, &InitError{Op: "new isolate", State: e.state, Reason: "engine is not initialized"}
	}

	rt.mu.Lock()
	rt.nextID++
	id := rt.nextID
	rt.mu.Unlock()

	iso := newIsolate(rt, id)
	rt.mu.Lock()
	rt.isolates[iso] = struct{}{}
	rt.mu.Unlock()
	iso.log.Debug("isolate created")
	return iso, nil
}

// NumIsolates reports how many isolates are alive.
func (rt *Runtime) NumIsolates() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.isolates)
}

func (rt *Runtime) release(iso *Isolate) {
	rt.mu.Lock()
	delete(rt.isolates, iso)
	rt.mu.Unlock()
}
