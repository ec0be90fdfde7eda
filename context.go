package v8host

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"oss.terrastruct.com/xdefer"
	"rogchap.com/v8go"
)

// Context is a sandboxed js environment with its own global object and set
// of built-in objects. Values and javascript operations within a context are
// visible only within that context unless the Go code explicitly moves
// values from one context to another.
type Context struct {
	id   string
	iso  *Isolate
	ptr  *v8go.Context
	log  *zap.Logger
	intr intrinsics

	// pendingErr is the last error returned by a native binding during the
	// current run; it becomes the cause of the resulting RuntimeError.
	pendingErr error

	mu     sync.Mutex
	closed bool
}

// intrinsics are captured when the context is created so that host
// operations keep working even if a script replaces the globals.
type intrinsics struct {
	object     *v8go.Object
	errorCtor  *v8go.Function
	dateCtor   *v8go.Function
	uint8Array *v8go.Function
}

func loadIntrinsics(ctx *v8go.Context) (intrinsics, error) {
	var in intrinsics
	global := ctx.Global()
	get := func(name string) (*v8go.Function, error) {
		v, err := global.Get(name)
		if err != nil {
			return nil, err
		}
		return v.AsFunction()
	}
	obj, err := get("Object")
	if err != nil {
		return in, fmt.Errorf("intrinsic Object: %w", err)
	}
	if in.object, err = obj.AsObject(); err != nil {
		return in, fmt.Errorf("intrinsic Object: %w", err)
	}
	if in.errorCtor, err = get("Error"); err != nil {
		return in, fmt.Errorf("intrinsic Error: %w", err)
	}
	if in.dateCtor, err = get("Date"); err != nil {
		return in, fmt.Errorf("intrinsic Date: %w", err)
	}
	if in.uint8Array, err = get("Uint8Array"); err != nil {
		return in, fmt.Errorf("intrinsic Uint8Array: %w", err)
	}
	return in, nil
}

// NewContext creates a Context whose global object is initialized from a
// snapshot of tmpl. A nil template creates a clean context. Accessors bound
// on the template are installed on the new global object before NewContext
// returns.
func (i *Isolate) NewContext(tmpl *GlobalTemplate) (_ *Context, err error) {
	defer xdefer.Errorf(&err, "failed to instantiate context")
	if tmpl != nil && tmpl.iso != i {
		return nil, ErrWrongIsolate
	}
	if err := i.enter(); err != nil {
		return nil, err
	}
	defer i.leave()

	ctx := &Context{id: uuid.NewString(), iso: i}
	ctx.log = i.log.With(zap.String("context", ctx.id))

	var bindings []namedBinding
	var accessors []namedAccessor
	if tmpl != nil {
		bindings, accessors = tmpl.snapshot()
	}

	global := v8go.NewObjectTemplate(i.ptr)
	var deferred []namedBinding
	for _, b := range bindings {
		var err error
		switch b.kind {
		case bindFunction:
			err = global.Set(b.name, ctx.functionTemplate(b.name, b.fn))
		case bindClass:
			err = global.Set(b.name, ctx.classTemplate(b.name, b.class))
		case bindValue:
			if b.doc != nil {
				deferred = append(deferred, b)
				continue
			}
			err = global.Set(b.name, b.prim)
		}
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", b.name, err)
		}
	}

	ctx.ptr = v8go.NewContext(i.ptr, global)
	if ctx.intr, err = loadIntrinsics(ctx.ptr); err != nil {
		ctx.ptr.Close()
		return nil, err
	}

	var errs error
	for _, b := range deferred {
		errs = multierr.Append(errs, ctx.setJSON(b.name, b.doc))
	}
	for _, a := range accessors {
		errs = multierr.Append(errs, ctx.defineAccessor(ctx.ptr.Global(), a.name, a.get, a.set))
	}
	if errs != nil {
		ctx.ptr.Close()
		return nil, errs
	}

	if err := i.track(ctx); err != nil {
		ctx.ptr.Close()
		return nil, err
	}
	ctx.log.Debug("context created",
		zap.Int("bindings", len(bindings)),
		zap.Int("accessors", len(accessors)))
	return ctx, nil
}

func (c *Context) setJSON(name string, doc []byte) error {
	v, err := v8go.JSONParse(c.ptr, string(doc))
	if err != nil {
		return fmt.Errorf("binding %q: %w", name, err)
	}
	return c.ptr.Global().Set(name, v)
}

// ID is a unique identifier for the context, used in logs.
func (c *Context) ID() string { return c.id }

// Isolate returns the isolate owning the context.
func (c *Context) Isolate() *Isolate { return c.iso }

// enter claims the owning isolate and checks that the context is open.
func (c *Context) enter() error {
	if err := c.iso.enter(); err != nil {
		return err
	}
	if c.isClosed() {
		c.iso.leave()
		return ErrContextClosed
	}
	return nil
}

func (c *Context) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Context) leave() { c.iso.leave() }

// InstallAccessor defines a getter/setter pair called name directly on this
// context's global object. It replaces any value of the same name, including
// static values from the template. A nil setter makes the property
// read-only.
func (c *Context) InstallAccessor(name string, get Getter, set Setter) error {
	if get == nil {
		return fmt.Errorf("v8host: nil Getter for %q", name)
	}
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	return c.defineAccessor(c.ptr.Global(), name, get, set)
}

// Global returns the JS global object for this context, with properties like
// Object, Array, JSON, etc. The global of a closed context fails every
// operation with ErrContextClosed.
func (c *Context) Global() *Value {
	if c.isClosed() {
		return &Value{ctx: c}
	}
	return c.newValue(c.ptr.Global().Value)
}

// Get reads a property of the global object.
func (c *Context) Get(name string) (*Value, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	v, err := c.ptr.Global().Get(name)
	if err != nil {
		return nil, c.runtimeError(err)
	}
	return c.newValue(v), nil
}

// Set maps val with Create and stores it as a property of the global object.
func (c *Context) Set(name string, val interface{}) error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	v, err := c.create(val)
	if err != nil {
		return err
	}
	if err := c.ptr.Global().Set(name, v.ptr); err != nil {
		return c.runtimeError(err)
	}
	return nil
}

// Create maps Go values into corresponding JavaScript values. The value is
// created but NOT visible in the Context until it is explicitly passed to
// the Context (either via a .Set() call or as a native call result). See
// the package documentation for the supported types.
func (c *Context) Create(val interface{}) (*Value, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	return c.create(val)
}

// ParseJSON uses the engine's JSON.parse to parse the document.
func (c *Context) ParseJSON(json string) (*Value, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	return c.parseJSON(json)
}

func (c *Context) parseJSON(json string) (*Value, error) {
	v, err := v8go.JSONParse(c.ptr, json)
	if err != nil {
		return nil, c.runtimeError(err)
	}
	return c.newValue(v), nil
}

// Eval compiles and runs jsCode in the context. The filename parameter is
// informational only -- it is shown in errors and stack traces.
func (c *Context) Eval(jsCode, filename string) (*Value, error) {
	script, err := Compile(c, jsCode, filename)
	if err != nil {
		return nil, err
	}
	return script.Run()
}

// RunMicrotasks runs pending promise reactions.
func (c *Context) RunMicrotasks() error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.leave()
	c.ptr.PerformMicrotaskCheckpoint()
	return nil
}

// Close releases the context. Closing twice, or closing a context whose
// isolate was already disposed, is a no-op.
func (c *Context) Close() error {
	if err := c.iso.enter(); err != nil {
		if errors.Is(err, ErrDisposed) {
			return nil
		}
		return err
	}
	defer c.iso.leave()
	c.iso.untrack(c)
	c.close()
	return nil
}

func (c *Context) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.ptr.Close()
	c.log.Debug("context closed")
}

func (c *Context) newObject() (*v8go.Object, error) {
	v, err := v8go.JSONParse(c.ptr, "{}")
	if err != nil {
		return nil, err
	}
	return v.AsObject()
}

func (c *Context) undefined() *Value {
	return &Value{ctx: c, ptr: v8go.Undefined(c.iso.ptr)}
}

func (c *Context) newValue(v *v8go.Value) *Value {
	if v == nil {
		return nil
	}
	return &Value{ctx: c, ptr: v}
}

// runtimeError converts an engine error raised while executing script in
// this context.
func (c *Context) runtimeError(err error) error {
	rerr := newRuntimeError(err)
	if c.iso.terminating.Load() {
		rerr.Terminated = true
	}
	if c.pendingErr != nil && strings.Contains(rerr.Message, c.pendingErr.Error()) {
		rerr.cause = c.pendingErr
	}
	c.pendingErr = nil
	c.log.Debug("script raised", zap.String("message", rerr.Message), zap.Stringer("loc", rerr.Loc))
	return rerr
}
