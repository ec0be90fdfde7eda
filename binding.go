package v8host

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"rogchap.com/v8go"
)

// NativeFunc is the signature of Go functions callable from script. The
// scope is only valid until the function returns. Writing nothing to ret
// returns undefined to the script. Returning an error throws a JS Error with
// the error's message; panics are caught and thrown the same way.
type NativeFunc func(s *Scope, args Args, ret *ReturnSlot) error

// Getter produces the value of an accessor property. Leaving ret unwritten
// yields undefined.
type Getter func(s *Scope, name string, ret *ReturnSlot) error

// Setter receives the value assigned to an accessor property.
type Setter func(s *Scope, name string, value *Value) error

// Scope grants access to the engine during one native call. It must not be
// retained: once the call returns, every method that reaches the engine
// fails with ErrScopeExpired, as does ReturnSlot.SetGo.
type Scope struct {
	ctx     *Context
	this    *v8go.Object
	expired bool
}

func (s *Scope) check() error {
	if s.expired {
		return ErrScopeExpired
	}
	return nil
}

// ContextID identifies the context the call is executing in.
func (s *Scope) ContextID() string { return s.ctx.id }

// Create maps a Go value into a script value; see Context.Create.
func (s *Scope) Create(val interface{}) (*Value, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.ctx.create(val)
}

// ParseJSON parses a JSON document into a script value.
func (s *Scope) ParseJSON(json string) (*Value, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.ctx.parseJSON(json)
}

// This returns the receiver of the call.
func (s *Scope) This() (*Value, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if s.this == nil {
		return s.ctx.undefined(), nil
	}
	return s.ctx.newValue(s.this.Value), nil
}

// Global returns the global object of the executing context.
func (s *Scope) Global() (*Value, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.ctx.newValue(s.ctx.ptr.Global().Value), nil
}

// Undefined returns the undefined value.
func (s *Scope) Undefined() (*Value, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.ctx.undefined(), nil
}

// Caller reports the innermost script frame that made the native call. The
// zero Loc is returned when no script frame is on the stack.
func (s *Scope) Caller() (Loc, error) {
	if err := s.check(); err != nil {
		return Loc{}, err
	}
	probe, err := s.ctx.intr.errorCtor.NewInstance()
	if err != nil {
		return Loc{}, err
	}
	stack, err := probe.Get("stack")
	if err != nil {
		return Loc{}, err
	}
	for _, line := range strings.Split(stack.String(), "\n")[1:] {
		if loc := parseFrame(line); loc.Line > 0 {
			return loc, nil
		}
	}
	return Loc{}, nil
}

// parseFrame parses one "    at fn (file:line:col)" line of a stack trace.
func parseFrame(line string) Loc {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "at ") {
		return Loc{}
	}
	line = strings.TrimPrefix(line, "at ")
	var fn string
	if strings.HasSuffix(line, ")") {
		if open := strings.LastIndex(line, " ("); open >= 0 {
			fn = line[:open]
			line = line[open+2 : len(line)-1]
		}
	}
	loc := parseLoc(line)
	loc.Funcname = fn
	return loc
}

// Args holds the arguments a script passed to a native function.
type Args struct {
	values []*Value
	ctx    *Context
}

// Len is the number of arguments the script supplied.
func (a Args) Len() int { return len(a.values) }

// Arg returns the n-th argument, or undefined if the script supplied fewer.
func (a Args) Arg(n int) *Value {
	if n >= 0 && n < len(a.values) {
		return a.values[n]
	}
	return a.ctx.undefined()
}

// All returns the supplied arguments.
func (a Args) All() []*Value { return a.values }

// ReturnSlot receives the result of a native call.
type ReturnSlot struct {
	ctx   *Context
	scope *Scope
	val   *Value
}

// Set writes v as the result.
func (r *ReturnSlot) Set(v *Value) { r.val = v }

// SetGo maps val with Create and writes it as the result.
func (r *ReturnSlot) SetGo(val interface{}) error {
	if err := r.scope.check(); err != nil {
		return err
	}
	v, err := r.ctx.create(val)
	if err != nil {
		return err
	}
	r.val = v
	return nil
}

// Value returns what has been written so far, or nil.
func (r *ReturnSlot) Value() *Value { return r.val }

type nativeCall func(s *Scope, info *v8go.FunctionCallbackInfo, ret *ReturnSlot) error

// callback adapts a native call to the engine's callback signature: it sets
// up the scope, recovers panics and turns errors into thrown exceptions.
func (c *Context) callback(name string, call nativeCall) v8go.FunctionCallback {
	return func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		s := &Scope{ctx: c, this: info.This()}
		ret := &ReturnSlot{ctx: c, scope: s}
		err := c.invoke(name, func() error { return call(s, info, ret) })
		s.expired = true
		if err != nil {
			return c.throw(name, err)
		}
		if ret.val == nil {
			return nil
		}
		if ret.val.ctx == nil || ret.val.ctx.iso != c.iso {
			return c.throw(name, fmt.Errorf("%w: %s returned it", ErrWrongIsolate, name))
		}
		if err := ret.val.check(); err != nil {
			return c.throw(name, err)
		}
		return ret.val.ptr
	}
}

// Catch panics -- if they are uncaught, they unwind straight through the
// engine's C++ frames. Contract violations are re-raised.
func (c *Context) invoke(name string, fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			if cv, ok := v.(*ContractViolation); ok {
				c.log.Error("contract violation in native call", zap.String("binding", name), zap.Error(cv))
				panic(cv)
			}
			err = fmt.Errorf("panic during native call %q: %v", name, v)
		}
	}()
	return fn()
}

func (c *Context) throw(name string, err error) *v8go.Value {
	c.pendingErr = err
	c.log.Debug("native binding failed", zap.String("binding", name), zap.Error(err))
	return c.iso.ptr.ThrowException(c.newError(err.Error()))
}

// newError builds a JS Error object, falling back to a plain string if the
// Error constructor cannot be used.
func (c *Context) newError(msg string) *v8go.Value {
	m, err := v8go.NewValue(c.iso.ptr, msg)
	if err != nil {
		return v8go.Undefined(c.iso.ptr)
	}
	if c.intr.errorCtor != nil {
		if obj, err := c.intr.errorCtor.NewInstance(m); err == nil {
			return obj.Value
		}
	}
	return m
}

func (c *Context) args(vals []*v8go.Value) Args {
	out := make([]*Value, len(vals))
	for i, v := range vals {
		out[i] = c.newValue(v)
	}
	return Args{values: out, ctx: c}
}

func (c *Context) functionTemplate(name string, fn NativeFunc) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(c.iso.ptr, c.callback(name,
		func(s *Scope, info *v8go.FunctionCallbackInfo, ret *ReturnSlot) error {
			return fn(s, c.args(info.Args()), ret)
		}))
}

// function creates a function value calling fn. Each call registers a new
// callback with the isolate that lives until the isolate is disposed.
func (c *Context) function(name string, fn NativeFunc) *Value {
	return c.newValue(c.functionTemplate(name, fn).GetFunction(c.ptr).Value)
}

// defineAccessor installs a configurable getter/setter pair named name on
// target.
func (c *Context) defineAccessor(target *v8go.Object, name string, get Getter, set Setter) error {
	desc, err := c.newObject()
	if err != nil {
		return err
	}
	getter := v8go.NewFunctionTemplate(c.iso.ptr, c.callback(name,
		func(s *Scope, _ *v8go.FunctionCallbackInfo, ret *ReturnSlot) error {
			return get(s, name, ret)
		}))
	if err := desc.Set("get", getter.GetFunction(c.ptr)); err != nil {
		return err
	}
	if set != nil {
		setter := v8go.NewFunctionTemplate(c.iso.ptr, c.callback(name,
			func(s *Scope, info *v8go.FunctionCallbackInfo, _ *ReturnSlot) error {
				return set(s, name, c.args(info.Args()).Arg(0))
			}))
		if err := desc.Set("set", setter.GetFunction(c.ptr)); err != nil {
			return err
		}
	}
	if err := desc.Set("configurable", true); err != nil {
		return err
	}
	if err := desc.Set("enumerable", true); err != nil {
		return err
	}
	key, err := v8go.NewValue(c.iso.ptr, name)
	if err != nil {
		return err
	}
	if _, err := c.intr.object.MethodCall("defineProperty", target, key, desc); err != nil {
		return fmt.Errorf("define accessor %q: %w", name, err)
	}
	return nil
}
