package v8host

import (
	"fmt"

	"rogchap.com/v8go"
)

// PromiseState defines the state of a promise: either pending, resolved, or
// rejected. Promises that are pending have no result value yet. A promise that
// is resolved has a result value, and a promise that is rejected has a result
// value that is usually the error.
type PromiseState uint8

const (
	PromiseStatePending PromiseState = iota
	PromiseStateResolved
	PromiseStateRejected
	kNumPromiseStates
)

var promiseStateStrings = [kNumPromiseStates]string{"Pending", "Resolved", "Rejected"}

func (s PromiseState) String() string {
	if s >= kNumPromiseStates {
		return fmt.Sprintf("InvalidPromiseState:%d", int(s))
	}
	return promiseStateStrings[s]
}

// PromiseInfo will return information about the promise if this value's
// underlying kind is KindPromise, otherwise it will return an error. If there
// is no error, then the returned value will depend on the promise state:
//
//	pending: nil
//	fulfilled: the value of the promise
//	rejected: the rejected result, usually a JS error
func (v *Value) PromiseInfo() (PromiseState, *Value, error) {
	if err := v.check(); err != nil {
		return 0, nil, err
	}
	p, err := v.ptr.AsPromise()
	if err != nil {
		return 0, nil, v.conversionError("promise", err)
	}
	switch p.State() {
	case v8go.Fulfilled:
		return PromiseStateResolved, v.ctx.newValue(p.Result()), nil
	case v8go.Rejected:
		return PromiseStateRejected, v.ctx.newValue(p.Result()), nil
	}
	return PromiseStatePending, nil, nil
}

// Resolver settles a promise created by Scope.NewPromise or
// Context.NewPromise. It must be used on the goroutine that executes the
// context, e.g. from a host event loop between runs.
type Resolver struct {
	ctx *Context
	ptr *v8go.PromiseResolver
}

// Promise returns the promise controlled by the resolver.
func (r *Resolver) Promise() *Value {
	return r.ctx.newValue(r.ptr.GetPromise().Value)
}

// Resolve fulfills the promise with val, mapped through Create.
func (r *Resolver) Resolve(val interface{}) error {
	v, err := r.ctx.create(val)
	if err != nil {
		return err
	}
	r.ptr.Resolve(v.ptr)
	return nil
}

// Reject rejects the promise with a JS Error carrying err's message.
func (r *Resolver) Reject(err error) {
	r.ptr.Reject(r.ctx.newError(err.Error()))
}

// NewPromise creates a pending promise during a native call.
func (s *Scope) NewPromise() (*Resolver, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.ctx.newPromise()
}

// NewPromise creates a pending promise in the context.
func (c *Context) NewPromise() (*Resolver, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.leave()
	return c.newPromise()
}

func (c *Context) newPromise() (*Resolver, error) {
	r, err := v8go.NewPromiseResolver(c.ptr)
	if err != nil {
		return nil, err
	}
	return &Resolver{ctx: c, ptr: r}, nil
}
