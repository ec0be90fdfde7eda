package v8host

import (
	"errors"
	"fmt"
	"sort"

	"rogchap.com/v8go"
)

// NativeClass describes a script constructor backed by Go state. Calling
// `new Name(...)` runs Construct; the state it returns is handed to every
// property accessor and method of that instance.
//
// Each instance registers its own accessor and method callbacks with the
// isolate, which are only released when the isolate is disposed. Classes
// are meant for long-lived objects, not per-request garbage.
type NativeClass struct {
	Construct  func(s *Scope, args Args) (interface{}, error)
	Properties map[string]Property
	Methods    map[string]Method
}

// Property is an instance accessor. A nil Set makes it read-only.
type Property struct {
	Get func(s *Scope, self interface{}, ret *ReturnSlot) error
	Set func(s *Scope, self interface{}, value *Value) error
}

// Method is an instance method.
type Method func(s *Scope, self interface{}, args Args, ret *ReturnSlot) error

func (c *Context) classTemplate(name string, cls *NativeClass) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(c.iso.ptr, c.callback(name,
		func(s *Scope, info *v8go.FunctionCallbackInfo, _ *ReturnSlot) error {
			this := info.This()
			if this == nil || this.SameValue(c.ptr.Global().Value) {
				return fmt.Errorf("class constructor %s cannot be invoked without 'new'", name)
			}
			self, err := cls.Construct(s, c.args(info.Args()))
			if err != nil {
				return err
			}
			return c.decorate(this, cls, self)
		}))
}

// decorate defines the class's properties and methods on a new instance.
func (c *Context) decorate(this *v8go.Object, cls *NativeClass, self interface{}) error {
	props := make([]string, 0, len(cls.Properties))
	for name := range cls.Properties {
		props = append(props, name)
	}
	sort.Strings(props)
	for _, name := range props {
		p := cls.Properties[name]
		if p.Get == nil {
			return fmt.Errorf("property %q has no getter", name)
		}
		get := func(s *Scope, _ string, ret *ReturnSlot) error { return p.Get(s, self, ret) }
		var set Setter
		if p.Set != nil {
			set = func(s *Scope, _ string, v *Value) error { return p.Set(s, self, v) }
		}
		if err := c.defineAccessor(this, name, get, set); err != nil {
			return err
		}
	}

	methods := make([]string, 0, len(cls.Methods))
	for name := range cls.Methods {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	for _, name := range methods {
		m := cls.Methods[name]
		if m == nil {
			return errors.New("nil method " + name)
		}
		fn := c.function(name, func(s *Scope, args Args, ret *ReturnSlot) error {
			return m(s, self, args, ret)
		})
		if err := this.Set(name, fn.ptr); err != nil {
			return err
		}
	}
	return nil
}
