package v8host

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"rogchap.com/v8go"
)

// Value represents a handle to a value within the javascript VM. Values are
// associated with a particular Context, but may be passed freely between
// Contexts within an Isolate.
//
// Value methods call into the engine without claiming the isolate: use them
// from native calls or between runs, never concurrently with script
// execution on another goroutine. Once the value's context is closed (which
// disposing the isolate does too), methods returning an error fail with
// ErrContextClosed and the others return zero values.
type Value struct {
	ctx *Context
	ptr *v8go.Value
}

// alive reports whether the handle may still be dereferenced.
func (v *Value) alive() bool {
	return v.ctx != nil && v.ptr != nil && !v.ctx.isClosed()
}

func (v *Value) check() error {
	if !v.alive() {
		return ErrContextClosed
	}
	return nil
}

// Context returns the context the value was created in.
func (v *Value) Context() *Context { return v.ctx }

// IsKind will test whether the underlying value is the specified JS kind.
func (v *Value) IsKind(k Kind) bool {
	if k >= kNumKinds || !v.alive() {
		return false
	}
	return kindPredicates[k](v.ptr)
}

// Kinds lists every kind the value has.
func (v *Value) Kinds() []Kind {
	if !v.alive() {
		return nil
	}
	var kinds []Kind
	for k := Kind(0); k < kNumKinds; k++ {
		if kindPredicates[k](v.ptr) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// IsUndefined reports whether the value is undefined, which is also what a
// native function sees for arguments the script did not pass.
func (v *Value) IsUndefined() bool { return v.alive() && v.ptr.IsUndefined() }

// IsNull reports whether the value is null.
func (v *Value) IsNull() bool { return v.alive() && v.ptr.IsNull() }

// String returns the string representation of the value using the ToString()
// method.  For primitive types this is just the printable value.  For objects,
// this is "[object Object]".  Functions print the function definition.
func (v *Value) String() string {
	if !v.alive() {
		return ""
	}
	return v.ptr.String()
}

// Float64 returns this Value as a float64. If this value is not a number,
// then NaN will be returned.
func (v *Value) Float64() float64 {
	if !v.alive() {
		return math.NaN()
	}
	return v.ptr.Number()
}

// Int64 returns this Value as an int64. If this value is not a number,
// then 0 will be returned.
func (v *Value) Int64() int64 {
	if !v.alive() {
		return 0
	}
	return v.ptr.Integer()
}

// Bool returns this Value as a boolean, coerced using Javascript's rules.
func (v *Value) Bool() bool { return v.alive() && v.ptr.Boolean() }

func (v *Value) conversionError(to string, cause error) error {
	return &ConversionError{Kinds: v.Kinds(), To: to, Cause: cause}
}

// ToString converts the value to a Go string. Strings, numbers, booleans,
// bigints and functions convert through ToString; other objects are
// rendered as JSON. Undefined, null and symbols have no string
// representation, nor do objects that cannot be serialized (e.g. circular
// structures).
func (v *Value) ToString() (string, error) {
	if err := v.check(); err != nil {
		return "", err
	}
	switch {
	case v.ptr.IsString(), v.ptr.IsNumber(), v.ptr.IsBoolean(), v.ptr.IsBigInt(), v.ptr.IsFunction():
		return v.ptr.String(), nil
	case v.ptr.IsNullOrUndefined(), v.ptr.IsSymbol():
		return "", v.conversionError("string", nil)
	}
	b, err := v.MarshalJSON()
	if err != nil {
		var cerr *ConversionError
		if errors.As(err, &cerr) {
			cerr.To = "string"
		}
		return "", err
	}
	return string(b), nil
}

// ToNumber returns the value of a JS number.
func (v *Value) ToNumber() (float64, error) {
	if err := v.check(); err != nil {
		return 0, err
	}
	if !v.ptr.IsNumber() {
		return 0, v.conversionError("float64", nil)
	}
	return v.ptr.Number(), nil
}

// ToInt64 returns the value of a JS number holding an integer representable
// as an int64.
func (v *Value) ToInt64() (int64, error) {
	if err := v.check(); err != nil {
		return 0, err
	}
	f, err := v.ToNumber()
	if err != nil {
		return 0, v.conversionError("int64", nil)
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, v.conversionError("int64", fmt.Errorf("%v is not an int64", f))
	}
	return int64(f), nil
}

// ToBool returns the value of a JS boolean. Unlike Bool, it does not coerce.
func (v *Value) ToBool() (bool, error) {
	if err := v.check(); err != nil {
		return false, err
	}
	if !v.ptr.IsBoolean() {
		return false, v.conversionError("bool", nil)
	}
	return v.ptr.Boolean(), nil
}

// Date returns this Value as a time.Time. If the underlying value is not a
// KindDate, this will return an error.
func (v *Value) Date() (time.Time, error) {
	if err := v.check(); err != nil {
		return time.Time{}, err
	}
	if !v.ptr.IsDate() {
		return time.Time{}, v.conversionError("time.Time", nil)
	}
	msec := int64(v.ptr.Number())
	return time.Unix(msec/1000, (msec%1000)*1e6), nil
}

// MarshalJSON implements the json.Marshaler interface using the VM's
// JSON.stringify. Values JSON.stringify cannot serialize, such as circular
// structures or undefined, fail with a *ConversionError.
//
// Note that JSON.stringify will ignore function values.  For example, this JS
// object:
//
//	{ foo: function() { return "x" }, bar: 3 }
//
// will serialize to this:
//
//	{"bar":3}
func (v *Value) MarshalJSON() ([]byte, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	s, err := v8go.JSONStringify(v.ctx.ptr, v.ptr)
	if err != nil {
		return nil, v.conversionError("JSON", err)
	}
	if s == "" || v.ptr.IsUndefined() {
		return nil, v.conversionError("JSON", errors.New("value has no JSON representation"))
	}
	return []byte(s), nil
}

// Decode stores the value in the Go value pointed to by dst, going through
// JSON. It is the inverse of Create for JSON-representable data.
func (v *Value) Decode(dst interface{}) error {
	b, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return v.conversionError(reflect.TypeOf(dst).String(), err)
	}
	return nil
}

func (v *Value) object() (*v8go.Object, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	if v.ptr.IsNullOrUndefined() {
		return nil, v.conversionError("object", nil)
	}
	obj, err := v.ptr.AsObject()
	if err != nil {
		return nil, v.conversionError("object", err)
	}
	return obj, nil
}

// Get a field from the object.  If this value is not an object, this will fail.
func (v *Value) Get(name string) (*Value, error) {
	obj, err := v.object()
	if err != nil {
		return nil, err
	}
	res, err := obj.Get(name)
	if err != nil {
		return nil, v.ctx.runtimeError(err)
	}
	return v.ctx.newValue(res), nil
}

// GetIndex gets the value at the specified index.  If this value is not an
// object or an array, this will fail.
func (v *Value) GetIndex(idx int) (*Value, error) {
	obj, err := v.object()
	if err != nil {
		return nil, err
	}
	res, err := obj.GetIdx(uint32(idx))
	if err != nil {
		return nil, v.ctx.runtimeError(err)
	}
	return v.ctx.newValue(res), nil
}

// Set a field on the object.  If this value is not an object, this
// will fail.
func (v *Value) Set(name string, value *Value) error {
	obj, err := v.object()
	if err != nil {
		return err
	}
	if err := v.sameIsolate(value); err != nil {
		return err
	}
	if err := obj.Set(name, value.ptr); err != nil {
		return v.ctx.runtimeError(err)
	}
	return nil
}

// SetIndex sets the object's value at the specified index.  If this value is
// not an object or an array, this will fail.
func (v *Value) SetIndex(idx int, value *Value) error {
	obj, err := v.object()
	if err != nil {
		return err
	}
	if err := v.sameIsolate(value); err != nil {
		return err
	}
	if err := obj.SetIdx(uint32(idx), value.ptr); err != nil {
		return v.ctx.runtimeError(err)
	}
	return nil
}

// Call this value as a function.  If this value is not a function, this will
// fail. A nil this calls the function with an undefined receiver.
func (v *Value) Call(this *Value, args ...*Value) (*Value, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	fn, err := v.ptr.AsFunction()
	if err != nil {
		return nil, v.conversionError("function", err)
	}
	recv := v.ctx.undefined()
	if this != nil {
		recv = this
	}
	vargs, err := v.valuers(append([]*Value{recv}, args...))
	if err != nil {
		return nil, err
	}
	res, err := fn.Call(vargs[0], vargs[1:]...)
	if err != nil {
		return nil, v.ctx.runtimeError(err)
	}
	return v.ctx.newValue(res), nil
}

// New creates a new instance of an object using this value as its constructor.
// If this value is not a function, this will fail.
func (v *Value) New(args ...*Value) (*Value, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	fn, err := v.ptr.AsFunction()
	if err != nil {
		return nil, v.conversionError("function", err)
	}
	vargs, err := v.valuers(args)
	if err != nil {
		return nil, err
	}
	obj, err := fn.NewInstance(vargs...)
	if err != nil {
		return nil, v.ctx.runtimeError(err)
	}
	return v.ctx.newValue(obj.Value), nil
}

func (v *Value) sameIsolate(other *Value) error {
	if other == nil || other.ctx == nil || other.ctx.iso != v.ctx.iso {
		return ErrWrongIsolate
	}
	return other.check()
}

func (v *Value) valuers(vals []*Value) ([]v8go.Valuer, error) {
	out := make([]v8go.Valuer, len(vals))
	for i, val := range vals {
		if val == nil {
			val = v.ctx.undefined()
		}
		if err := v.sameIsolate(val); err != nil {
			return nil, err
		}
		out[i] = val.ptr
	}
	return out, nil
}
