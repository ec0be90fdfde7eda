package v8host

import (
	"fmt"
	"path"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"time"
	"unicode"

	"rogchap.com/v8go"
)

var float64Type = reflect.TypeOf(float64(0))
var nativeFuncType = reflect.TypeOf(NativeFunc(nil))
var stringType = reflect.TypeOf(string(""))
var valuePtrType = reflect.TypeOf((*Value)(nil))
var timeType = reflect.TypeOf(time.Time{})

func (c *Context) create(val interface{}) (*Value, error) {
	return c.createWithTags(reflect.ValueOf(val), nil)
}

func getJsName(fieldName, jsonTag string) string {
	jsonName := strings.TrimSpace(strings.Split(jsonTag, ",")[0])
	if jsonName == "-" {
		return "" // skip this field
	}
	if jsonName == "" {
		return fieldName // use the default name
	}
	return jsonName // explict name specified
}

func (c *Context) primitive(val interface{}) (*Value, error) {
	v, err := v8go.NewValue(c.iso.ptr, val)
	if err != nil {
		return nil, err
	}
	return c.newValue(v), nil
}

func (c *Context) createWithTags(val reflect.Value, tags []string) (*Value, error) {
	if !val.IsValid() {
		return c.undefined(), nil
	}

	if val.Type() == valuePtrType {
		v := val.Interface().(*Value)
		if v == nil {
			return c.undefined(), nil
		}
		if v.ctx == nil || v.ctx.iso != c.iso {
			return nil, ErrWrongIsolate
		}
		if err := v.check(); err != nil {
			return nil, err
		}
		return v, nil
	} else if val.Type() == timeType {
		msec := float64(val.Interface().(time.Time).UnixNano()) / 1e6
		arg, err := v8go.NewValue(c.iso.ptr, msec)
		if err != nil {
			return nil, err
		}
		date, err := c.intr.dateCtor.NewInstance(arg)
		if err != nil {
			return nil, err
		}
		return c.newValue(date.Value), nil
	}

	switch val.Kind() {
	case reflect.Bool:
		return c.primitive(val.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return c.primitive(val.Convert(float64Type).Float())
	case reflect.String:
		return c.primitive(val.String())
	case reflect.UnsafePointer, reflect.Uintptr:
		return nil, fmt.Errorf("Uintptr not supported: %#v", val.Interface())
	case reflect.Complex64, reflect.Complex128:
		return nil, fmt.Errorf("Complex not supported: %#v", val.Interface())
	case reflect.Chan:
		return nil, fmt.Errorf("Chan not supported: %#v", val.Interface())
	case reflect.Func:
		if val.IsNil() {
			return c.undefined(), nil
		}
		if val.Type().ConvertibleTo(nativeFuncType) {
			name := path.Base(runtime.FuncForPC(val.Pointer()).Name())
			return c.function(name, val.Convert(nativeFuncType).Interface().(NativeFunc)), nil
		}
		return nil, fmt.Errorf("Func not supported: %#v", val.Interface())
	case reflect.Interface, reflect.Ptr:
		return c.createWithTags(val.Elem(), tags)
	case reflect.Map:
		if val.Type().Key() != stringType {
			return nil, fmt.Errorf("Map keys must be strings, %s not allowed", val.Type().Key())
		}
		ob, err := c.newObject()
		if err != nil {
			return nil, err
		}
		keys := val.MapKeys()
		sort.Slice(keys, func(a, b int) bool { return keys[a].String() < keys[b].String() })
		for _, key := range keys {
			v, err := c.create(val.MapIndex(key).Interface())
			if err != nil {
				return nil, fmt.Errorf("map key %q: %v", key.String(), err)
			}
			if err := ob.Set(key.String(), v.ptr); err != nil {
				return nil, err
			}
		}
		return c.newValue(ob.Value), nil
	case reflect.Struct:
		ob, err := c.newObject()
		if err != nil {
			return nil, err
		}
		return c.newValue(ob.Value), c.writeStructFields(ob, val)
	case reflect.Array, reflect.Slice:
		arrayBuffer := false
		for _, tag := range tags {
			if strings.TrimSpace(tag) == "arraybuffer" {
				arrayBuffer = true
			}
		}
		if arrayBuffer && val.Kind() == reflect.Slice && val.Type().Elem().Kind() == reflect.Uint8 {
			return c.createArrayBuffer(val.Bytes())
		}

		arr, err := v8go.JSONParse(c.ptr, "[]")
		if err != nil {
			return nil, err
		}
		ob, err := arr.AsObject()
		if err != nil {
			return nil, err
		}
		for i := 0; i < val.Len(); i++ {
			v, err := c.createWithTags(val.Index(i), nil)
			if err != nil {
				return nil, fmt.Errorf("index %d: %v", i, err)
			}
			if err := ob.SetIdx(uint32(i), v.ptr); err != nil {
				return nil, err
			}
		}
		return c.newValue(arr), nil
	}
	panic("Unknown kind!")
}

// createArrayBuffer copies bytes into a fresh ArrayBuffer.
func (c *Context) createArrayBuffer(bytes []byte) (*Value, error) {
	n, err := v8go.NewValue(c.iso.ptr, float64(len(bytes)))
	if err != nil {
		return nil, err
	}
	view, err := c.intr.uint8Array.NewInstance(n)
	if err != nil {
		return nil, err
	}
	for i, b := range bytes {
		if err := view.SetIdx(uint32(i), uint32(b)); err != nil {
			return nil, err
		}
	}
	buf, err := view.Get("buffer")
	if err != nil {
		return nil, err
	}
	return c.newValue(buf), nil
}

func (c *Context) writeStructFields(ob *v8go.Object, val reflect.Value) error {
	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := getJsName(f.Name, f.Tag.Get("json"))
		if name == "" {
			continue // skip field with tag `json:"-"`
		}

		// Inline embedded fields.
		if f.Anonymous {
			sub := val.Field(i)
			for sub.Kind() == reflect.Ptr && !sub.IsNil() {
				sub = sub.Elem()
			}

			if sub.Kind() == reflect.Struct {
				err := c.writeStructFields(ob, sub)
				if err != nil {
					return fmt.Errorf("Writing embedded field %q: %v", f.Name, err)
				}
				continue
			}
		}

		if !unicode.IsUpper(rune(f.Name[0])) {
			continue // skip unexported fields
		}

		v8Tags := strings.Split(f.Tag.Get("v8"), ",")
		v, err := c.createWithTags(val.Field(i), v8Tags)
		if err != nil {
			return fmt.Errorf("field %q: %v", f.Name, err)
		}
		if err := ob.Set(name, v.ptr); err != nil {
			return err
		}
	}

	// Also export any methods of the struct that match the NativeFunc type.
	for i := 0; i < t.NumMethod(); i++ {
		name := t.Method(i).Name
		if !unicode.IsUpper(rune(name[0])) {
			continue // skip unexported values
		}

		m := val.Method(i)
		if m.Type().ConvertibleTo(nativeFuncType) {
			v, err := c.createWithTags(m, nil)
			if err != nil {
				return fmt.Errorf("method %q: %v", name, err)
			}
			if err := ob.Set(name, v.ptr); err != nil {
				return err
			}
		}
	}
	return nil
}
