package v8host

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

type bindingKind uint8

const (
	bindFunction bindingKind = iota
	bindValue
	bindClass
)

type binding struct {
	kind  bindingKind
	fn    NativeFunc
	prim  interface{} // string, float64 or bool
	doc   []byte      // JSON snapshot of a composite value
	class *NativeClass
}

type accessorBinding struct {
	get Getter
	set Setter
}

// GlobalTemplate describes the native functions, values and accessors that
// appear on the global object of every Context created from it. A Context
// takes a snapshot of the template when it is created: later changes to the
// template only affect contexts created afterwards.
//
// A GlobalTemplate is safe for concurrent use.
type GlobalTemplate struct {
	iso *Isolate

	mu        sync.Mutex
	bindings  map[string]binding
	accessors map[string]accessorBinding
}

// NewGlobalTemplate creates an empty template for contexts of iso.
func NewGlobalTemplate(iso *Isolate) *GlobalTemplate {
	return &GlobalTemplate{
		iso:       iso,
		bindings:  map[string]binding{},
		accessors: map[string]accessorBinding{},
	}
}

// Isolate returns the isolate the template belongs to.
func (t *GlobalTemplate) Isolate() *Isolate { return t.iso }

// BindFunction registers fn as a global function called name. Binding a name
// again replaces the previous entry.
func (t *GlobalTemplate) BindFunction(name string, fn NativeFunc) {
	if fn == nil {
		panic(fmt.Sprintf("v8host: nil NativeFunc for %q", name))
	}
	t.mu.Lock()
	t.bindings[name] = binding{kind: bindFunction, fn: fn}
	t.mu.Unlock()
}

// BindValue installs a copy of value as a plain global property. Booleans,
// numbers and strings are stored directly; any other value must be JSON
// encodable and is snapshotted as JSON now, so mutating it afterwards has no
// effect on the template.
func (t *GlobalTemplate) BindValue(name string, value interface{}) error {
	b, err := snapshotValue(value)
	if err != nil {
		return fmt.Errorf("v8host: bind value %q: %w", name, err)
	}
	t.mu.Lock()
	t.bindings[name] = b
	t.mu.Unlock()
	return nil
}

// BindAccessor records a getter/setter pair for name. Unlike functions and
// values, accessors are not part of the engine template: they are installed
// on each context's live global object right after it is created, where they
// shadow any static value bound under the same name. A nil setter makes the
// property read-only.
func (t *GlobalTemplate) BindAccessor(name string, get Getter, set Setter) {
	if get == nil {
		panic(fmt.Sprintf("v8host: nil Getter for %q", name))
	}
	t.mu.Lock()
	t.accessors[name] = accessorBinding{get, set}
	t.mu.Unlock()
}

// BindClass registers a constructor called name whose instances carry Go
// state created by cls.Construct.
func (t *GlobalTemplate) BindClass(name string, cls *NativeClass) {
	if cls == nil || cls.Construct == nil {
		panic(fmt.Sprintf("v8host: class %q needs a Construct func", name))
	}
	t.mu.Lock()
	t.bindings[name] = binding{kind: bindClass, class: cls}
	t.mu.Unlock()
}

// Unbind removes every binding registered under name.
func (t *GlobalTemplate) Unbind(name string) {
	t.mu.Lock()
	delete(t.bindings, name)
	delete(t.accessors, name)
	t.mu.Unlock()
}

// Names lists the bound names in sorted order.
func (t *GlobalTemplate) Names() []string {
	t.mu.Lock()
	seen := make(map[string]bool, len(t.bindings)+len(t.accessors))
	for name := range t.bindings {
		seen[name] = true
	}
	for name := range t.accessors {
		seen[name] = true
	}
	t.mu.Unlock()
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type namedBinding struct {
	name string
	binding
}

type namedAccessor struct {
	name string
	accessorBinding
}

// snapshot copies the current bindings, sorted by name so that contexts are
// always built in the same order.
func (t *GlobalTemplate) snapshot() ([]namedBinding, []namedAccessor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bindings := make([]namedBinding, 0, len(t.bindings))
	for name, b := range t.bindings {
		bindings = append(bindings, namedBinding{name, b})
	}
	accessors := make([]namedAccessor, 0, len(t.accessors))
	for name, a := range t.accessors {
		accessors = append(accessors, namedAccessor{name, a})
	}
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].name < bindings[j].name })
	sort.Slice(accessors, func(i, j int) bool { return accessors[i].name < accessors[j].name })
	return bindings, accessors
}

func snapshotValue(value interface{}) (binding, error) {
	if _, ok := value.(*Value); ok {
		return binding{}, fmt.Errorf("%w: script values cannot be stored in a template", ErrWrongIsolate)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return binding{kind: bindValue, prim: rv.Bool()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return binding{kind: bindValue, prim: rv.Convert(float64Type).Float()}, nil
	case reflect.String:
		return binding{kind: bindValue, prim: rv.String()}, nil
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return binding{}, fmt.Errorf("unsupported value type %T", value)
	}
	doc, err := json.Marshal(value)
	if err != nil {
		return binding{}, err
	}
	return binding{kind: bindValue, doc: doc}, nil
}
