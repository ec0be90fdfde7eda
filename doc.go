// Package v8host is a host-side embedding layer for the V8 javascript
// engine. It manages the engine lifecycle and exposes Go functions, values
// and accessors to scripts.
//
// The pieces fit together in this order:
//
//	rt, _ := v8host.Initialize()         // once per process
//	iso, _ := rt.NewIsolate()            // one heap, one executing goroutine
//	tmpl := v8host.NewGlobalTemplate(iso)
//	tmpl.BindFunction("doit", doit)      // native functions and values
//	ctx, _ := iso.NewContext(tmpl)       // a global object from the template
//	ctx.InstallAccessor("age", get, set) // accessors on the live global
//	script, _ := v8host.Compile(ctx, "age = 25; doit(age)", "main.js")
//	res, _ := script.Run()
//	iso.Dispose()
//	rt.Shutdown()
//
// V8 provides two main concepts for managing javascript state: Isolates and
// Contexts. An isolate represents a single-threaded javascript engine that
// can manage one or more contexts. A context is a sandboxed javascript
// execution environment. If you have multiple isolates, they may be
// executing on separate goroutines simultaneously.
//
// Native functions and accessors run synchronously on the goroutine
// executing the script. They receive a Scope that is only valid for the
// duration of the call. Errors they return are thrown into the script as JS
// Errors and come back out of Script.Run as a *RuntimeError that unwraps to
// the original Go error.
//
// Context.Create maps Go values into JavaScript values:
//   - bool
//   - all integers and floats are mapped to JS numbers (float64)
//   - strings
//   - maps (keys must be strings, values must be convertible)
//   - time.Time values (converted to js Date object)
//   - structs (exported field values must be convertible, json tags are
//     respected, embedded structs are inlined, exported methods with the
//     NativeFunc signature become functions)
//   - slices of convertible types; byte slices tagged `v8:"arraybuffer"`
//     become ArrayBuffers
//   - pointers to any convertible field
//   - NativeFunc functions
//   - *Value (returned as-is)
//
// Any nil pointers are converted to undefined in JS.
package v8host
