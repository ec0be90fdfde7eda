package v8host

import (
	"go.uber.org/zap"
	"rogchap.com/v8go"
)

// Script is source text compiled against a Context. A script can be run any
// number of times; each run executes it from the top. Note that rerunning a
// script with top-level let/const/class declarations fails with a
// RuntimeError because the names are already declared in the context.
type Script struct {
	ctx    *Context
	ptr    *v8go.UnboundScript
	origin string

	cacheRejected bool
}

// CompileOption configures Compile.
type CompileOption func(*v8go.CompileOptions)

// WithCodeCache supplies code cache data produced by Script.CodeCache for
// the same source, skipping most of the parse. Stale or foreign data is
// rejected by the engine and the source is compiled normally. Empty data is
// ignored.
func WithCodeCache(data []byte) CompileOption {
	return func(o *v8go.CompileOptions) {
		if len(data) == 0 {
			o.CachedData = nil
			return
		}
		o.CachedData = &v8go.CompilerCachedData{Bytes: data}
	}
}

// Compile parses source against ctx. Syntax errors are returned as a
// *CompileError; nothing is executed. The origin names the script in errors
// and stack traces.
func Compile(ctx *Context, source, origin string, opts ...CompileOption) (*Script, error) {
	if err := ctx.enter(); err != nil {
		return nil, err
	}
	defer ctx.leave()

	var o v8go.CompileOptions
	for _, opt := range opts {
		opt(&o)
	}
	us, err := ctx.iso.ptr.CompileUnboundScript(source, origin, o)
	if err != nil {
		cerr := newCompileError(err)
		ctx.log.Debug("compile failed", zap.String("origin", origin), zap.Error(cerr))
		return nil, cerr
	}
	s := &Script{ctx: ctx, ptr: us, origin: origin}
	if o.CachedData != nil {
		s.cacheRejected = o.CachedData.Rejected
	}
	return s, nil
}

// Origin is the name the script was compiled under.
func (s *Script) Origin() string { return s.origin }

// Context is the context the script was compiled against.
func (s *Script) Context() *Context { return s.ctx }

// CodeCacheRejected reports whether code cache data passed to Compile was
// rejected. It reports false when the isolate already had the source in its
// compilation cache, since the data is then never consulted.
func (s *Script) CodeCacheRejected() bool { return s.cacheRejected }

// CodeCache serializes the compiled script for WithCodeCache.
func (s *Script) CodeCache() []byte {
	return s.ptr.CreateCodeCache().Bytes
}

// Run executes the script in its context and returns the value of the last
// evaluated statement. An uncaught exception, including one thrown on behalf
// of a failing native binding, is returned as a *RuntimeError.
func (s *Script) Run() (*Value, error) { return s.RunIn(s.ctx) }

// RunIn executes the script in another context of the same isolate.
func (s *Script) RunIn(ctx *Context) (*Value, error) {
	if ctx.iso != s.ctx.iso {
		return nil, ErrWrongIsolate
	}
	if err := ctx.enter(); err != nil {
		return nil, err
	}
	defer ctx.leave()

	ctx.pendingErr = nil
	res, err := s.ptr.Run(ctx.ptr)
	if err != nil {
		return nil, ctx.runtimeError(err)
	}
	ctx.pendingErr = nil
	return ctx.newValue(res), nil
}
