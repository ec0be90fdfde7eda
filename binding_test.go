package v8host

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingArgsAreUndefined(t *testing.T) {
	t.Parallel()
	var second *Value
	ctx := newTestContext(t, func(tmpl *GlobalTemplate) {
		tmpl.BindFunction("f", func(s *Scope, args Args, ret *ReturnSlot) error {
			second = args.Arg(1)
			assert.True(t, args.Arg(-1).IsUndefined())
			return nil
		})
	})
	res := mustEval(t, ctx, `f("only")`)
	assert.True(t, res.IsUndefined(), "no result should be undefined")
	require.NotNil(t, second)
	assert.True(t, second.IsUndefined())
}

func TestNativeConversionErrors(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t, func(tmpl *GlobalTemplate) {
		tmpl.BindFunction("str", func(s *Scope, args Args, ret *ReturnSlot) error {
			v, err := args.Arg(0).ToString()
			if err != nil {
				return err
			}
			return ret.SetGo(v)
		})
		tmpl.BindFunction("int", func(s *Scope, args Args, ret *ReturnSlot) error {
			v, err := args.Arg(0).ToInt64()
			if err != nil {
				return err
			}
			return ret.SetGo(v)
		})
	})

	assert.Equal(t, `{"a":1}`, mustEval(t, ctx, `str({a: 1})`).String())
	assert.EqualValues(t, 7, mustEval(t, ctx, `int(7)`).Int64())

	for _, js := range []string{
		`str(Symbol("s"))`,
		`str(undefined)`,
		`int("7")`,
		`int(1.5)`,
	} {
		_, err := ctx.Eval(js, "conv.js")
		var cerr *ConversionError
		assert.ErrorAs(t, err, &cerr, "%#q", js)
	}
}

func TestNativeErrorPropagation(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("database is on fire")
	ctx := newTestContext(t, func(tmpl *GlobalTemplate) {
		tmpl.BindFunction("fail", func(*Scope, Args, *ReturnSlot) error { return sentinel })
		tmpl.BindFunction("explode", func(*Scope, Args, *ReturnSlot) error { panic("kaboom") })
	})

	_, err := ctx.Eval(`fail()`, "fail.js")
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "Error: database is on fire", rerr.Message)
	assert.Equal(t, "fail.js", rerr.Loc.Filename)
	assert.Equal(t, 1, rerr.Loc.Line)

	_, err = ctx.Eval(`explode()`, "explode.js")
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, `panic during native call "explode": kaboom`)

	// A script that catches the exception sees a regular Error.
	res := mustEval(t, ctx, `
		var msg;
		try { fail() } catch (e) { msg = (e instanceof Error) + ":" + e.message }
		msg`)
	assert.Equal(t, "true:database is on fire", res.String())

	// A caught failure does not leak into later, unrelated errors.
	_, err = ctx.Eval(`throw new Error("other")`, "other.js")
	require.ErrorAs(t, err, &rerr)
	assert.NotErrorIs(t, err, sentinel)
}

func TestScopeExpires(t *testing.T) {
	t.Parallel()
	var kept *Scope
	var keptRet *ReturnSlot
	ctx := newTestContext(t, func(tmpl *GlobalTemplate) {
		tmpl.BindFunction("keep", func(s *Scope, _ Args, ret *ReturnSlot) error {
			kept, keptRet = s, ret
			if _, err := s.Undefined(); err != nil {
				return err
			}
			v, err := s.Create("inside")
			if err != nil {
				return err
			}
			ret.Set(v)
			return nil
		})
	})

	assert.Equal(t, "inside", mustEval(t, ctx, `keep()`).String())
	require.NotNil(t, kept)
	assert.Equal(t, ctx.ID(), kept.ContextID())

	_, err := kept.Create("outside")
	assert.ErrorIs(t, err, ErrScopeExpired)
	_, err = kept.ParseJSON(`{}`)
	assert.ErrorIs(t, err, ErrScopeExpired)
	_, err = kept.This()
	assert.ErrorIs(t, err, ErrScopeExpired)
	_, err = kept.Global()
	assert.ErrorIs(t, err, ErrScopeExpired)
	_, err = kept.NewPromise()
	assert.ErrorIs(t, err, ErrScopeExpired)
	_, err = kept.Undefined()
	assert.ErrorIs(t, err, ErrScopeExpired)
	assert.ErrorIs(t, keptRet.SetGo("late"), ErrScopeExpired)
}

func TestScopeThisAndGlobal(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t, func(tmpl *GlobalTemplate) {
		tmpl.BindFunction("whoami", func(s *Scope, _ Args, ret *ReturnSlot) error {
			this, err := s.This()
			if err != nil {
				return err
			}
			name, err := this.Get("name")
			if err != nil {
				return err
			}
			ret.Set(name)
			return nil
		})
		tmpl.BindFunction("globalName", func(s *Scope, _ Args, ret *ReturnSlot) error {
			g, err := s.Global()
			if err != nil {
				return err
			}
			v, err := g.Get("appName")
			if err != nil {
				return err
			}
			ret.Set(v)
			return nil
		})
	})

	assert.Equal(t, "obj", mustEval(t, ctx, `({name: "obj", whoami}).whoami()`).String())
	assert.Equal(t, "app", mustEval(t, ctx, `appName = "app"; globalName()`).String())
}

func TestScopeParseJSON(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t, func(tmpl *GlobalTemplate) {
		tmpl.BindFunction("load", func(s *Scope, _ Args, ret *ReturnSlot) error {
			v, err := s.ParseJSON(`{"items": [1, 2, 3]}`)
			if err != nil {
				return err
			}
			ret.Set(v)
			return nil
		})
	})
	assert.EqualValues(t, 3, mustEval(t, ctx, `load().items.length`).Int64())
}

func TestReturnValueFromOtherIsolate(t *testing.T) {
	t.Parallel()
	foreign := mustEval(t, newTestContext(t, nil), `({})`)
	ctx := newTestContext(t, func(tmpl *GlobalTemplate) {
		tmpl.BindFunction("leak", func(_ *Scope, _ Args, ret *ReturnSlot) error {
			ret.Set(foreign)
			return nil
		})
	})

	_, err := ctx.Eval(`leak()`, "leak.js")
	assert.ErrorIs(t, err, ErrWrongIsolate)
}

func TestNativePromise(t *testing.T) {
	t.Parallel()
	var pending *Resolver
	ctx := newTestContext(t, func(tmpl *GlobalTemplate) {
		tmpl.BindFunction("later", func(s *Scope, _ Args, ret *ReturnSlot) error {
			r, err := s.NewPromise()
			if err != nil {
				return err
			}
			pending = r
			ret.Set(r.Promise())
			return nil
		})
	})

	mustEval(t, ctx, `var result = "waiting"; later().then(v => { result = v })`)
	require.NotNil(t, pending)
	assert.Equal(t, "waiting", mustEval(t, ctx, `result`).String())

	require.NoError(t, pending.Resolve("done"))
	require.NoError(t, ctx.RunMicrotasks())
	assert.Equal(t, "done", mustEval(t, ctx, `result`).String())
}

func TestCallbacksUseTheirOwnContext(t *testing.T) {
	t.Parallel()

	// greet is not tied to a context: it creates its result through the
	// scope it is handed.
	greet := func(s *Scope, args Args, ret *ReturnSlot) error {
		return ret.SetGo("Hello " + args.Arg(0).String())
	}
	bind := func(tmpl *GlobalTemplate) { tmpl.BindFunction("greet", greet) }
	ctx1, ctx2 := newTestContext(t, bind), newTestContext(t, bind)

	assert.Equal(t, "Hello Alice", mustEval(t, ctx1, `greet("Alice")`).String())
	assert.Equal(t, "Hello Bob", mustEval(t, ctx2, `greet("Bob")`).String())
}

func TestScopeCaller(t *testing.T) {
	t.Parallel()
	var locs []Loc
	ctx := newTestContext(t, func(tmpl *GlobalTemplate) {
		tmpl.BindFunction("where", func(s *Scope, _ Args, _ *ReturnSlot) error {
			loc, err := s.Caller()
			locs = append(locs, loc)
			return err
		})
	})

	_, err := ctx.Eval("\nwhere();\nfunction inner() {\n  where();\n}\ninner();", "caller.js")
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "caller.js", locs[0].Filename)
	assert.Equal(t, 2, locs[0].Line)
	assert.Equal(t, "caller.js", locs[1].Filename)
	assert.Equal(t, 4, locs[1].Line)
	assert.Equal(t, "inner", locs[1].Funcname)
}

func TestParseFrame(t *testing.T) {
	testcases := []struct {
		in   string
		want Loc
	}{
		{"    at foo (a.js:3:7)", Loc{Funcname: "foo", Filename: "a.js", Line: 3, Column: 7}},
		{"    at a.js:1:2", Loc{Filename: "a.js", Line: 1, Column: 2}},
		{"    at new Person (p.js:10:1)", Loc{Funcname: "new Person", Filename: "p.js", Line: 10, Column: 1}},
		{"Error: boom", Loc{}},
	}
	for _, test := range testcases {
		assert.Equal(t, test.want, parseFrame(test.in), "%q", test.in)
	}
}
