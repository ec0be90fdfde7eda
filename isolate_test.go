package v8host

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolateDisposeClosesContexts(t *testing.T) {
	t.Parallel()
	rt, err := Current()
	require.NoError(t, err)
	iso, err := rt.NewIsolate()
	require.NoError(t, err)

	ctx, err := iso.NewContext(nil)
	require.NoError(t, err)
	mustEval(t, ctx, `1`)

	iso.Dispose()
	iso.Dispose() // no-op

	_, err = ctx.Eval(`1`, "after.js")
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = iso.NewContext(nil)
	assert.ErrorIs(t, err, ErrDisposed)
	assert.NoError(t, ctx.Close())
}

func TestContextClose(t *testing.T) {
	t.Parallel()
	iso := newTestIsolate(t)
	ctx, err := iso.NewContext(nil)
	require.NoError(t, err)

	require.NoError(t, ctx.Close())
	require.NoError(t, ctx.Close())

	_, err = ctx.Eval(`1`, "closed.js")
	assert.ErrorIs(t, err, ErrContextClosed)
	_, err = ctx.Create(1)
	assert.ErrorIs(t, err, ErrContextClosed)

	// The isolate itself is still fine.
	other, err := iso.NewContext(nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, mustEval(t, other, `1+1`).Int64())
}

func TestDisposeDuringExecutionIsFatal(t *testing.T) {
	if os.Getenv("V8HOST_DISPOSE_IN_CALLBACK") == "1" {
		// No cleanups here: the isolate is left mid-call when the process dies.
		rt, err := Current()
		require.NoError(t, err)
		iso, err := rt.NewIsolate()
		require.NoError(t, err)
		tmpl := NewGlobalTemplate(iso)
		tmpl.BindFunction("dispose", func(*Scope, Args, *ReturnSlot) error {
			iso.Dispose()
			return nil
		})
		ctx, err := iso.NewContext(tmpl)
		require.NoError(t, err)
		// Script must not be able to catch it.
		res, err := ctx.Eval(`try { dispose() } catch (e) { "caught" }`, "dispose.js")
		t.Logf("survived: %v %v", res, err)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestDisposeDuringExecutionIsFatal$", "-test.v")
	cmd.Env = append(os.Environ(), "V8HOST_DISPOSE_IN_CALLBACK=1")
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr, "process kept running:\n%s", out)
	assert.Contains(t, string(out), "disposed while executing script")
	assert.NotContains(t, string(out), "survived")
}

func TestContractViolationError(t *testing.T) {
	var err error = &ContractViolation{Msg: "isolate 3 disposed while executing script"}
	assert.EqualError(t, err, "v8host: isolate 3 disposed while executing script")
}

func TestReentrantExecutionIsRejected(t *testing.T) {
	t.Parallel()
	var ctx *Context
	var inner error
	ctx = newTestContext(t, func(tmpl *GlobalTemplate) {
		tmpl.BindFunction("nested", func(*Scope, Args, *ReturnSlot) error {
			_, inner = ctx.Eval(`1`, "inner.js")
			return nil
		})
	})

	mustEval(t, ctx, `nested()`)
	assert.ErrorIs(t, inner, ErrIsolateBusy)
}

func TestTerminate(t *testing.T) {
	t.Parallel()
	var timer *time.Timer
	ctx := newTestContext(t, func(tmpl *GlobalTemplate) {
		iso := tmpl.Isolate()
		tmpl.BindFunction("armTimer", func(*Scope, Args, *ReturnSlot) error {
			timer = time.AfterFunc(20*time.Millisecond, iso.Terminate)
			return nil
		})
	})

	done := make(chan error)
	go func() {
		_, err := ctx.Eval(`armTimer(); while(true) {}`, "forever.js")
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTerminated)
		var rerr *RuntimeError
		require.ErrorAs(t, err, &rerr)
		assert.True(t, rerr.Terminated)
	case <-time.After(5 * time.Second):
		t.Fatal("script was not terminated")
	}
	timer.Stop()
}

func TestIsolatesRunInParallel(t *testing.T) {
	t.Parallel()

	const N = 8
	var wg sync.WaitGroup
	errs := make([]error, N)
	for i := 0; i < N; i++ {
		ctx := newTestContext(t, nil)
		wg.Add(1)
		go func(i int, ctx *Context) {
			defer wg.Done()
			res, err := ctx.Eval(fmt.Sprintf(`
				var sum = 0;
				for (var j = 0; j < 100000; j++) { sum += j %% %d; }
				sum`, i+2), "work.js")
			if err != nil {
				errs[i] = err
				return
			}
			if res.Int64() <= 0 {
				errs[i] = errors.New("bad sum " + res.String())
			}
		}(i, ctx)
	}
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, "isolate %d", i)
	}
}

func TestManyContextsThrowingErrors(t *testing.T) {
	t.Parallel()
	iso := newTestIsolate(t)

	prog := `
		function work(N, fail) {
			var sum = 0;
			for (var i = 0; i < N; i++) { sum += i; }
			if (fail) {
				throw "Failed";
			}
			return sum;
		}`

	for i := 0; i < 20; i++ {
		ctx, err := iso.NewContext(nil)
		require.NoError(t, err)
		mustEval(t, ctx, prog)
		_, err = ctx.Eval(fmt.Sprintf(`work(1000, %v)`, i%5 == 0), "<inline>")
		if i%5 == 0 {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestHeapStatistics(t *testing.T) {
	t.Parallel()
	iso := newTestIsolate(t)
	_, err := iso.NewContext(nil)
	require.NoError(t, err)

	hs, err := iso.HeapStatistics()
	require.NoError(t, err)
	assert.NotZero(t, hs.TotalHeapSize)
	assert.NotZero(t, hs.UsedHeapSize)
	assert.GreaterOrEqual(t, hs.NumberOfNativeContexts, uint64(1))
}

func TestIsolateIDs(t *testing.T) {
	t.Parallel()
	a, b := newTestIsolate(t), newTestIsolate(t)
	assert.NotEqual(t, a.ID(), b.ID())
}
