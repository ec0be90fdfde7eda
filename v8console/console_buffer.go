package v8console

import (
	"fmt"

	"github.com/scripthost/v8host"
)

const jsConsoleStub = `console = (typeof console === 'object' && console && console.__flush) ? console : (function() {
    var stored = [];
    var exception = undefined;
    function flush(new_console) {
        stored.forEach(function(log) {
            new_console[log.type].apply(new_console, log.args);
        });
        stored = [];
        return exception;
    };
    function catch_exception(e) {
        console.error('Failed to run buffered script:', e);
        if (exception === undefined) {
            exception = e;
        }
    };
    return {
        __flush: flush,
        __catch: catch_exception,
        log:   function() { stored.push({type: 'log',   args: arguments}); },
        info:  function() { stored.push({type: 'info',  args: arguments}); },
        warn:  function() { stored.push({type: 'warn',  args: arguments}); },
        error: function() { stored.push({type: 'error', args: arguments}); },
    };
})();`

// WrapForBuffer wraps the provided javascript code with a small, global
// console stub object that records all console calls until FlushAndInject
// installs a real console. This lets bootstrap code run before the host has
// decided where output goes. The code is also surrounded with a try/catch
// that records the exception instead of aborting the run. Wrapped scripts
// run one after another share the stub: their output is replayed in order
// and the first exception is reported.
func WrapForBuffer(jsCode string) string {
	return fmt.Sprintf(`
        %s
        try {
            %s
        } catch (e) {
            console.__catch(e);
        }
    `, jsConsoleStub, jsCode)
}

// FlushAndInject replaces the stub console with the console described by c
// and replays the stored messages into it. It returns the exception caught
// by the wrapped code, if any. Contexts that never ran WrapForBuffer code
// simply get the console injected.
func FlushAndInject(ctx *v8host.Context, c Config) (exception *v8host.Value, err error) {
	previous, err := ctx.Get("console")
	if err != nil {
		return nil, err
	}
	var flush *v8host.Value
	if previous.IsKind(v8host.KindObject) {
		if flush, err = previous.Get("__flush"); err != nil {
			return nil, err
		}
	}

	// A fresh object, so the stub keeps its own methods for replay.
	if err := ctx.Set("console", nil); err != nil {
		return nil, err
	}
	if err := c.Inject(ctx); err != nil {
		return nil, err
	}
	if flush == nil || !flush.IsKind(v8host.KindFunction) {
		return nil, nil
	}

	current, err := ctx.Get("console")
	if err != nil {
		return nil, err
	}
	exception, err = flush.Call(previous, current)
	if err != nil {
		return nil, err
	}
	if exception.IsUndefined() {
		return nil, nil
	}
	return exception, nil
}
