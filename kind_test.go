package v8host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This hard-codes a handful of kind <-> string mappings to ensure that our
// kind enum and kind string array are matched up.
func TestKindString(t *testing.T) {
	testcases := []struct {
		kind Kind
		str  string
	}{
		{KindUndefined, "Undefined"},
		{KindNativeError, "NativeError"},
		{KindRegExp, "RegExp"},
		{KindProxy, "Proxy"},

		// Verify that we have N kinds and they are stringified reasonably.
		{kNumKinds, "NoSuchKind:47"},
	}
	for _, test := range testcases {
		assert.Equal(t, test.str, test.kind.String(), "kind %d", int(test.kind))
	}
}

func TestValueKind(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t, nil)

	toTest := map[string][]Kind{
		`undefined`:                        {KindUndefined},
		`null`:                             {KindNull},
		`"test"`:                           {KindString, KindName},
		`Symbol("test")`:                   {KindSymbol, KindName},
		`(function(){})`:                   {KindFunction, KindObject},
		`[]`:                               {KindArray, KindObject},
		`new Object()`:                     {KindObject},
		`true`:                             {KindBoolean, KindTrue},
		`false`:                            {KindBoolean, KindFalse},
		`1`:                                {KindNumber, KindInt32, KindUint32},
		`-1`:                               {KindNumber, KindInt32},
		`1.5`:                              {KindNumber},
		`10n`:                              {KindBigInt},
		`new Date()`:                       {KindDate, KindObject},
		`(function(){return arguments})()`: {KindArgumentsObject, KindObject},
		`new Number`:                       {KindNumberObject, KindObject},
		`new String`:                       {KindStringObject, KindObject},
		`new Object(Symbol("test"))`:       {KindSymbolObject, KindObject},
		`/regexp/`:                         {KindRegExp, KindObject},
		`new Promise((res, rjt)=>{})`:      {KindPromise, KindObject},
		`new Map()`:                        {KindMap, KindObject},
		`new Set()`:                        {KindSet, KindObject},
		`new ArrayBuffer(0)`:               {KindArrayBuffer, KindObject},
		`new Uint8Array(0)`:                {KindUint8Array, KindTypedArray, KindArrayBufferView, KindObject},
		`new Uint8ClampedArray(0)`:         {KindUint8ClampedArray, KindTypedArray},
		`new Int8Array(0)`:                 {KindInt8Array, KindTypedArray},
		`new Uint16Array(0)`:               {KindUint16Array, KindTypedArray},
		`new Int16Array(0)`:                {KindInt16Array, KindTypedArray},
		`new Uint32Array(0)`:               {KindUint32Array, KindTypedArray},
		`new Int32Array(0)`:                {KindInt32Array, KindTypedArray},
		`new Float32Array(0)`:              {KindFloat32Array, KindTypedArray},
		`new Float64Array(0)`:              {KindFloat64Array, KindTypedArray},
		`new DataView(new ArrayBuffer(0))`: {KindDataView, KindArrayBufferView},
		`new SharedArrayBuffer(0)`:         {KindSharedArrayBuffer, KindObject},
		`new Proxy({}, {})`:                {KindProxy, KindObject},
		`new WeakMap`:                      {KindWeakMap, KindObject},
		`new WeakSet`:                      {KindWeakSet, KindObject},
		`(async function(){})`:             {KindAsyncFunction, KindFunction},
		`(function* (){})`:                 {KindGeneratorFunction, KindFunction},
		`function* gen(){}; gen()`:         {KindGeneratorObject, KindObject},
		`new Map()[Symbol.iterator]()`:     {KindMapIterator, KindObject},
		`new Set()[Symbol.iterator]()`:     {KindSetIterator, KindObject},
		`new EvalError`:                    {KindNativeError, KindObject},
	}

	for script, want := range toTest {
		v, err := ctx.Eval(script, "kind_test.js")
		require.NoError(t, err, "%#q", script)
		got := v.Kinds()
		for _, k := range want {
			assert.Contains(t, got, k, "%#q", script)
			assert.True(t, v.IsKind(k), "%#q: IsKind(%v)", script, k)
		}
	}

	// Primitives never report object kinds.
	for _, script := range []string{`undefined`, `"x"`, `1`, `true`} {
		assert.NotContains(t, mustEval(t, ctx, script).Kinds(), KindObject, "%#q", script)
	}
	assert.False(t, mustEval(t, ctx, `1`).IsKind(kNumKinds))
}
