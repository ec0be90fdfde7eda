package v8host

import (
	"fmt"

	"rogchap.com/v8go"
)

// Kind is one classification of a JS value. Most values have several kinds:
// a Uint8Array is also a TypedArray, an ArrayBufferView and an Object.
type Kind uint8

// Value kinds
const (
	KindUndefined Kind = iota
	KindNull
	KindTrue
	KindFalse
	KindName
	KindString
	KindSymbol
	KindFunction
	KindArray
	KindObject
	KindBoolean
	KindNumber
	KindBigInt
	KindInt32
	KindUint32
	KindDate
	KindArgumentsObject
	KindNumberObject
	KindStringObject
	KindSymbolObject
	KindNativeError
	KindRegExp
	KindAsyncFunction
	KindGeneratorFunction
	KindGeneratorObject
	KindPromise
	KindMap
	KindSet
	KindMapIterator
	KindSetIterator
	KindWeakMap
	KindWeakSet
	KindArrayBuffer
	KindArrayBufferView
	KindTypedArray
	KindUint8Array
	KindUint8ClampedArray
	KindInt8Array
	KindUint16Array
	KindInt16Array
	KindUint32Array
	KindInt32Array
	KindFloat32Array
	KindFloat64Array
	KindDataView
	KindSharedArrayBuffer
	KindProxy
	kNumKinds
)

var kindStrings = [kNumKinds]string{
	"Undefined", "Null", "True", "False", "Name", "String", "Symbol",
	"Function", "Array", "Object", "Boolean", "Number", "BigInt", "Int32",
	"Uint32", "Date", "ArgumentsObject", "NumberObject", "StringObject",
	"SymbolObject", "NativeError", "RegExp", "AsyncFunction",
	"GeneratorFunction", "GeneratorObject", "Promise", "Map", "Set",
	"MapIterator", "SetIterator", "WeakMap", "WeakSet", "ArrayBuffer",
	"ArrayBufferView", "TypedArray", "Uint8Array", "Uint8ClampedArray",
	"Int8Array", "Uint16Array", "Int16Array", "Uint32Array", "Int32Array",
	"Float32Array", "Float64Array", "DataView", "SharedArrayBuffer", "Proxy",
}

func (k Kind) String() string {
	if k >= kNumKinds {
		return fmt.Sprintf("NoSuchKind:%d", int(k))
	}
	return kindStrings[k]
}

var kindPredicates = [kNumKinds]func(*v8go.Value) bool{
	KindUndefined:         (*v8go.Value).IsUndefined,
	KindNull:              (*v8go.Value).IsNull,
	KindTrue:              (*v8go.Value).IsTrue,
	KindFalse:             (*v8go.Value).IsFalse,
	KindName:              (*v8go.Value).IsName,
	KindString:            (*v8go.Value).IsString,
	KindSymbol:            (*v8go.Value).IsSymbol,
	KindFunction:          (*v8go.Value).IsFunction,
	KindArray:             (*v8go.Value).IsArray,
	KindObject:            (*v8go.Value).IsObject,
	KindBoolean:           (*v8go.Value).IsBoolean,
	KindNumber:            (*v8go.Value).IsNumber,
	KindBigInt:            (*v8go.Value).IsBigInt,
	KindInt32:             (*v8go.Value).IsInt32,
	KindUint32:            (*v8go.Value).IsUint32,
	KindDate:              (*v8go.Value).IsDate,
	KindArgumentsObject:   (*v8go.Value).IsArgumentsObject,
	KindNumberObject:      (*v8go.Value).IsNumberObject,
	KindStringObject:      (*v8go.Value).IsStringObject,
	KindSymbolObject:      (*v8go.Value).IsSymbolObject,
	KindNativeError:       (*v8go.Value).IsNativeError,
	KindRegExp:            (*v8go.Value).IsRegExp,
	KindAsyncFunction:     (*v8go.Value).IsAsyncFunction,
	KindGeneratorFunction: (*v8go.Value).IsGeneratorFunction,
	KindGeneratorObject:   (*v8go.Value).IsGeneratorObject,
	KindPromise:           (*v8go.Value).IsPromise,
	KindMap:               (*v8go.Value).IsMap,
	KindSet:               (*v8go.Value).IsSet,
	KindMapIterator:       (*v8go.Value).IsMapIterator,
	KindSetIterator:       (*v8go.Value).IsSetIterator,
	KindWeakMap:           (*v8go.Value).IsWeakMap,
	KindWeakSet:           (*v8go.Value).IsWeakSet,
	KindArrayBuffer:       (*v8go.Value).IsArrayBuffer,
	KindArrayBufferView:   (*v8go.Value).IsArrayBufferView,
	KindTypedArray:        (*v8go.Value).IsTypedArray,
	KindUint8Array:        (*v8go.Value).IsUint8Array,
	KindUint8ClampedArray: (*v8go.Value).IsUint8ClampedArray,
	KindInt8Array:         (*v8go.Value).IsInt8Array,
	KindUint16Array:       (*v8go.Value).IsUint16Array,
	KindInt16Array:        (*v8go.Value).IsInt16Array,
	KindUint32Array:       (*v8go.Value).IsUint32Array,
	KindInt32Array:        (*v8go.Value).IsInt32Array,
	KindFloat32Array:      (*v8go.Value).IsFloat32Array,
	KindFloat64Array:      (*v8go.Value).IsFloat64Array,
	KindDataView:          (*v8go.Value).IsDataView,
	KindSharedArrayBuffer: (*v8go.Value).IsSharedArrayBuffer,
	KindProxy:             (*v8go.Value).IsProxy,
}
