package v8host

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"rogchap.com/v8go"
)

// Isolate represents a single-threaded V8 engine instance with its own heap.
// It can host multiple independent Contexts, however only one of them will
// ever execute at a time. Separate isolates may execute on separate
// goroutines simultaneously.
type Isolate struct {
	id  uint64
	rt  *Runtime
	ptr *v8go.Isolate
	log *zap.Logger

	// exec is held for the duration of every entry into the engine from the
	// embedder (compile, run, context creation).
	exec        sync.Mutex
	terminating atomic.Bool

	mu       sync.Mutex
	disposed bool
	contexts map[*Context]struct{}
}

func newIsolate(rt *Runtime, id uint64) *Isolate {
	return &Isolate{
		id:       id,
		rt:       rt,
		ptr:      v8go.NewIsolate(),
		log:      rt.log.With(zap.Uint64("isolate", id)),
		contexts: map[*Context]struct{}{},
	}
}

// ID identifies the isolate within its runtime.
func (i *Isolate) ID() uint64 { return i.id }

// enter claims the isolate for one engine entry. It never blocks: a second
// concurrent entry is a usage error reported as ErrIsolateBusy.
func (i *Isolate) enter() error {
	if !i.exec.TryLock() {
		return ErrIsolateBusy
	}
	i.mu.Lock()
	disposed := i.disposed
	i.mu.Unlock()
	if disposed {
		i.exec.Unlock()
		return ErrDisposed
	}
	i.terminating.Store(false)
	return nil
}

func (i *Isolate) leave() { i.exec.Unlock() }

// Terminate interrupts any script executing in this isolate. The run fails
// with a RuntimeError matching ErrTerminated. It may be called from any
// goroutine at any time.
func (i *Isolate) Terminate() {
	i.terminating.Store(true)
	i.ptr.TerminateExecution()
}

// Dispose closes all contexts owned by the isolate and releases its heap.
// Disposing an isolate while script is executing in it panics with a
// *ContractViolation, which native call recovery does not intercept: the
// process dies. Dispose is a no-op on a disposed isolate.
func (i *Isolate) Dispose() {
	if !i.exec.TryLock() {
		panic(&ContractViolation{Msg: fmt.Sprintf("isolate %d disposed while executing script", i.id)})
	}
	defer i.exec.Unlock()

	i.mu.Lock()
	if i.disposed {
		i.mu.Unlock()
		return
	}
	i.disposed = true
	contexts := make([]*Context, 0, len(i.contexts))
	for ctx := range i.contexts {
		contexts = append(contexts, ctx)
	}
	i.contexts = nil
	i.mu.Unlock()

	for _, ctx := range contexts {
		ctx.close()
	}
	i.ptr.Dispose()
	i.rt.release(i)
	i.log.Debug("isolate disposed", zap.Int("contexts", len(contexts)))
}

// HeapStatistics represent v8::HeapStatistics which are statistics
// about the heap memory usage.
type HeapStatistics struct {
	TotalHeapSize            uint64
	TotalHeapSizeExecutable  uint64
	TotalPhysicalSize        uint64
	TotalAvailableSize       uint64
	UsedHeapSize             uint64
	HeapSizeLimit            uint64
	MallocedMemory           uint64
	ExternalMemory           uint64
	PeakMallocedMemory       uint64
	NumberOfNativeContexts   uint64
	NumberOfDetachedContexts uint64
}

// HeapStatistics gets statistics about the heap memory usage.
func (i *Isolate) HeapStatistics() (HeapStatistics, error) {
	if err := i.enter(); err != nil {
		return HeapStatistics{}, err
	}
	defer i.leave()
	hs := i.ptr.GetHeapStatistics()
	return HeapStatistics{
		TotalHeapSize:            hs.TotalHeapSize,
		TotalHeapSizeExecutable:  hs.TotalHeapSizeExecutable,
		TotalPhysicalSize:        hs.TotalPhysicalSize,
		TotalAvailableSize:       hs.TotalAvailableSize,
		UsedHeapSize:             hs.UsedHeapSize,
		HeapSizeLimit:            hs.HeapSizeLimit,
		MallocedMemory:           hs.MallocedMemory,
		ExternalMemory:           hs.ExternalMemory,
		PeakMallocedMemory:       hs.PeakMallocedMemory,
		NumberOfNativeContexts:   hs.NumberOfNativeContexts,
		NumberOfDetachedContexts: hs.NumberOfDetachedContexts,
	}, nil
}

func (i *Isolate) track(ctx *Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.disposed {
		return ErrDisposed
	}
	i.contexts[ctx] = struct{}{}
	return nil
}

func (i *Isolate) untrack(ctx *Context) {
	i.mu.Lock()
	delete(i.contexts, ctx)
	i.mu.Unlock()
}
