// Package loopback is a dependency-free, in-process register.Backend:
// good enough to drive every Heap operation in tests and single-process
// demos, with no external RMA fabric required.
//
// It is grounded directly in original_source/test/test_segment.cpp's
// mock `context`/`region` types: a region is just the registered byte
// range itself, a handle is the address at the requested offset, and construction /
// destruction of the context and its regions are logged the way the
// mock prints to stdout — reproduced here via *zap.Logger calls.
package loopback

import (
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/angainor/hwmalloc/register"
)

// Context is a loopback register.Backend: "registering" a range is a
// no-op beyond bookkeeping, and the resulting handle's local/remote
// keys are synthesized from the address. It satisfies both
// register.Backend and register.DeviceBackend, so it can drive
// device-enabled Heaps in tests without a real GPU binding (pair it
// with device.Simulated).
type Context struct {
	log *zap.Logger
}

// New constructs a loopback Context. log defaults to a no-op logger.
func New(log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}

	log.Debug("loopback context constructor")

	return &Context{log: log}
}

// RegisterMemory implements register.Backend.
func (c *Context) RegisterMemory(ptr unsafe.Pointer, size uintptr) (register.Region, error) {
	return newRegion(c.log, ptr, size), nil
}

// RegisterDeviceMemory implements register.DeviceBackend identically
// to RegisterMemory: loopback has no notion of a separate device
// fabric, it is the same pointer-offset scheme over whatever address
// range device.Simulated handed out.
func (c *Context) RegisterDeviceMemory(ptr unsafe.Pointer, size uintptr, _ int) (register.Region, error) {
	return newRegion(c.log, ptr, size), nil
}

// handle is the loopback Handle: a raw address, reported as both the
// local and remote RMA key since there is no real fabric to
// distinguish them.
type handle struct {
	addr unsafe.Pointer
}

func (h handle) LocalKey() uint64  { return uint64(uintptr(h.addr)) }
func (h handle) RemoteKey() uint64 { return uint64(uintptr(h.addr)) }

// region is the loopback Region: the registered range itself, with a
// logged, idempotent Close standing in for deregistration.
type region struct {
	log    *zap.Logger
	base   unsafe.Pointer
	size   uintptr
	closed int32
}

func newRegion(log *zap.Logger, base unsafe.Pointer, size uintptr) *region {
	return &region{log: log, base: base, size: size}
}

func (r *region) GetHandle(offset, _ uintptr) register.Handle {
	return handle{addr: unsafe.Add(r.base, offset)}
}

func (r *region) Close() error {
	if !atomic.CompareAndSwapInt32(&r.closed, 0, 1) {
		return nil
	}

	r.log.Debug("loopback region destructor", zap.Uintptr("size", r.size))

	return nil
}
