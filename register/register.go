// Package register defines the customization point an allocator Context
// must satisfy: the ability to register a byte range for RMA/DMA use and
// hand back an opaque, cheaply-copyable handle for sub-ranges of it.
//
// The upstream C++ library expresses this as a free function discovered
// by argument-dependent lookup, `register_memory(Context&, ptr, size,
// memory_tag<M>) -> R`. Go has no ADL and no template customization
// points, so the capability is modeled as the interface trait below,
// per the translation spec.md's design notes explicitly sanction.
package register

import "unsafe"

// Handle is the RMA/DMA key pair for one registered sub-range. It must
// be cheap to copy: implementations are expected to be small value
// types (an offset/length pair, an integer key, ...), not pointers to
// heap state.
type Handle interface {
	// LocalKey returns the backend-defined key a local peer uses to
	// address this range.
	LocalKey() uint64
	// RemoteKey returns the backend-defined key a remote peer uses to
	// address this range over RMA.
	RemoteKey() uint64
}

// Region is one registration of a contiguous byte range with a Backend.
// Close deregisters; callers must call it exactly once, and only after
// every Handle obtained from GetHandle is no longer in use.
type Region interface {
	// GetHandle returns the RMA handle for the sub-range
	// [offset, offset+size) of this region.
	GetHandle(offset, size uintptr) Handle
	// Close deregisters the region. It is idempotent.
	Close() error
}

// Backend is the Context capability: the ability to register host
// memory for RMA/DMA use. Implementations must be safe for concurrent
// use, since the tiered heap may register memory from several pools
// concurrently (though never concurrently for the same segment).
type Backend interface {
	// RegisterMemory registers the byte range [ptr, ptr+size) and
	// returns a Region describing it.
	RegisterMemory(ptr unsafe.Pointer, size uintptr) (Region, error)
}

// DeviceBackend is the optional device-memory extension to Backend.
// Backends that do not support device registration simply do not
// implement it; callers type-assert for it, and a device-enabled pool
// fails the allocation with a registration error when it is absent.
type DeviceBackend interface {
	// RegisterDeviceMemory registers device memory on the given device
	// ordinal, mirroring RegisterMemory for host memory.
	RegisterDeviceMemory(ptr unsafe.Pointer, size uintptr, device int) (Region, error)
}
