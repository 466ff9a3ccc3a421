// Package device abstracts the device (GPU) memory allocation
// primitive a Segment uses when device support is enabled. The
// allocator core never allocates device memory directly; it only
// talks to a Backend, so the concrete binding (CUDA, ROCm, ...) is
// swappable without touching the segment/pool/heap engine.
//
// No GPU binding exists anywhere in the retrieved example corpus, so
// this package ships only non-hardware backends: Null, which always
// reports device exhaustion, and Simulated, a host-memory-backed
// stand-in that lets tests exercise every device-tagged code path
// without real hardware.
package device

import (
	"errors"
	"unsafe"
)

// ErrOutOfDeviceMemory is returned when a Backend cannot satisfy a
// device allocation request.
var ErrOutOfDeviceMemory = errors.New("device: out of device memory")

// Allocation describes one device-backed allocation.
type Allocation struct {
	Ptr     unsafe.Pointer
	Size    uintptr
	Ordinal int
}

// Backend is the device-facility capability a Segment is built on when
// device support is enabled in the heap's configuration.
type Backend interface {
	// Allocate reserves size bytes on the given device ordinal.
	Allocate(size uintptr, ordinal int) (Allocation, error)
	// Free releases an allocation previously returned by Allocate.
	Free(a Allocation) error
}
