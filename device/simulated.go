package device

import "unsafe"

// Simulated is a host-memory-backed stand-in for a real device
// backend. It hands out ordinary Go-heap allocations tagged with a
// device ordinal, which is enough to drive every device-tagged
// allocator code path (block layout, segment device accounting,
// release ordering) in tests without hardware.
type Simulated struct{}

func (Simulated) Allocate(size uintptr, ordinal int) (Allocation, error) {
	if size == 0 {
		return Allocation{Ordinal: ordinal}, nil
	}

	buf := make([]byte, size)

	return Allocation{
		Ptr:     unsafe.Pointer(&buf[0]),
		Size:    size,
		Ordinal: ordinal,
	}, nil
}

func (Simulated) Free(Allocation) error {
	// Backed by the Go heap; the GC reclaims it once the segment's
	// last reference is dropped. Nothing to do here.
	return nil
}
