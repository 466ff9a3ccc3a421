package numa

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapFacility is the portable default Facility: every node maps to
// the same anonymous, zero-filled mapping, with no real NUMA node
// binding. It exists so the allocator works out of the box on any
// unix the x/sys/unix package supports, and so tests do not need
// libnuma installed.
type mmapFacility struct {
	pageSize uintptr
}

func newMmapFacility() Facility {
	return &mmapFacility{pageSize: uintptr(unix.Getpagesize())}
}

func (f *mmapFacility) PageSize() uintptr { return f.pageSize }

func (f *mmapFacility) Allocate(size uintptr, node int) (Allocation, error) {
	aligned := alignUp(size, f.pageSize)

	data, err := unix.Mmap(-1, 0, int(aligned),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return Allocation{}, fmt.Errorf("%w: mmap %d bytes: %v", ErrOutOfMemory, aligned, err)
	}

	return Allocation{
		Ptr:  unsafe.Pointer(&data[0]),
		Size: aligned,
		Node: node,
	}, nil
}

func (f *mmapFacility) Free(a Allocation) error {
	if a.Ptr == nil {
		return nil
	}

	data := unsafe.Slice((*byte)(a.Ptr), a.Size)

	return unix.Munmap(data)
}

func alignUp(size, alignment uintptr) uintptr {
	return (size + alignment - 1) &^ (alignment - 1)
}
