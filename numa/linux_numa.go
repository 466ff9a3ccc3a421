//go:build numa && linux

package numa

import (
	"fmt"
	"unsafe"
)

/*
#cgo LDFLAGS: -lnuma
#include <numa.h>
#include <stdlib.h>
*/
import "C"

// libnumaFacility binds Segment allocations to a real NUMA node via
// libnuma's numa_alloc_onnode/numa_free, for builds where per-node
// placement actually matters (large HPC hosts). Non-"numa" builds
// never reference this file; the portable mmapFacility is used
// instead.
type libnumaFacility struct {
	pageSize uintptr
}

func init() {
	newLibnuma = func() (Facility, error) {
		if C.numa_available() < 0 {
			return nil, fmt.Errorf("numa: libnuma unavailable on this host")
		}

		return &libnumaFacility{pageSize: uintptr(C.numa_pagesize())}, nil
	}
}

func (f *libnumaFacility) PageSize() uintptr { return f.pageSize }

func (f *libnumaFacility) Allocate(size uintptr, node int) (Allocation, error) {
	aligned := alignUp(size, f.pageSize)

	ptr := C.numa_alloc_onnode(C.size_t(aligned), C.int(node))
	if ptr == nil {
		return Allocation{}, fmt.Errorf("%w: numa_alloc_onnode(%d, node=%d)", ErrOutOfMemory, aligned, node)
	}

	return Allocation{
		Ptr:  unsafe.Pointer(ptr),
		Size: aligned,
		Node: node,
	}, nil
}

func (f *libnumaFacility) Free(a Allocation) error {
	if a.Ptr == nil {
		return nil
	}

	C.numa_free(a.Ptr, C.size_t(a.Size))

	return nil
}
