package hwmalloc

import (
	"unsafe"

	"github.com/angainor/hwmalloc/internal/detail"
	"github.com/angainor/hwmalloc/register"
)

// Block is the unit of allocation returned by Heap.Allocate: a byte
// range, a registration handle, and (unless it is user-registered
// memory) a back-pointer to the segment that owns it. The zero Block
// is the null block: Addr returns nil and Release is a no-op.
type Block = detail.Block

// UserBlock wraps externally-registered memory, not owned by any
// pool, into a Block so it can be passed around and released through
// the same surface as pool-allocated blocks. Release on it is always a
// no-op: ownership and lifetime stay with the caller.
func UserBlock(addr unsafe.Pointer, size uintptr, handle register.Handle) Block {
	return detail.UserBlock(addr, size, handle)
}

// Free releases b, forwarding to b.Release(). It exists alongside the
// method form for parity with the upstream free-standing
// hwmalloc::free(block), for callers holding a bare Block with no
// *Heap in scope.
func Free(b Block) { b.Release() }
