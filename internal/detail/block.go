package detail

import (
	"unsafe"

	"github.com/angainor/hwmalloc/register"
)

// Block is the unit returned to callers: a raw address, a registration
// handle cheap enough to copy, and a back-pointer to the Segment it
// came from. A Block whose segment is nil is user-registered memory
// (never pool-owned); Release on it is a no-op, matching the upstream
// "user registered memory has nullptr segment" invariant.
type Block struct {
	segment *Segment

	addr   unsafe.Pointer
	size   uintptr
	handle register.Handle

	deviceAddr    unsafe.Pointer
	deviceHandle  register.Handle
	deviceOrdinal int
	onDevice      bool
}

// UserBlock wraps externally-registered memory (not owned by any pool)
// into a Block so it can flow through the same Ptr/VPtr surface as
// pool-allocated blocks. Release on it is always a no-op.
func UserBlock(addr unsafe.Pointer, size uintptr, handle register.Handle) Block {
	return Block{addr: addr, size: size, handle: handle}
}

// Addr returns the block's base address, or nil for the zero Block.
func (b Block) Addr() unsafe.Pointer { return b.addr }

// Size returns the block's size in bytes (its size class, not a
// requested size).
func (b Block) Size() uintptr { return b.size }

// Handle returns the RMA/DMA handle for the block's full range.
func (b Block) Handle() register.Handle { return b.handle }

// OnDevice reports whether this block also carries a device-memory
// mirror (device support enabled and wired for this segment).
func (b Block) OnDevice() bool { return b.onDevice }

// DeviceAddr returns the block's device-side address. Only meaningful
// when OnDevice is true.
func (b Block) DeviceAddr() unsafe.Pointer { return b.deviceAddr }

// DeviceHandle returns the block's device-side RMA handle. Only
// meaningful when OnDevice is true.
func (b Block) DeviceHandle() register.Handle { return b.deviceHandle }

// DeviceOrdinal returns the device ordinal this block's device mirror
// lives on. Only meaningful when OnDevice is true.
func (b Block) DeviceOrdinal() int { return b.deviceOrdinal }

// SameAddr reports whether two blocks refer to the same underlying
// byte range. register.Handle may not be comparable with ==, so
// callers compare blocks this way rather than with the == operator.
func (b Block) SameAddr(o Block) bool { return b.addr == o.addr }

// Release returns the block to its owning pool, or is a no-op for a
// zero Block or a user-registered Block (nil segment).
func (b Block) Release() {
	if b.segment == nil {
		return
	}

	b.segment.free(b)
}
