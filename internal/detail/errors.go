package detail

import "errors"

// Sentinel errors surfaced from segment/pool growth. Callers use
// errors.Is against these; call sites wrap them with %w to add
// context (which pool, which size class, ...).
var (
	// ErrOutOfHostMemory is returned when the NUMA facility refuses a
	// segment-sized allocation.
	ErrOutOfHostMemory = errors.New("hwmalloc: out of host memory")
	// ErrRegistrationFailed is returned when the Context rejects a
	// registration call for a freshly allocated segment.
	ErrRegistrationFailed = errors.New("hwmalloc: memory registration failed")
	// ErrOutOfDeviceMemory is returned when device allocation is
	// enabled and the device backend refuses a segment-sized
	// allocation.
	ErrOutOfDeviceMemory = errors.New("hwmalloc: out of device memory")
	// ErrInvalidSize is returned for a requested size of zero.
	ErrInvalidSize = errors.New("hwmalloc: invalid allocation size")
)
