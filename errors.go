package hwmalloc

import "github.com/angainor/hwmalloc/internal/detail"

// Error kinds an allocate call can fail with. Use errors.Is against
// these; call sites wrap them with additional context.
var (
	// ErrOutOfHostMemory is returned when the NUMA facility refuses a
	// segment-sized allocation during segment creation.
	ErrOutOfHostMemory = detail.ErrOutOfHostMemory
	// ErrRegistrationFailed is returned when the Context rejects
	// registering a freshly allocated segment.
	ErrRegistrationFailed = detail.ErrRegistrationFailed
	// ErrOutOfDeviceMemory is returned when device support is enabled
	// and the device backend refuses a segment-sized allocation.
	ErrOutOfDeviceMemory = detail.ErrOutOfDeviceMemory
	// ErrInvalidSize is returned for a requested allocation size of
	// zero. The tiered heap rejects rather than clamps: size==0 is
	// almost always a caller bug, and a silent clamp to the smallest
	// block size would hide it.
	ErrInvalidSize = detail.ErrInvalidSize
)
