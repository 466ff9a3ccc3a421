package hwmalloc

import (
	"go.uber.org/zap"

	"github.com/angainor/hwmalloc/device"
	"github.com/angainor/hwmalloc/numa"
)

// Config holds a Heap's construction-time parameters. Build one with
// NewHeap and a list of HeapOptions rather than constructing it
// directly; the zero Config is not valid (NumaFacility and Log are
// filled in by NewHeap's defaults).
type Config struct {
	// MaxSize is the largest block size served by the fixed-count
	// "huge" class before falling back to the on-demand "Huge" map.
	// Rounded up to a power of two, minimum 65536*2 (131072).
	MaxSize uintptr
	// NeverFree, when set, retains empty segments for reuse instead of
	// destroying them on a collector pass.
	NeverFree bool

	// NumaFacility backs every segment's allocation. Defaults to
	// numa.Default().
	NumaFacility numa.Facility

	// DeviceEnabled turns on the device-memory mirror for every block:
	// each segment also gets a device-side allocation and registration,
	// and Block.OnDevice/DeviceAddr/DeviceHandle become meaningful.
	DeviceEnabled bool
	// DeviceBackend services device allocation when DeviceEnabled is
	// set. Defaults to device.Null, which always fails; set this to
	// device.Simulated or a real backend to actually use device blocks.
	DeviceBackend device.Backend
	// DeviceOrdinal is the device index passed to DeviceBackend.
	DeviceOrdinal int

	// Log receives segment and collector lifecycle events (creation,
	// destruction, collector pass results). Defaults to a no-op
	// logger: the hot allocate/free path never logs regardless.
	Log *zap.Logger
}

// HeapOption configures a Config; see NewHeap.
type HeapOption func(*Config)

// WithMaxSize sets the largest non-Huge block size.
func WithMaxSize(maxSize uintptr) HeapOption {
	return func(c *Config) { c.MaxSize = maxSize }
}

// WithNeverFree retains empty segments instead of destroying them.
func WithNeverFree(neverFree bool) HeapOption {
	return func(c *Config) { c.NeverFree = neverFree }
}

// WithNumaFacility overrides the default NUMA backing allocator.
func WithNumaFacility(f numa.Facility) HeapOption {
	return func(c *Config) { c.NumaFacility = f }
}

// WithDevice enables the device-memory mirror and sets the backend and
// ordinal servicing it.
func WithDevice(backend device.Backend, ordinal int) HeapOption {
	return func(c *Config) {
		c.DeviceEnabled = true
		c.DeviceBackend = backend
		c.DeviceOrdinal = ordinal
	}
}

// WithLogger sets the logger for segment/collector lifecycle events.
func WithLogger(log *zap.Logger) HeapOption {
	return func(c *Config) { c.Log = log }
}

func defaultConfig() Config {
	return Config{
		MaxSize:       largeLimit * 2,
		NumaFacility:  numa.Default(),
		DeviceBackend: device.Null{},
		Log:           zap.NewNop(),
	}
}
