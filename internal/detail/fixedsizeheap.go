package detail

import (
	"sync"

	"go.uber.org/zap"

	"github.com/angainor/hwmalloc/device"
	"github.com/angainor/hwmalloc/numa"
	"github.com/angainor/hwmalloc/register"
)

// FixedSizeHeap is one Pool per NUMA node, all configured for the same
// block size and segment size. Pools are created lazily on first touch
// of a node: Allocate's fast path is a read lock plus a pointer read
// for every node already touched, and only the first allocation on a
// given node pays for a write lock.
type FixedSizeHeap struct {
	backend       register.Backend
	numaFacility  numa.Facility
	blockSize     uintptr
	segmentSize   uintptr
	neverFree     bool
	deviceEnabled bool
	deviceBackend device.Backend
	deviceOrdinal int
	log           *zap.Logger

	mu    sync.RWMutex
	pools []*Pool
}

// FixedSizeHeapConfig mirrors PoolConfig minus the NUMA node, which
// Allocate supplies per call.
type FixedSizeHeapConfig struct {
	Backend       register.Backend
	NumaFacility  numa.Facility
	BlockSize     uintptr
	SegmentSize   uintptr
	NeverFree     bool
	DeviceEnabled bool
	DeviceBackend device.Backend
	DeviceOrdinal int
	Log           *zap.Logger
}

// NewFixedSizeHeap constructs a FixedSizeHeap with no pools yet; each
// NUMA node's Pool is created on first allocation for that node.
func NewFixedSizeHeap(cfg FixedSizeHeapConfig) *FixedSizeHeap {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &FixedSizeHeap{
		backend:       cfg.Backend,
		numaFacility:  cfg.NumaFacility,
		blockSize:     cfg.BlockSize,
		segmentSize:   cfg.SegmentSize,
		neverFree:     cfg.NeverFree,
		deviceEnabled: cfg.DeviceEnabled,
		deviceBackend: cfg.DeviceBackend,
		deviceOrdinal: cfg.DeviceOrdinal,
		log:           log,
	}
}

// BlockSize returns this heap's fixed block size.
func (h *FixedSizeHeap) BlockSize() uintptr { return h.blockSize }

// Allocate forwards to the Pool for numaNode, creating it on first
// use.
func (h *FixedSizeHeap) Allocate(numaNode int) (Block, error) {
	return h.poolFor(numaNode).Allocate()
}

// Free is not normally reached: a Block carries its own back-pointer
// to the originating Segment and Block.Release routes straight there.
// Kept for parity with the upstream fixed_size_heap::free, which
// forwards to block.release() the same way.
func (h *FixedSizeHeap) Free(b Block) { b.Release() }

// Pool returns the Pool for numaNode, creating it on first use. Used
// by tests.
func (h *FixedSizeHeap) Pool(numaNode int) *Pool {
	return h.poolFor(numaNode)
}

func (h *FixedSizeHeap) poolFor(numaNode int) *Pool {
	h.mu.RLock()

	if numaNode < len(h.pools) && h.pools[numaNode] != nil {
		p := h.pools[numaNode]

		h.mu.RUnlock()

		return p
	}

	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	for len(h.pools) <= numaNode {
		h.pools = append(h.pools, nil)
	}

	if h.pools[numaNode] == nil {
		h.pools[numaNode] = NewPool(PoolConfig{
			Backend:       h.backend,
			NumaFacility:  h.numaFacility,
			BlockSize:     h.blockSize,
			SegmentSize:   h.segmentSize,
			NumaNode:      numaNode,
			NeverFree:     h.neverFree,
			DeviceEnabled: h.deviceEnabled,
			DeviceBackend: h.deviceBackend,
			DeviceOrdinal: h.deviceOrdinal,
			Log:           h.log,
		})
	}

	return h.pools[numaNode]
}
