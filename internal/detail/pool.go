package detail

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/angainor/hwmalloc/device"
	"github.com/angainor/hwmalloc/internal/concurrency"
	"github.com/angainor/hwmalloc/numa"
	"github.com/angainor/hwmalloc/register"
)

// PoolConfig bundles a Pool's fixed configuration: everything that is
// the same for every segment the pool will ever create.
type PoolConfig struct {
	Backend       register.Backend
	NumaFacility  numa.Facility
	BlockSize     uintptr
	SegmentSize   uintptr
	NumaNode      int
	NeverFree     bool
	DeviceEnabled bool
	DeviceBackend device.Backend
	DeviceOrdinal int
	Log           *zap.Logger
}

// Pool owns a set of Segments sharing (block size, NUMA node,
// Context), plus the main lock-free freelist holding
// immediately-allocatable blocks. The fast path (Allocate's freelist
// pop, Segment.free) never takes mu; the slow path (collector pass,
// segment creation) serializes through it, which is also what confines
// concurrent Segment.collect calls to one goroutine per segment.
type Pool struct {
	_ noCopy

	cfg PoolConfig
	log *zap.Logger

	freelist atomic.Pointer[concurrency.Stack[Block]]

	mu       sync.Mutex
	segments []*Segment
}

// NewPool constructs an empty Pool: no segments yet, a small seed
// freelist that the first grow replaces.
func NewPool(cfg PoolConfig) *Pool {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	p := &Pool{cfg: cfg, log: log}
	p.freelist.Store(concurrency.NewStack[Block](2))

	return p
}

// BlockSize returns this pool's fixed block size.
func (p *Pool) BlockSize() uintptr { return p.cfg.BlockSize }

// NumaNode returns this pool's NUMA node.
func (p *Pool) NumaNode() int { return p.cfg.NumaNode }

// Allocate pops a block from the main freelist, falling back to a
// collector pass and then to creating a new segment when the freelist
// is momentarily (pop) or genuinely (collect) empty. Segment creation
// is the only step that blocks on external resources and the only one
// that can fail.
func (p *Pool) Allocate() (Block, error) {
	if b, ok := p.freelist.Load().Pop(); ok {
		return b, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.freelist.Load().Pop(); ok {
		return b, nil
	}

	p.collectLocked()

	if b, ok := p.freelist.Load().Pop(); ok {
		return b, nil
	}

	if err := p.growLocked(); err != nil {
		return Block{}, err
	}

	if b, ok := p.freelist.Load().Pop(); ok {
		return b, nil
	}

	return Block{}, fmt.Errorf("hwmalloc: segment created but freelist empty (block_size=%d, node=%d): %w",
		p.cfg.BlockSize, p.cfg.NumaNode, ErrOutOfHostMemory)
}

// Free dispatches to the owning segment, or is a no-op for
// user-registered memory. Exposed for parity with the upstream
// pool::free; Block.Release reaches the same place directly.
func (p *Pool) Free(b Block) { b.Release() }

// Collect runs one collector pass: drain every segment's freed-stack
// into the main freelist, and destroy segments whose blocks have all
// been freed unless NeverFree is set. It returns the number of freed
// blocks taken out of the freed-stacks. Safe to call as an explicit
// maintenance operation; Allocate's slow path calls the unlocked form
// itself.
func (p *Pool) Collect() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.collectLocked()
}

// NumSegments reports the current segment count, for tests and
// maintenance diagnostics.
func (p *Pool) NumSegments() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.segments)
}

func (p *Pool) collectLocked() int {
	fl := p.freelist.Load()
	total := 0
	survivors := p.segments[:0]

	for _, seg := range p.segments {
		// An empty segment holds every one of its blocks in its own
		// freed-stack and none in the main freelist, so it is destroyed
		// with those blocks rather than drained into the freelist.
		if seg.isEmpty() && !p.cfg.NeverFree {
			total += seg.freed.ConsumeAll(func(Block) {})

			if err := seg.Close(); err != nil {
				p.log.Warn("segment close failed", zap.Error(err))
			}

			continue
		}

		total += seg.collect(fl)
		survivors = append(survivors, seg)
	}

	p.segments = survivors

	p.log.Debug("collector pass",
		zap.Int("drained", total),
		zap.Int("segments", len(survivors)))

	return total
}

// growLocked allocates a NUMA-backed segment, registers it with the
// Context (and the device backend, if enabled), grows the main
// freelist to make room for its blocks, and appends the segment to
// the segment list. Called only while mu is held.
func (p *Pool) growLocked() error {
	alloc, err := p.cfg.NumaFacility.Allocate(p.cfg.SegmentSize, p.cfg.NumaNode)
	if err != nil {
		return fmt.Errorf("hwmalloc: numa allocate %d bytes on node %d: %w: %w",
			p.cfg.SegmentSize, p.cfg.NumaNode, ErrOutOfHostMemory, err)
	}

	region, err := p.cfg.Backend.RegisterMemory(alloc.Ptr, alloc.Size)
	if err != nil {
		_ = p.cfg.NumaFacility.Free(alloc)

		return fmt.Errorf("hwmalloc: register segment (%d bytes): %w: %w", alloc.Size, ErrRegistrationFailed, err)
	}

	var (
		devAlloc  device.Allocation
		devRegion register.Region
	)

	if p.cfg.DeviceEnabled {
		devAlloc, devRegion, err = p.growDeviceLocked(alloc.Size)
		if err != nil {
			_ = region.Close()
			_ = p.cfg.NumaFacility.Free(alloc)

			return err
		}
	}

	numBlocks := alloc.Size / p.cfg.BlockSize
	old := p.freelist.Load()
	grown := concurrency.NewStack[Block](old.Cap() + int(numBlocks))

	old.ConsumeAll(func(b Block) { grown.PushWait(b) })
	p.freelist.Store(grown)

	seg := newSegment(segmentParams{
		pool:          p,
		alloc:         alloc,
		region:        region,
		blockSize:     p.cfg.BlockSize,
		outStack:      grown,
		numaFacility:  p.cfg.NumaFacility,
		deviceEnabled: p.cfg.DeviceEnabled,
		deviceAlloc:   devAlloc,
		deviceRegion:  devRegion,
		deviceOrdinal: p.cfg.DeviceOrdinal,
		deviceBackend: p.cfg.DeviceBackend,
		log:           p.log,
	})

	p.segments = append(p.segments, seg)

	return nil
}

func (p *Pool) growDeviceLocked(size uintptr) (device.Allocation, register.Region, error) {
	devAlloc, err := p.cfg.DeviceBackend.Allocate(size, p.cfg.DeviceOrdinal)
	if err != nil {
		return device.Allocation{}, nil, fmt.Errorf("hwmalloc: device allocate %d bytes on ordinal %d: %w: %w",
			size, p.cfg.DeviceOrdinal, ErrOutOfDeviceMemory, err)
	}

	db, ok := p.cfg.Backend.(register.DeviceBackend)
	if !ok {
		_ = p.cfg.DeviceBackend.Free(devAlloc)

		return device.Allocation{}, nil, fmt.Errorf(
			"hwmalloc: device support enabled but register.Backend %T does not implement register.DeviceBackend: %w",
			p.cfg.Backend, ErrRegistrationFailed)
	}

	devRegion, err := db.RegisterDeviceMemory(devAlloc.Ptr, devAlloc.Size, p.cfg.DeviceOrdinal)
	if err != nil {
		_ = p.cfg.DeviceBackend.Free(devAlloc)

		return device.Allocation{}, nil, fmt.Errorf("hwmalloc: register device segment (%d bytes): %w: %w",
			devAlloc.Size, ErrRegistrationFailed, err)
	}

	return devAlloc, devRegion, nil
}
