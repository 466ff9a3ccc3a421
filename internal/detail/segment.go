package detail

import (
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/angainor/hwmalloc/device"
	"github.com/angainor/hwmalloc/internal/concurrency"
	"github.com/angainor/hwmalloc/numa"
	"github.com/angainor/hwmalloc/register"
)

// Segment is one NUMA allocation sliced into blockSize-sized blocks,
// registered once with the Context. Its address is the stable identity
// blocks' back-pointers rely on: once constructed, a Segment is never
// copied or moved.
type Segment struct {
	_ noCopy

	pool      *Pool
	blockSize uintptr
	numBlocks uintptr

	alloc  numa.Allocation
	region register.Region

	deviceEnabled bool
	deviceAlloc   device.Allocation
	deviceRegion  register.Region
	deviceOrdinal int

	numaFacility  numa.Facility
	deviceBackend device.Backend

	freed      *concurrency.Stack[Block]
	freedCount int64 // atomic; released on increment, acquired on read

	log *zap.Logger
}

// noCopy marks a type as non-copyable to `go vet -copylocks`-style
// tooling; Segment's stable address is a correctness requirement, not
// just an optimization.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// segmentParams bundles the inputs newSegment needs; growLocked builds
// one per grow to keep that call site readable.
type segmentParams struct {
	pool          *Pool
	alloc         numa.Allocation
	region        register.Region
	blockSize     uintptr
	outStack      *concurrency.Stack[Block]
	numaFacility  numa.Facility
	deviceEnabled bool
	deviceAlloc   device.Allocation
	deviceRegion  register.Region
	deviceOrdinal int
	deviceBackend device.Backend
	log           *zap.Logger
}

// newSegment slices alloc into blockSize-sized blocks and pushes each
// freshly-created block record onto outStack, retrying on transient
// push failure (outStack is bounded but pre-sized to fit every block
// this segment will ever produce).
func newSegment(p segmentParams) *Segment {
	n := p.alloc.Size / p.blockSize
	s := &Segment{
		pool:          p.pool,
		blockSize:     p.blockSize,
		numBlocks:     n,
		alloc:         p.alloc,
		region:        p.region,
		deviceEnabled: p.deviceEnabled,
		deviceAlloc:   p.deviceAlloc,
		deviceRegion:  p.deviceRegion,
		deviceOrdinal: p.deviceOrdinal,
		numaFacility:  p.numaFacility,
		deviceBackend: p.deviceBackend,
		freed:         concurrency.NewStack[Block](int(n)),
		log:           p.log,
	}

	for i := n; i > 0; i-- {
		off := (i - 1) * p.blockSize

		b := Block{
			segment: s,
			addr:    unsafe.Add(p.alloc.Ptr, off),
			size:    p.blockSize,
			handle:  p.region.GetHandle(off, p.blockSize),
		}

		if p.deviceEnabled && p.deviceAlloc.Ptr != nil {
			b.onDevice = true
			b.deviceAddr = unsafe.Add(p.deviceAlloc.Ptr, off)
			b.deviceOrdinal = p.deviceOrdinal

			if p.deviceRegion != nil {
				b.deviceHandle = p.deviceRegion.GetHandle(off, p.blockSize)
			}
		}

		p.outStack.PushWait(b)
	}

	s.log.Debug("segment created",
		zap.Uintptr("block_size", p.blockSize),
		zap.Uint64("num_blocks", uint64(n)),
		zap.Int("numa_node", p.alloc.Node))

	return s
}

// BlockSize returns the fixed size of every block in this segment.
func (s *Segment) BlockSize() uintptr { return s.blockSize }

// Capacity returns the number of blocks this segment was sliced into.
func (s *Segment) Capacity() uintptr { return s.numBlocks }

// NumaNode returns the NUMA node this segment's allocation was placed
// on.
func (s *Segment) NumaNode() int { return s.alloc.Node }

// Pool returns the owning Pool.
func (s *Segment) Pool() *Pool { return s.pool }

// isEmpty reports whether every block this segment ever produced has
// been freed back to it: freedCount == capacity.
func (s *Segment) isEmpty() bool {
	return atomic.LoadInt64(&s.freedCount) == int64(s.numBlocks)
}

// free pushes b onto this segment's freed-stack, then releases the
// freedCount increment. The release-after-push ordering guarantees
// that any observer seeing freedCount == capacity also observes every
// block in the freed-stack (see collect).
func (s *Segment) free(b Block) {
	s.freed.PushWait(b)
	atomic.AddInt64(&s.freedCount, 1)
}

// collect drains this segment's freed-stack into out, decrementing
// freedCount by the drained count, and returns that count. Must be
// called by exactly one goroutine at a time per segment (the owning
// Pool's collector); concurrent collection across different segments
// is fine.
func (s *Segment) collect(out *concurrency.Stack[Block]) int {
	n := s.freed.ConsumeAll(func(b Block) { out.PushWait(b) })
	atomic.AddInt64(&s.freedCount, -int64(n))

	return n
}

// Close deregisters and releases this segment's backing allocations.
// Only the Pool's collector calls this, and only once isEmpty() is
// true.
func (s *Segment) Close() error {
	if s.deviceRegion != nil {
		_ = s.deviceRegion.Close()
	}

	if s.deviceBackend != nil && s.deviceAlloc.Ptr != nil {
		_ = s.deviceBackend.Free(s.deviceAlloc)
	}

	err := s.region.Close()

	if ferr := s.numaFacility.Free(s.alloc); ferr != nil && err == nil {
		err = ferr
	}

	s.log.Debug("segment destroyed",
		zap.Uintptr("block_size", s.blockSize),
		zap.Int("numa_node", s.alloc.Node))

	return err
}
