package hwmalloc

import (
	"fmt"
	"sync"

	"github.com/angainor/hwmalloc/internal/detail"
	"github.com/angainor/hwmalloc/register"
)

// Size-class boundaries and segment sizes, ported bit-for-bit from the
// upstream heap.hpp constants (s_tiny_limit, s_small_limit,
// s_large_limit, s_*_segment, s_tiny_increment*). These are the
// spec's bit-exact size-class table; do not "simplify" the arithmetic
// without re-checking every boundary against the scenarios in
// spec.md §8.
const (
	tinyLimit  = 1 << 7  // 128
	smallLimit = 1 << 10 // 1024
	largeLimit = 1 << 16 // 65536

	tinySegment  = 0x4000 // 16 KiB
	smallSegment = 0x8000 // 32 KiB
	largeSegment = 0x10000 // 64 KiB

	tinyIncrementShift = 3
	tinyIncrement      = 1 << tinyIncrementShift // 8

	numTinyHeaps = tinyLimit / tinyIncrement
)

var bucketShift = log2c(tinyLimit) - 1

var (
	numSmallHeaps = log2c(smallLimit) - log2c(tinyLimit)
	numLargeHeaps = log2c(largeLimit) - log2c(smallLimit)
)

// log2c is the ceiling-ish integer log2 used throughout the bucket
// arithmetic: log2c(n) = (n<2) ? 1 : 1+log2c(n>>1). It is not a
// general log2 — it is this specific recursion, reproduced exactly
// because bucketIndex and roundUpPow2 rely on its off-by-one behavior
// at n==0 and n==1.
func log2c(n uint64) uint64 {
	if n < 2 {
		return 1
	}

	return 1 + log2c(n>>1)
}

// tinyBucketIndex returns the 0-based index into tinyHeaps for a
// request of n bytes: ceil(n/8)-1, so tinyHeaps[tinyBucketIndex(n)]
// has block size 8*ceil(n/8), the smallest multiple of 8 >= n. (The
// outer -1 is required because tinyHeaps[i] holds block size
// 8*(i+1), not 8*i; dropping it routes every request one size class
// too high and overflows the array at n==128.)
func tinyBucketIndex(n uint64) uint64 {
	return (n+tinyIncrement-1)>>tinyIncrementShift - 1
}

func bucketIndex(n uint64) uint64 {
	return log2c((n-1)>>bucketShift) - 1
}

// roundUpPow2 returns the smallest power of two >= n (for n >= 2; n
// == 1 yields 2).
func roundUpPow2(n uint64) uint64 {
	return 1 << log2c(n-1)
}

// Heap is the top-level, size-classed allocation engine: it routes an
// allocate(size, numaNode) call to one of its tiny/small/large/huge
// fixed-size heaps, or to an on-demand entry in the mutex-guarded
// Huge map for sizes above MaxSize.
type Heap struct {
	ctx     register.Backend
	cfg     Config
	maxSize uint64

	tinyHeaps []*detail.FixedSizeHeap // index i => block size tinyIncrement*(i+1)
	heaps     []*detail.FixedSizeHeap // small+large+huge, index via bucketIndex

	hugeMu    sync.Mutex
	hugeHeaps map[uint64]*detail.FixedSizeHeap
}

// NewHeap constructs a Heap against the given Context capability
// (register.Backend), pre-building every tiny/small/large/huge
// fixed-size heap up to Config.MaxSize. The Huge map starts empty and
// is populated lazily on first use of a size above MaxSize.
func NewHeap(ctx register.Backend, opts ...HeapOption) *Heap {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	maxSize := roundUpPow2(uint64(cfg.MaxSize))
	if maxSize < largeLimit*2 {
		maxSize = largeLimit * 2
	}

	h := &Heap{
		ctx:       ctx,
		cfg:       cfg,
		maxSize:   maxSize,
		tinyHeaps: make([]*detail.FixedSizeHeap, numTinyHeaps),
		heaps:     make([]*detail.FixedSizeHeap, bucketIndex(maxSize)+1),
		hugeHeaps: make(map[uint64]*detail.FixedSizeHeap),
	}

	for i := range h.tinyHeaps {
		h.tinyHeaps[i] = h.newFixedSizeHeap(tinyIncrement*uint64(i+1), tinySegment)
	}

	for i := uint64(0); i < numSmallHeaps; i++ {
		h.heaps[i] = h.newFixedSizeHeap(tinyLimit<<(i+1), smallSegment)
	}

	for i := uint64(0); i < numLargeHeaps; i++ {
		h.heaps[i+numSmallHeaps] = h.newFixedSizeHeap(smallLimit<<(i+1), largeSegment)
	}

	for i := uint64(0); i < uint64(len(h.heaps))-(numSmallHeaps+numLargeHeaps); i++ {
		blockSize := uint64(largeLimit) << (i + 1)
		h.heaps[i+numSmallHeaps+numLargeHeaps] = h.newFixedSizeHeap(blockSize, blockSize)
	}

	return h
}

func (h *Heap) newFixedSizeHeap(blockSize, segmentSize uint64) *detail.FixedSizeHeap {
	return detail.NewFixedSizeHeap(detail.FixedSizeHeapConfig{
		Backend:       h.ctx,
		NumaFacility:  h.cfg.NumaFacility,
		BlockSize:     uintptr(blockSize),
		SegmentSize:   uintptr(segmentSize),
		NeverFree:     h.cfg.NeverFree,
		DeviceEnabled: h.cfg.DeviceEnabled,
		DeviceBackend: h.cfg.DeviceBackend,
		DeviceOrdinal: h.cfg.DeviceOrdinal,
		Log:           h.cfg.Log,
	})
}

// Allocate returns a block of at least size bytes on numaNode: the
// smallest size-class block size >= size. size must be non-zero.
func (h *Heap) Allocate(size uintptr, numaNode int) (Block, error) {
	n := uint64(size)
	if n == 0 {
		return Block{}, ErrInvalidSize
	}

	switch {
	case n <= tinyLimit:
		return h.tinyHeaps[tinyBucketIndex(n)].Allocate(numaNode)
	case n <= h.maxSize:
		return h.heaps[bucketIndex(n)].Allocate(numaNode)
	default:
		return h.hugeHeapFor(n).Allocate(numaNode)
	}
}

// hugeHeapFor looks up (or lazily creates) the Huge-class fixed-size
// heap for round-up-to-power-of-2(size). The mutex is held only across
// the map lookup/insert, never across the subsequent allocation.
func (h *Heap) hugeHeapFor(size uint64) *detail.FixedSizeHeap {
	s := roundUpPow2(size)

	h.hugeMu.Lock()
	fsh, ok := h.hugeHeaps[s]

	if !ok {
		fsh = h.newFixedSizeHeap(s, s)
		h.hugeHeaps[s] = fsh
	}

	h.hugeMu.Unlock()

	return fsh
}

// Free returns b to its owning pool. Equivalent to calling b.Release()
// or the package-level Free(b) directly; Heap is not consulted beyond
// that, matching the upstream heap::free / fixed_size_heap::free
// delegation chain.
func (h *Heap) Free(b Block) { b.Release() }

// OwnedBlock is a Block with a release-once-on-Close obligation,
// mirroring the upstream unique_block's move-then-null-on-destruct
// behavior. Go has no implicit move, so the obligation transfers only
// if the caller discards the source after copying (e.g. by zeroing it)
// — Close is idempotent either way, guarded by the wrapped block's
// address rather than a separate flag, so a zero-valued OwnedBlock is
// indistinguishable from "already released".
type OwnedBlock struct {
	heap  *Heap
	block Block
}

// Block returns the wrapped Block without transferring ownership.
func (o *OwnedBlock) Block() Block { return o.block }

// Close releases the wrapped block if it has not already been
// released. Safe to call more than once.
func (o *OwnedBlock) Close() error {
	if o.block.Addr() == nil {
		return nil
	}

	o.heap.Free(o.block)
	o.block = Block{}

	return nil
}

// AllocateUnique is Allocate wrapped in an OwnedBlock that releases on
// Close.
func (h *Heap) AllocateUnique(size uintptr, numaNode int) (*OwnedBlock, error) {
	b, err := h.Allocate(size, numaNode)
	if err != nil {
		return nil, fmt.Errorf("hwmalloc: allocate_unique(%d, node=%d): %w", size, numaNode, err)
	}

	return &OwnedBlock{heap: h, block: b}, nil
}
