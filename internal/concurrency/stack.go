// Package concurrency provides the bounded, lock-free, multi-producer
// multi-consumer data structures used on the allocator's hot path: the
// per-segment freed-stack and the per-pool main freelist.
package concurrency

import (
	"runtime"
	"sync/atomic"
)

// Stack is a bounded multi-producer multi-consumer lock-free container.
// It is built on Dmitry Vyukov's bounded MPMC ring-buffer algorithm
// using per-slot sequence numbers; the name reflects the role it plays
// in the allocator (a collection of freed blocks), not the internal
// ordering, which callers must not rely on.
type Stack[T any] struct {
	_pad0   [64]byte
	mask    uint64
	_pad1   [64]byte
	enqueue uint64
	_pad2   [64]byte
	dequeue uint64
	_pad3   [64]byte
	cells   []cell[T]
}

type cell[T any] struct {
	seq  uint64
	_pad [56]byte // cache-line padding
	val  T
}

// NewStack creates a stack with the given capacity (rounded up to the
// next power of two; minimum 2).
func NewStack[T any](capacity int) *Stack[T] {
	if capacity < 2 {
		capacity = 2
	}

	capPow2 := uint64(1)
	for capPow2 < uint64(capacity) {
		capPow2 <<= 1
	}

	s := &Stack[T]{
		mask:  capPow2 - 1,
		cells: make([]cell[T], capPow2),
	}
	for i := range s.cells {
		s.cells[i].seq = uint64(i)
	}

	return s
}

// Cap returns the stack's fixed capacity.
func (s *Stack[T]) Cap() int {
	return int(s.mask + 1)
}

// Push attempts to add v. It returns false if the stack is momentarily
// full (all slots occupied by not-yet-consumed entries); callers on
// the allocator's free path retry until it succeeds, since the stack
// is pre-sized to the segment's block count and can never be
// permanently full.
func (s *Stack[T]) Push(v T) bool {
	for {
		pos := atomic.LoadUint64(&s.enqueue)
		c := &s.cells[pos&s.mask]
		seq := atomic.LoadUint64(&c.seq)
		dif := int64(seq) - int64(pos)

		switch {
		case dif == 0:
			if atomic.CompareAndSwapUint64(&s.enqueue, pos, pos+1) {
				c.val = v
				atomic.StoreUint64(&c.seq, pos+1) // release
				return true
			}
		case dif < 0:
			return false // full
		default:
			runtime.Gosched()
		}
	}
}

// PushWait pushes v, retrying until it succeeds. Used on the free path,
// where the stack is pre-sized so that every freed block always has
// room.
func (s *Stack[T]) PushWait(v T) {
	for !s.Push(v) {
		runtime.Gosched()
	}
}

// Pop attempts to remove one entry. It returns the zero value and
// false if the stack is empty.
func (s *Stack[T]) Pop() (T, bool) {
	for {
		pos := atomic.LoadUint64(&s.dequeue)
		c := &s.cells[pos&s.mask]
		seq := atomic.LoadUint64(&c.seq) // acquire
		dif := int64(seq) - int64(pos+1)

		switch {
		case dif == 0:
			if atomic.CompareAndSwapUint64(&s.dequeue, pos, pos+1) {
				v := c.val
				var zero T
				c.val = zero
				atomic.StoreUint64(&c.seq, pos+s.mask+1)

				return v, true
			}
		case dif < 0:
			var zero T
			return zero, false // empty
		default:
			runtime.Gosched()
		}
	}
}

// ConsumeAll drains every currently-available entry into fn, stopping
// as soon as the stack reports empty. It is meant to be called by a
// single collector goroutine per source stack (concurrent collection
// of the same stack is not supported, mirroring the upstream
// requirement that collection is single-threaded per segment).
func (s *Stack[T]) ConsumeAll(fn func(T)) int {
	n := 0

	for {
		v, ok := s.Pop()
		if !ok {
			return n
		}

		fn(v)
		n++
	}
}
