package hwmalloc

import (
	"testing"
	"unsafe"

	"github.com/angainor/hwmalloc/loopback"
)

// TestUserBlock_FreeIsNoOpAndLeavesPoolUntouched exercises the
// package-level UserBlock/Free wrappers: releasing externally-owned
// memory must not panic and must not disturb a real Heap's own
// accounting.
func TestUserBlock_FreeIsNoOpAndLeavesPoolUntouched(t *testing.T) {
	h := NewHeap(loopback.New(nil))

	owned, err := h.Allocate(16, 0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	var userMem [16]byte

	region, err := loopback.New(nil).RegisterMemory(unsafe.Pointer(&userMem[0]), uintptr(len(userMem)))
	if err != nil {
		t.Fatalf("register user memory: %v", err)
	}

	handle := region.GetHandle(0, uintptr(len(userMem)))
	ub := UserBlock(unsafe.Pointer(&userMem[0]), uintptr(len(userMem)), handle)

	if ub.Addr() == nil {
		t.Fatal("expected UserBlock to carry the given address")
	}

	Free(ub) // must not panic
	Free(ub) // idempotent

	// The heap-owned block must still be intact: freeing the unrelated
	// user block must not have released it behind our back.
	h.Free(owned)

	reused, err := h.Allocate(16, 0)
	if err != nil {
		t.Fatalf("allocate after free: %v", err)
	}

	if reused.Addr() != owned.Addr() {
		t.Fatalf("expected the heap's own block to be reused normally, got %p want %p", reused.Addr(), owned.Addr())
	}
}
