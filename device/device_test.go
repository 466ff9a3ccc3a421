package device

import (
	"errors"
	"testing"
	"unsafe"
)

func TestNull_AlwaysOutOfMemory(t *testing.T) {
	var n Null

	_, err := n.Allocate(64, 0)
	if !errors.Is(err, ErrOutOfDeviceMemory) {
		t.Fatalf("expected ErrOutOfDeviceMemory, got %v", err)
	}

	if err := n.Free(Allocation{}); err != nil {
		t.Fatalf("Null.Free should always succeed, got %v", err)
	}
}

func TestSimulated_AllocateIsWritable(t *testing.T) {
	var s Simulated

	a, err := s.Allocate(256, 2)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if a.Size != 256 {
		t.Fatalf("size = %d, want 256", a.Size)
	}

	if a.Ordinal != 2 {
		t.Fatalf("ordinal = %d, want 2", a.Ordinal)
	}

	buf := unsafe.Slice((*byte)(a.Ptr), a.Size)
	copy(buf, "hello")

	if err := s.Free(a); err != nil {
		t.Fatalf("free: %v", err)
	}
}

func TestSimulated_ZeroSizeAllocation(t *testing.T) {
	var s Simulated

	a, err := s.Allocate(0, 0)
	if err != nil {
		t.Fatalf("allocate zero size: %v", err)
	}

	if a.Ptr != nil {
		t.Fatal("expected nil pointer for a zero-size allocation")
	}
}
