package loopback

import (
	"testing"
	"unsafe"
)

func TestContext_RegisterMemoryRoundTrip(t *testing.T) {
	ctx := New(nil)

	buf := make([]byte, 64)
	base := unsafe.Pointer(&buf[0])

	region, err := ctx.RegisterMemory(base, uintptr(len(buf)))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	h := region.GetHandle(8, 16)
	want := uint64(uintptr(unsafe.Add(base, 8)))

	if h.LocalKey() != want {
		t.Fatalf("local key = %d, want %d", h.LocalKey(), want)
	}

	if h.LocalKey() != h.RemoteKey() {
		t.Fatal("loopback handle must report the same local and remote key")
	}

	if err := region.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRegion_CloseIsIdempotent(t *testing.T) {
	ctx := New(nil)

	buf := make([]byte, 16)

	region, err := ctx.RegisterMemory(unsafe.Pointer(&buf[0]), 16)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := region.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	if err := region.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestContext_RegisterDeviceMemory(t *testing.T) {
	ctx := New(nil)

	buf := make([]byte, 32)

	region, err := ctx.RegisterDeviceMemory(unsafe.Pointer(&buf[0]), 32, 0)
	if err != nil {
		t.Fatalf("register device: %v", err)
	}

	h := region.GetHandle(0, 32)
	if h.LocalKey() == 0 {
		t.Fatal("expected a non-zero handle key")
	}
}
