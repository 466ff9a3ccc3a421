package hwmalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angainor/hwmalloc/device"
	"github.com/angainor/hwmalloc/loopback"
)

func TestHeap_TinyAllocationExactSizeClass(t *testing.T) {
	h := NewHeap(loopback.New(nil))

	b, err := h.Allocate(8, 0)
	require.NoError(t, err)
	require.NotNil(t, b.Addr())
	require.Equal(t, uintptr(8), b.Size())

	addr := b.Addr()
	h.Free(b)

	b2, err := h.Allocate(8, 0)
	require.NoError(t, err)
	require.Equal(t, addr, b2.Addr(), "freed block must be reused by the next same-size allocation")
}

func TestHeap_TinyAllocationRoundsUpToIncrement(t *testing.T) {
	h := NewHeap(loopback.New(nil))

	b, err := h.Allocate(100, 0)
	require.NoError(t, err)
	require.Equal(t, uintptr(104), b.Size(), "100 bytes must round up to the 104-byte tiny class")
}

func TestHeap_LargeAllocationRoundsToPowerOfTwoClass(t *testing.T) {
	h := NewHeap(loopback.New(nil))

	b, err := h.Allocate(1025, 0)
	require.NoError(t, err)
	require.Equal(t, uintptr(2048), b.Size(), "1025 bytes must route to the 2048-byte class")
}

func TestHeap_HugeClassCreatedOnDemandAndDeduped(t *testing.T) {
	h := NewHeap(loopback.New(nil), WithMaxSize(largeLimit*2))

	size := uintptr(h.maxSize) * 4

	b1, err := h.Allocate(size, 0)
	require.NoError(t, err)

	fsh1 := h.hugeHeapFor(uint64(size))

	b2, err := h.Allocate(size, 0)
	require.NoError(t, err)

	fsh2 := h.hugeHeapFor(uint64(size))

	require.Same(t, fsh1, fsh2, "two requests for the same huge size must hit the same on-demand heap")

	h.Free(b1)
	h.Free(b2)
}

func TestHeap_ZeroSizeRejected(t *testing.T) {
	h := NewHeap(loopback.New(nil))

	_, err := h.Allocate(0, 0)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestHeap_AllocateUniqueReleasesOnClose(t *testing.T) {
	h := NewHeap(loopback.New(nil))

	ob, err := h.AllocateUnique(16, 0)
	require.NoError(t, err)

	addr := ob.Block().Addr()
	require.NotNil(t, addr)

	require.NoError(t, ob.Close())
	require.Nil(t, ob.Block().Addr())

	// Close is idempotent.
	require.NoError(t, ob.Close())

	b2, err := h.Allocate(16, 0)
	require.NoError(t, err)
	require.Equal(t, addr, b2.Addr())
}

func TestHeap_DeviceMirrorWhenEnabled(t *testing.T) {
	h := NewHeap(loopback.New(nil), WithDevice(device.Simulated{}, 0))

	b, err := h.Allocate(64, 0)
	require.NoError(t, err)
	require.True(t, b.OnDevice())
	require.NotNil(t, b.DeviceAddr())

	h.Free(b)
}

func TestHeap_NoDeviceMirrorByDefault(t *testing.T) {
	h := NewHeap(loopback.New(nil))

	b, err := h.Allocate(64, 0)
	require.NoError(t, err)
	require.False(t, b.OnDevice())

	h.Free(b)
}
