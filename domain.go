package hwmalloc

// MemoryDomain identifies which address space a pointer refers to:
// host memory, or a specific device memory class. It is the runtime
// counterpart of the compile-time Domain marker a Ptr/VPtr is
// parameterized with — metadata carried alongside an address, not part
// of its identity (see Ptr.Equal).
type MemoryDomain int

const (
	// DomainNone is the domain of a null-constructed pointer.
	DomainNone MemoryDomain = -1
	// DomainHost is host (CPU-addressable) memory.
	DomainHost MemoryDomain = 0
	// DomainDevice is device (GPU) memory.
	DomainDevice MemoryDomain = 1
)

func (d MemoryDomain) String() string {
	switch d {
	case DomainHost:
		return "host"
	case DomainDevice:
		return "device"
	default:
		return "none"
	}
}

// Domain is implemented by the marker types a Ptr/VPtr is
// parameterized with (Host, Device). It is what makes pointers of
// different memory domains distinct Go types: Ptr[T, Host] and
// Ptr[T, Device] do not unify and are not implicitly convertible,
// mirroring the C++ hw_ptr<T, MemoryType> template parameter.
type Domain interface {
	domainID() MemoryDomain
}

// Host tags a Ptr/VPtr as referring to ordinary host memory.
type Host struct{}

func (Host) domainID() MemoryDomain { return DomainHost }

// Device tags a Ptr/VPtr as referring to device memory.
type Device struct{}

func (Device) domainID() MemoryDomain { return DomainDevice }

func domainOf[M Domain]() MemoryDomain {
	var m M
	return m.domainID()
}
