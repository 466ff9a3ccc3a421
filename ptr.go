package hwmalloc

import "unsafe"

// VPtr is the type-erased, memory-domain-tagged fat pointer: a raw
// address plus the memory domain it lives in, carried at the type
// level via M. It is the Go counterpart of hw_vptr<MemoryType, void*>.
//
// A zero-valued VPtr is the null pointer: zero address, and Domain
// reports DomainNone regardless of M, matching the upstream
// "null ⇒ zero address + domain -1" invariant.
type VPtr[M Domain] struct {
	addr unsafe.Pointer
}

// NewVPtr wraps a raw address as a VPtr of domain M.
func NewVPtr[M Domain](addr unsafe.Pointer) VPtr[M] {
	return VPtr[M]{addr: addr}
}

// Addr returns the raw address, with the domain tag stripped. Use
// only at well-defined interop points (invoking an external function
// that takes a raw address); do not use it to smuggle the address
// across domains.
func (p VPtr[M]) Addr() unsafe.Pointer { return p.addr }

// Domain reports the memory domain this pointer refers to, or
// DomainNone if the pointer is null.
func (p VPtr[M]) Domain() MemoryDomain {
	if p.addr == nil {
		return DomainNone
	}

	return domainOf[M]()
}

// IsValid reports whether this is a non-null pointer. A VPtr used in
// boolean context in the source language evaluates the same way.
func (p VPtr[M]) IsValid() bool { return p.addr != nil }

// Equal compares addresses only; the domain tag is metadata, not
// identity, matching the upstream operator== which compares m_data
// alone.
func (p VPtr[M]) Equal(o VPtr[M]) bool { return p.addr == o.addr }

// Ptr is the typed, memory-domain-tagged fat pointer over element type
// T in domain M: hw_ptr<T, MemoryType>'s Go counterpart. It supplies
// the random-access-iterator contract the source type implements via
// operator overloading: dereference, indexing, pointer arithmetic.
// Go has no pointer-to-member and no operator overloading, so member
// access goes through Get() returning *T (method promotion on the
// dereferenced value) rather than an overloaded ->, and arithmetic is
// exposed as named methods rather than ++/+=.
type Ptr[T any, M Domain] struct {
	vptr VPtr[M]
}

// NewPtr wraps a raw *T as a Ptr of domain M.
func NewPtr[T any, M Domain](p *T) Ptr[T, M] {
	return Ptr[T, M]{vptr: VPtr[M]{addr: unsafe.Pointer(p)}}
}

// PtrFromVoid explicitly converts a type-erased VPtr back to a typed
// Ptr, preserving both address and domain tag. This is the Go
// counterpart of hw_vptr::operator hw_ptr<T, MemoryType>().
func PtrFromVoid[T any, M Domain](v VPtr[M]) Ptr[T, M] {
	return Ptr[T, M]{vptr: v}
}

// ToVoid explicitly erases the element type, preserving address and
// domain. Counterpart of hw_ptr::operator hw_vptr<MemoryType, void*>().
func (p Ptr[T, M]) ToVoid() VPtr[M] { return p.vptr }

// Addr returns the raw address, domain tag stripped. See VPtr.Addr.
func (p Ptr[T, M]) Addr() unsafe.Pointer { return p.vptr.addr }

// Domain reports the memory domain, or DomainNone if null.
func (p Ptr[T, M]) Domain() MemoryDomain { return p.vptr.Domain() }

// IsValid reports whether this is a non-null pointer.
func (p Ptr[T, M]) IsValid() bool { return p.vptr.IsValid() }

// Equal compares addresses only, ignoring the domain tag.
func (p Ptr[T, M]) Equal(o Ptr[T, M]) bool { return p.vptr.Equal(o.vptr) }

// Get returns the underlying *T, the member-access point: callers
// write p.Get().Field instead of an overloaded p->Field.
func (p Ptr[T, M]) Get() *T { return (*T)(p.vptr.addr) }

// Deref dereferences the pointer by value.
func (p Ptr[T, M]) Deref() T { return *p.Get() }

// Set stores v through the pointer.
func (p Ptr[T, M]) Set(v T) { *p.Get() = v }

// Add returns a new Ptr advanced by n elements (n may be negative).
// The domain tag M is preserved; a null pointer advanced by any
// amount stays null.
func (p Ptr[T, M]) Add(n int) Ptr[T, M] {
	if p.vptr.addr == nil {
		return p
	}

	var zero T

	size := unsafe.Sizeof(zero)

	return Ptr[T, M]{vptr: VPtr[M]{addr: unsafe.Add(p.vptr.addr, int(size)*n)}}
}

// Inc advances the pointer in place by one element (pre-increment).
func (p *Ptr[T, M]) Inc() { *p = p.Add(1) }

// PostInc advances the pointer in place by one element and returns
// its value before advancing (post-increment).
func (p *Ptr[T, M]) PostInc() Ptr[T, M] {
	prev := *p
	p.Inc()

	return prev
}

// Index returns a pointer to the element n positions past this one,
// the Go counterpart of operator[].
func (p Ptr[T, M]) Index(n int) *T { return p.Add(n).Get() }
