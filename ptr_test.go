package hwmalloc

import (
	"testing"
	"unsafe"
)

func TestVPtr_NullSemantics(t *testing.T) {
	var null VPtr[Host]

	if null.IsValid() {
		t.Fatal("zero-valued VPtr must be invalid")
	}

	if got := null.Domain(); got != DomainNone {
		t.Fatalf("null VPtr domain = %v, want %v", got, DomainNone)
	}
}

func TestVPtr_DomainTagging(t *testing.T) {
	var x int

	host := NewVPtr[Host](nil)
	if host.Domain() != DomainNone {
		t.Fatalf("nil-addr VPtr[Host] domain = %v, want %v", host.Domain(), DomainNone)
	}

	p := NewPtr[int, Host](&x)
	vp := p.ToVoid()

	if got := vp.Domain(); got != DomainHost {
		t.Fatalf("VPtr[Host] domain = %v, want %v", got, DomainHost)
	}

	d := NewPtr[int, Device](&x)
	if got := d.Domain(); got != DomainDevice {
		t.Fatalf("Ptr[int, Device] domain = %v, want %v", got, DomainDevice)
	}
}

func TestVPtr_EqualComparesAddresses(t *testing.T) {
	var x int

	a := NewVPtr[Host](nil)
	b := NewVPtr[Host](nil)

	if !a.Equal(b) {
		t.Fatal("two null VPtrs of the same domain type must compare equal")
	}

	c := NewVPtr[Host](nil)
	d := NewVPtr[Host](unsafe.Pointer(&x))

	if c.Equal(d) {
		t.Fatal("VPtrs with different addresses must not compare equal")
	}
}

func TestPtr_GetSetDeref(t *testing.T) {
	x := 41

	p := NewPtr[int, Host](&x)
	if p.Deref() != 41 {
		t.Fatalf("deref = %d, want 41", p.Deref())
	}

	p.Set(42)
	if x != 42 {
		t.Fatalf("set did not write through pointer, x = %d", x)
	}

	*p.Get() = 43
	if x != 43 {
		t.Fatalf("get did not return a writable pointer, x = %d", x)
	}
}

func TestPtr_ArithmeticAndIndex(t *testing.T) {
	arr := [4]int{10, 20, 30, 40}

	p := NewPtr[int, Host](&arr[0])

	if *p.Index(2) != 30 {
		t.Fatalf("index(2) = %d, want 30", *p.Index(2))
	}

	advanced := p.Add(3)
	if advanced.Deref() != 40 {
		t.Fatalf("add(3) deref = %d, want 40", advanced.Deref())
	}

	p.Inc()
	if p.Deref() != 20 {
		t.Fatalf("after Inc, deref = %d, want 20", p.Deref())
	}

	prev := p.PostInc()
	if prev.Deref() != 20 {
		t.Fatalf("PostInc returned value = %d, want 20 (pre-increment value)", prev.Deref())
	}

	if p.Deref() != 30 {
		t.Fatalf("after PostInc, deref = %d, want 30", p.Deref())
	}
}

func TestPtr_VoidRoundTrip(t *testing.T) {
	x := 7

	p := NewPtr[int, Host](&x)
	vp := p.ToVoid()

	back := PtrFromVoid[int, Host](vp)
	if back.Deref() != 7 {
		t.Fatalf("round-tripped pointer deref = %d, want 7", back.Deref())
	}

	if !back.Equal(p) {
		t.Fatal("round-tripped pointer must compare equal to the original")
	}
}

func TestPtr_NullAddPreservesNull(t *testing.T) {
	var p Ptr[int, Host]

	if p.Add(5).IsValid() {
		t.Fatal("advancing a null pointer must stay null")
	}
}
