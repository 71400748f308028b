package convhook

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// Address is an opaque code address in the current process.
type Address uintptr

// IsNil reports whether a is the zero address.
func (a Address) IsNil() bool {
	return a == 0
}

// Number returns a as a plain integer.
func (a Address) Number() uintptr {
	return uintptr(a)
}

func (a Address) String() string {
	return fmt.Sprintf("0x%X", uintptr(a))
}

// AddressFrom converts a raw address value into an Address. Accepted kinds
// are Address, uintptr, unsafe.Pointer and func values, for which the
// entry point of the function is used.
func AddressFrom(v any) (Address, error) {
	switch x := v.(type) {
	case nil:
		return 0, ErrNilAddress
	case Address:
		return x, nil
	case uintptr:
		return Address(x), nil
	case unsafe.Pointer:
		return Address(x), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func {
		return 0, errors.Wrapf(ErrInputType, "%T is not an address", v)
	}
	if rv.IsNil() {
		return 0, ErrNilAddress
	}
	return Address(rv.Pointer()), nil
}

// AddressOf returns the entry point of a Go function value, or zero when fn
// is not a non-nil func.
func AddressOf[F any](fn F) Address {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return 0
	}
	return Address(rv.Pointer())
}

// Func reinterprets code as a Go-ABI function of type F. Nothing checks
// that the code at that address actually has this signature.
func Func[F any](code Address) F {
	var fn F
	if code.IsNil() || reflect.TypeOf(fn) == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		return fn
	}
	return funcAt(reflect.TypeOf(fn), code).Interface().(F)
}

type eface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

type funcval struct {
	fn uintptr
	// variable-size, fn-specific data here
}

// closureOf returns the funcval pointer behind a func value.
func closureOf(fn reflect.Value) Address {
	i := fn.Interface()
	e := (*eface)(unsafe.Pointer(&i))
	return Address(e.data)
}

// funcAt builds a func value of type t whose funcval points at code. This
// and closureAt are the only places where an address is turned into a
// callable; the signature is trusted, not verified.
func funcAt(t reflect.Type, code Address) reflect.Value {
	f := &funcval{fn: uintptr(code)}
	v := reflect.New(t).Elem()
	*(*unsafe.Pointer)(v.Addr().UnsafePointer()) = unsafe.Pointer(f)
	return v
}

// closureAt reinterprets a live funcval pointer as a func value of type t.
func closureAt(t reflect.Type, closure Address) reflect.Value {
	v := reflect.New(t).Elem()
	*(*unsafe.Pointer)(v.Addr().UnsafePointer()) = *(*unsafe.Pointer)(unsafe.Pointer(&closure))
	return v
}
