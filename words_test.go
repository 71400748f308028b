package convhook

import (
	"reflect"
	"strings"
	"testing"
	"unsafe"

	"github.com/pkg/errors"
)

func TestFromWordSignExtends(t *testing.T) {
	tests := []struct {
		w    uintptr
		typ  reflect.Type
		want any
	}{
		{0xff, reflect.TypeOf(int8(0)), int8(-1)},
		{0xfffe, reflect.TypeOf(int16(0)), int16(-2)},
		{0xffffffff, reflect.TypeOf(int32(0)), int32(-1)},
		{0xffffffff, reflect.TypeOf(uint32(0)), uint32(0xffffffff)},
		{0x100, reflect.TypeOf(uint8(0)), uint8(0)},
		{0x100, reflect.TypeOf(false), false},
		{0x101, reflect.TypeOf(false), true},
		{7, reflect.TypeOf(uintptr(0)), uintptr(7)},
	}
	for _, tt := range tests {
		got := fromWord(tt.w, tt.typ).Interface()
		if got != tt.want {
			t.Errorf("fromWord(%#x, %s) = %v, want %v", tt.w, tt.typ, got, tt.want)
		}
	}
}

func TestToWord(t *testing.T) {
	x := 5
	tests := []struct {
		v    any
		want uintptr
	}{
		{true, 1},
		{false, 0},
		{int32(-1), ^uintptr(0)},
		{uint16(0xbeef), 0xbeef},
		{&x, uintptr(unsafe.Pointer(&x))},
	}
	for _, tt := range tests {
		if got := toWord(reflect.ValueOf(tt.v)); got != tt.want {
			t.Errorf("toWord(%v) = %#x, want %#x", tt.v, got, tt.want)
		}
	}
}

func TestPointerRoundTrip(t *testing.T) {
	type node struct{ v int }
	n := &node{v: 9}
	typ := reflect.TypeOf(n)
	back := fromWord(toWord(reflect.ValueOf(n)), typ).Interface().(*node)
	if back != n {
		t.Fatalf("pointer changed: %p != %p", back, n)
	}
}

func TestCheckWordSignature(t *testing.T) {
	tests := []struct {
		fn   any
		want string
	}{
		{func() {}, ""},
		{func(int32, uintptr, *byte, bool) int32 { return 0 }, ""},
		{func(unsafe.Pointer) unsafe.Pointer { return nil }, ""},
		{func(string) {}, "argument 0"},
		{func(float64) {}, "argument 0"},
		{func() (int, int) { return 0, 0 }, "more than one result"},
		{func(...int) {}, "variadic"},
		{func(int, int, int, int, int, int, int, int, int, int, int, int, int, int, int, int) {}, "more than 15"},
		{func() []byte { return nil }, "result"},
	}
	for _, tt := range tests {
		err := checkWordSignature(reflect.TypeOf(tt.fn))
		switch {
		case tt.want == "" && err != nil:
			t.Errorf("%T: unexpected error %v", tt.fn, err)
		case tt.want != "" && !errors.Is(err, ErrSignatureUnsupported):
			t.Errorf("%T: error %v, want ErrSignatureUnsupported", tt.fn, err)
		case tt.want != "" && !strings.Contains(err.Error(), tt.want):
			t.Errorf("%T: error %q does not mention %q", tt.fn, err, tt.want)
		}
	}
}

// The word wrapper and invoker are the two halves of a C-ABI crossing;
// chaining them in Go checks the marshalling without a native call.
func TestWordWrapperInvoker(t *testing.T) {
	type fn = func(int8, uint16, int32, bool) int32
	sig := Signature{Type: reflect.TypeOf(fn(nil)), Conv: ConvNative}
	var seen []any
	wrapper := wordWrapper(sig, func(args []reflect.Value) []reflect.Value {
		for _, a := range args {
			seen = append(seen, a.Interface())
		}
		sum := int32(args[0].Int()) + int32(args[1].Uint()) + int32(args[2].Int())
		if args[3].Bool() {
			sum = -sum
		}
		return []reflect.Value{reflect.ValueOf(sum)}
	})
	if wrapper.Type() != wordFuncType(4) {
		t.Fatalf("wrapper type %s", wrapper.Type())
	}
	invoke := wordInvoker(sig, func(words ...uintptr) uintptr {
		in := make([]reflect.Value, len(words))
		for i, w := range words {
			in[i] = reflect.ValueOf(w)
		}
		return uintptr(wrapper.Call(in)[0].Uint())
	}).Interface().(fn)

	if got := invoke(-3, 10, 100, true); got != -107 {
		t.Errorf("invoke = %d, want -107", got)
	}
	want := []any{int8(-3), uint16(10), int32(100), true}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("wrapper saw %v, want %v", seen, want)
	}
}

func TestWordInvokerVoid(t *testing.T) {
	sig := Signature{Type: reflect.TypeOf(func(uintptr) {}), Conv: ConvNative}
	var got uintptr
	invoke := wordInvoker(sig, func(words ...uintptr) uintptr {
		got = words[0]
		return 0xdead
	}).Interface().(func(uintptr))
	invoke(77)
	if got != 77 {
		t.Errorf("call saw %d, want 77", got)
	}
}
