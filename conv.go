package convhook

import (
	"reflect"
	"strconv"
)

// Conv enumerates the calling conventions known to the package. Which of
// them exist depends on the build target, see Supported.
type Conv int

const (
	// ConvGo is the Go internal ABI of the running toolchain.
	ConvGo Conv = iota
	ConvCdecl
	ConvStdcall
	ConvThiscall
	ConvFastcall
	// ConvNative is the platform C convention on 64-bit targets
	// (System V AMD64, Microsoft x64, AAPCS64).
	ConvNative
)

var convNames = [...]string{
	ConvGo:       "go",
	ConvCdecl:    "cdecl",
	ConvStdcall:  "stdcall",
	ConvThiscall: "thiscall",
	ConvFastcall: "fastcall",
	ConvNative:   "native",
}

func (c Conv) String() string {
	if c >= 0 && int(c) < len(convNames) {
		return convNames[c]
	}
	return "conv(" + strconv.Itoa(int(c)) + ")"
}

// Supported reports whether wrappers of convention c can be generated on
// this build target. A convention that is not supported has no marker type
// in the build, so it cannot be named in a hook either.
func (c Conv) Supported() bool {
	return c >= 0 && c < 64 && targetConvs&(1<<uint(c)) != 0
}

// Conventions lists the conventions supported by this build target.
func Conventions() []Conv {
	var out []Conv
	for c := range convNames {
		if Conv(c).Supported() {
			out = append(out, Conv(c))
		}
	}
	return out
}

type dispatchFunc = func(args []reflect.Value) []reflect.Value

// Convention is implemented by the marker types Go, Native, Cdecl and
// Stdcall. Each marker is compiled only where its convention exists.
type Convention interface {
	Conv() Conv

	// check rejects signatures the convention cannot carry.
	check(t reflect.Type) error
	// wrap builds a function with the convention and signature that forwards
	// to dispatch. The returned value must stay reachable for as long as the
	// address is in use.
	wrap(sig Signature, dispatch dispatchFunc) (reflect.Value, Address, error)
	// bind makes the relocated original callable as sig.Type.
	bind(sig Signature, rel relocation) reflect.Value
}

// relocation is where an installer left the original body.
type relocation struct {
	addr Address
	// free stack the body needs on entry, see StackReserver
	stack uintptr
}

// Go is the convention of Go function values.
type Go struct{}

func (Go) Conv() Conv { return ConvGo }

func (Go) check(reflect.Type) error { return nil }

// The wrapper address is the closure, not the code: the patcher has to load
// it into the context register before jumping through it.
func (Go) wrap(sig Signature, dispatch dispatchFunc) (reflect.Value, Address, error) {
	fn := reflect.MakeFunc(sig.Type, dispatch)
	return fn, closureOf(fn), nil
}

func (Go) bind(sig Signature, rel relocation) reflect.Value {
	fn := funcAt(sig.Type, rel.addr)
	if rel.stack == 0 {
		return fn
	}
	need := stackNeed(rel.stack, sig.Type)
	return reflect.MakeFunc(sig.Type, func(args []reflect.Value) []reflect.Value {
		reserveStack(need)
		if sig.Type.IsVariadic() {
			return fn.CallSlice(args)
		}
		return fn.Call(args)
	})
}
