//go:build windows && 386

package convhook

import (
	"reflect"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

const targetConvs = 1<<ConvGo | 1<<ConvCdecl | 1<<ConvStdcall

// Cdecl is the caller-cleanup x86 convention.
type Cdecl struct{}

// Stdcall is the callee-cleanup x86 convention used by the Win32 API.
type Stdcall struct{}

func (Cdecl) Conv() Conv   { return ConvCdecl }
func (Stdcall) Conv() Conv { return ConvStdcall }

func (Cdecl) check(t reflect.Type) error   { return checkWordSignature(t) }
func (Stdcall) check(t reflect.Type) error { return checkWordSignature(t) }

func (Cdecl) wrap(sig Signature, dispatch dispatchFunc) (reflect.Value, Address, error) {
	return newCallback(sig, dispatch, windows.NewCallbackCDecl)
}

func (Stdcall) wrap(sig Signature, dispatch dispatchFunc) (reflect.Value, Address, error) {
	return newCallback(sig, dispatch, windows.NewCallback)
}

// SyscallN restores the stack pointer after the call, so the same path
// serves both cleanup disciplines.
func (Cdecl) bind(sig Signature, rel relocation) reflect.Value {
	return syscallInvoker(sig, rel.addr)
}

func (Stdcall) bind(sig Signature, rel relocation) reflect.Value {
	return syscallInvoker(sig, rel.addr)
}

func newCallback(sig Signature, dispatch dispatchFunc, cb func(any) uintptr) (fn reflect.Value, addr Address, err error) {
	fn = wordWrapper(sig, dispatch)
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("%s callback for %s: %v", sig.Conv, sig, r)
		}
	}()
	addr = Address(cb(fn.Interface()))
	return fn, addr, nil
}

func syscallInvoker(sig Signature, relocated Address) reflect.Value {
	return wordInvoker(sig, func(args ...uintptr) uintptr {
		r1, _, _ := syscall.SyscallN(relocated.Number(), args...)
		return r1
	})
}
