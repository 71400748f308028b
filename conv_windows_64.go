//go:build windows && (amd64 || arm64)

package convhook

import (
	"reflect"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

const targetConvs = 1<<ConvGo | 1<<ConvNative

// Native is the Microsoft x64 (or ARM64) convention. Every C convention
// collapses into it on 64-bit Windows.
type Native struct{}

func (Native) Conv() Conv { return ConvNative }

func (Native) check(t reflect.Type) error { return checkWordSignature(t) }

func (Native) wrap(sig Signature, dispatch dispatchFunc) (fn reflect.Value, addr Address, err error) {
	fn = wordWrapper(sig, dispatch)
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("native callback for %s: %v", sig, r)
		}
	}()
	addr = Address(windows.NewCallback(fn.Interface()))
	return fn, addr, nil
}

func (Native) bind(sig Signature, rel relocation) reflect.Value {
	return wordInvoker(sig, func(args ...uintptr) uintptr {
		r1, _, _ := syscall.SyscallN(rel.addr.Number(), args...)
		return r1
	})
}
