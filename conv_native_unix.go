//go:build (darwin || linux) && (amd64 || arm64)

package convhook

import (
	"reflect"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

const targetConvs = 1<<ConvGo | 1<<ConvNative

// Native is the platform C convention: System V on linux/amd64 and
// darwin/amd64, AAPCS64 on arm64.
type Native struct{}

func (Native) Conv() Conv { return ConvNative }

func (Native) check(t reflect.Type) error { return checkWordSignature(t) }

func (Native) wrap(sig Signature, dispatch dispatchFunc) (fn reflect.Value, addr Address, err error) {
	fn = wordWrapper(sig, dispatch)
	// purego panics once its callback table is full
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("native callback for %s: %v", sig, r)
		}
	}()
	addr = Address(purego.NewCallback(fn.Interface()))
	return fn, addr, nil
}

func (Native) bind(sig Signature, rel relocation) reflect.Value {
	return wordInvoker(sig, func(args ...uintptr) uintptr {
		r1, _, _ := purego.SyscallN(rel.addr.Number(), args...)
		return r1
	})
}
