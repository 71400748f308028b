package convhook

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// MaxWordArgs bounds the argument count of C-ABI signatures.
const MaxWordArgs = 15

var wordType = reflect.TypeOf(uintptr(0))

func isWordKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Pointer, reflect.UnsafePointer:
		return t.Size() <= wordType.Size()
	}
	return false
}

func checkWordSignature(t reflect.Type) error {
	if t.IsVariadic() {
		return errors.Wrapf(ErrSignatureUnsupported, "%s is variadic", t)
	}
	if t.NumIn() > MaxWordArgs {
		return errors.Wrapf(ErrSignatureUnsupported, "%s has more than %d arguments", t, MaxWordArgs)
	}
	if t.NumOut() > 1 {
		return errors.Wrapf(ErrSignatureUnsupported, "%s has more than one result", t)
	}
	for i := 0; i < t.NumIn(); i++ {
		if !isWordKind(t.In(i)) {
			return errors.Wrapf(ErrSignatureUnsupported, "argument %d of %s is %s", i, t, t.In(i))
		}
	}
	if t.NumOut() == 1 && !isWordKind(t.Out(0)) {
		return errors.Wrapf(ErrSignatureUnsupported, "result of %s is %s", t, t.Out(0))
	}
	return nil
}

func toWord(v reflect.Value) uintptr {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uintptr(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return uintptr(v.Uint())
	case reflect.Pointer, reflect.UnsafePointer:
		return uintptr(v.UnsafePointer())
	}
	panic("convhook: not a word kind: " + v.Type().String())
}

// fromWord narrows w to t. Signed kinds are sign-extended from their own
// width, so a callee that only set the low half of the register still reads
// back correctly.
func fromWord(w uintptr, t reflect.Type) reflect.Value {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		v.SetBool(uint8(w) != 0)
	case reflect.Int8:
		v.SetInt(int64(int8(w)))
	case reflect.Int16:
		v.SetInt(int64(int16(w)))
	case reflect.Int32:
		v.SetInt(int64(int32(w)))
	case reflect.Int, reflect.Int64:
		v.SetInt(int64(w))
	case reflect.Uint8:
		v.SetUint(uint64(uint8(w)))
	case reflect.Uint16:
		v.SetUint(uint64(uint16(w)))
	case reflect.Uint32:
		v.SetUint(uint64(uint32(w)))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		v.SetUint(uint64(w))
	case reflect.UnsafePointer:
		v.SetPointer(*(*unsafe.Pointer)(unsafe.Pointer(&w)))
	case reflect.Pointer:
		v = reflect.NewAt(t.Elem(), *(*unsafe.Pointer)(unsafe.Pointer(&w))).Convert(t)
	default:
		panic("convhook: not a word kind: " + t.String())
	}
	return v
}

// wordFuncType returns func(uintptr × n) uintptr, the shape accepted by the
// platform callback builders.
func wordFuncType(n int) reflect.Type {
	in := make([]reflect.Type, n)
	for i := range in {
		in[i] = wordType
	}
	return reflect.FuncOf(in, []reflect.Type{wordType}, false)
}

// wordWrapper adapts dispatch to the word shape of sig.
func wordWrapper(sig Signature, dispatch dispatchFunc) reflect.Value {
	t := sig.Type
	return reflect.MakeFunc(wordFuncType(t.NumIn()), func(words []reflect.Value) []reflect.Value {
		args := make([]reflect.Value, len(words))
		for i, w := range words {
			args[i] = fromWord(uintptr(w.Uint()), t.In(i))
		}
		out := dispatch(args)
		var r uintptr
		if len(out) == 1 {
			r = toWord(out[0])
		}
		return []reflect.Value{reflect.ValueOf(r)}
	})
}

// wordInvoker makes a func of sig.Type that passes its arguments as words to
// call and narrows the returned word to the result type.
func wordInvoker(sig Signature, call func(args ...uintptr) uintptr) reflect.Value {
	t := sig.Type
	return reflect.MakeFunc(t, func(args []reflect.Value) []reflect.Value {
		words := make([]uintptr, len(args))
		for i, a := range args {
			words[i] = toWord(a)
		}
		r := call(words...)
		if t.NumOut() == 0 {
			return nil
		}
		return []reflect.Value{fromWord(r, t.Out(0))}
	})
}
