package convhook

import (
	"reflect"
)

// Hook redirects every call of the Go function original to hook. On each
// call hook receives a function bound to the relocated original and returns
// the body that serves the call:
//
//	err := convhook.Hook(add, func(orig func(int, int) int) func(int, int) int {
//		return func(a, b int) int { return 2 * orig(a, b) }
//	})
//
// The registration is keyed by the signature and the address of original,
// so a function can be hooked at most once.
func Hook[F any](original F, hook func(F) F) error {
	return HookIn(Default(), original, hook)
}

// HookIn is Hook on an explicit registry.
func HookIn[F any](r *Registry, original F, hook func(F) F) error {
	if reflect.TypeOf((*F)(nil)).Elem().Kind() != reflect.Func {
		return ErrInputType
	}
	return install[Go, F](r, nil, AddressOf(original), hook)
}

// HookAs hooks original, called with convention C and signature F.
// original may be an Address, uintptr, unsafe.Pointer or func value. The
// registration is keyed by the signature and the resolved address.
func HookAs[C Convention, F any](original any, hook func(F) F) error {
	return HookAsIn[C](Default(), original, hook)
}

// HookAsIn is HookAs on an explicit registry.
func HookAsIn[C Convention, F any](r *Registry, original any, hook func(F) F) error {
	addr, err := AddressFrom(original)
	if err != nil {
		return err
	}
	return install[C, F](r, nil, addr, hook)
}

// HookAt hooks the function at original, called with convention C and
// signature F. The registration is keyed by the signature and Tag, so hooks
// of the same signature on different targets need distinct Tag types.
func HookAt[Tag any, C Convention, F any](original Address, hook func(F) F) error {
	return HookAtIn[Tag, C](Default(), original, hook)
}

// HookAtIn is HookAt on an explicit registry.
func HookAtIn[Tag any, C Convention, F any](r *Registry, original Address, hook func(F) F) error {
	return install[C, F](r, reflect.TypeOf((*Tag)(nil)).Elem(), original, hook)
}

// Original returns the relocated original of a hooked function, callable
// without going through the hook. It reports false when original was not
// hooked with signature F in the default registry.
func Original[F any](original Address) (F, bool) {
	return OriginalIn[F](Default(), original)
}

// OriginalIn is Original on an explicit registry.
func OriginalIn[F any](r *Registry, original Address) (F, bool) {
	r.mu.Lock()
	rec, ok := r.originals[original]
	r.mu.Unlock()
	if !ok {
		var zero F
		return zero, false
	}
	reg, ok := rec.(*registration[F])
	if !ok {
		var zero F
		return zero, false
	}
	return reg.callOriginal()
}
