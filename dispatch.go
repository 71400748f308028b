package convhook

import (
	"reflect"
)

// dispatch is the body every generated wrapper forwards to. It hands the
// hook the bound original and calls whatever the hook returns with the
// wrapper's arguments, so the hook runs exactly once per call and decides
// how often the original runs.
func (r *registration[F]) dispatch(args []reflect.Value) []reflect.Value {
	st := r.state.Load()
	if st == nil {
		panic(&InstallError{Original: r.original, Err: ErrNotInstalled})
	}
	body := reflect.ValueOf(r.hook(st.original))
	if body.IsNil() {
		panic(&InstallError{Original: r.original, Err: ErrNilBody})
	}
	if r.sig.Type.IsVariadic() {
		return body.CallSlice(args)
	}
	return body.Call(args)
}

// callOriginal runs the relocated original directly, bypassing the hook.
func (r *registration[F]) callOriginal() (F, bool) {
	st := r.state.Load()
	if st == nil {
		var zero F
		return zero, false
	}
	return st.original, true
}
