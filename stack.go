package convhook

import (
	"reflect"
)

// callSlack covers the frames reflect and the runtime put between the
// reservation and the entry of a relocated original.
const callSlack = 8 << 10

// stackNeed is what a bound Go original reserves before each call. The GC
// shrinks a stack to half only while less than a quarter is in use, so four
// times the need is still free after a shrink.
func stackNeed(frame uintptr, t reflect.Type) uintptr {
	n := frame + callSlack
	for i := 0; i < t.NumIn(); i++ {
		n += t.In(i).Size()
	}
	for i := 0; i < t.NumOut(); i++ {
		n += t.Out(i).Size()
	}
	return 4 * n
}

// reserveStack makes sure at least n bytes of stack are free below the
// caller. Each level's prologue checks its own frame against the bound, so
// the runtime grows the stack as needed while recursing.
//
//go:noinline
func reserveStack(n uintptr) byte {
	var pad [1 << 10]byte
	if n > uintptr(len(pad)) {
		pad[0] = reserveStack(n - uintptr(len(pad)))
	}
	return pad[n%uintptr(len(pad))]
}
