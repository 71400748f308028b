// Copyright (C) 2022 K2 Cyber Security Inc.

/*
Package patch rewrites the entry of a function in the running process.

How it is done:

ORIGINAL FUNCTION (target)
  - its first instructions are replaced with an absolute jump to the
    destination

TRAMPOLINE
  - holds the overwritten instructions, relocated so that relative branches
    still reach their targets
  - ends with a jump back to the first untouched instruction of the original
  - calling it behaves like calling the original before the patch
  - for a Go function the stack bound check is left out, since growing the
    stack would restart the function at its patched entry; the caller must
    have Trampoline.Stack bytes of stack instead

A destination of kind Closure is a Go func value: the stub loads it into
RDX and jumps through its code pointer, as the Go ABI expects. A destination
of kind Code is entered directly.

Limitations: amd64 only; prologues with RIP-relative operands cannot be
moved.
*/
package patch

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrRelativeAddr means the prologue cannot be moved
	ErrRelativeAddr = errors.New("relative address in instruction")
	// ErrTooShort means the function ends before the stub fits
	ErrTooShort = errors.New("function too short to patch")
	// ErrScratchLive means the prologue writes the stub's scratch register
	ErrScratchLive = errors.New("scratch register used in prologue")
	// ErrStackCheck means a stack bound check sits past the function entry
	ErrStackCheck = errors.New("stack check inside prologue")
	// ErrUnsupported means the target architecture cannot be patched
	ErrUnsupported = errors.New("patching unsupported on this target")
)

// Kind tells how the destination is entered.
type Kind int

const (
	// Code is a plain entry point.
	Code Kind = iota
	// Closure is a Go func value (funcval pointer).
	Closure
)

func (k Kind) String() string {
	if k == Closure {
		return "closure"
	}
	return "code"
}

// Trampoline is the relocated entry of a patched function.
type Trampoline struct {
	Addr uintptr
	// Stack is the number of bytes of free stack a caller must have before
	// entering Addr, zero when the trampoline checks for itself.
	Stack uintptr
}

// Patcher installs entry stubs. Trampolines it allocates are never freed.
type Patcher struct {
	mu    sync.Mutex
	log   *zap.Logger
	arena arena
}

// Option configures a Patcher.
type Option func(*Patcher)

// WithLogger sets the logger used to trace patches.
func WithLogger(l *zap.Logger) Option {
	return func(p *Patcher) {
		if l != nil {
			p.log = l
		}
	}
}

// New returns a Patcher.
func New(opts ...Option) *Patcher {
	p := &Patcher{log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func makeSlice(addr, size uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

// stub returns the entry stub for dest and the scratch register the
// trampoline may clobber under the matching convention.
func stub(dest uintptr, kind Kind) ([]byte, scratch) {
	if kind == Closure {
		return closureJump(dest), r13
	}
	return absJump(r11, dest), r11
}

// Patch redirects target to dest and returns the trampoline that runs the
// original body.
func (p *Patcher) Patch(target, dest uintptr, kind Kind) (Trampoline, error) {
	if !supported {
		return Trampoline{}, ErrUnsupported
	}
	if target == 0 || dest == 0 {
		return Trampoline{}, errors.New("patch: nil address")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	log := p.log.With(zap.Uintptr("target", target), zap.Uintptr("dest", dest), zap.Stringer("kind", kind))
	entry, s := stub(dest, kind)
	code, n, frame, err := trampoline(makeSlice(target, decodeWindow), target, len(entry), s, kind == Closure)
	if err != nil {
		log.Debug("cannot relocate prologue", zap.Error(err))
		return Trampoline{}, err
	}
	tramp, err := p.arena.alloc(len(code))
	if err != nil {
		return Trampoline{}, errors.Wrap(err, "allocate trampoline")
	}
	copy(makeSlice(tramp, uintptr(len(code))), code)

	old, err := protectPages(target, uintptr(n))
	if err != nil {
		return Trampoline{}, errors.Wrapf(err, "unprotect %#x", target)
	}
	dst := makeSlice(target, uintptr(n))
	copy(dst, entry)
	for i := len(entry); i < n; i++ {
		dst[i] = 0xcc
	}
	if err := reProtectPages(target, uintptr(n), old); err != nil {
		return Trampoline{}, errors.Wrapf(err, "reprotect %#x", target)
	}
	log.Debug("patched", zap.Int("prologue", n), zap.Uintptr("trampoline", tramp), zap.Uintptr("stack", frame))
	return Trampoline{Addr: tramp, Stack: frame}, nil
}
