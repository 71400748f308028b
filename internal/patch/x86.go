// Copyright (C) 2022 K2 Cyber Security Inc.

package patch

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"
)

// scratch is the low three bits of the register the generated stubs clobber.
// It must be dead at function entry for the convention being patched.
type scratch byte

const (
	// R11 is volatile and carries no argument in the C conventions.
	r11 scratch = 3
	// R13 is free at entry under the Go register ABI, where R11 is an
	// argument register and the stack check writes R12.
	r13 scratch = 5
)

const (
	absJumpLen     = 13 // MOV r, imm64; JMP r
	closureJumpLen = 12 // MOV RDX, imm64; JMP [RDX]
	condJumpLen    = 4 + absJumpLen
	// longest instruction (15) starting one byte before the end of the
	// stub, after the longest stack check (26)
	decodeWindow = 64
	// stack the Go runtime leaves below the guard for small frames
	stackSmall = 128
)

func (s scratch) regs() [4]x86asm.Reg {
	if s == r13 {
		return [4]x86asm.Reg{x86asm.R13, x86asm.R13L, x86asm.R13W, x86asm.R13B}
	}
	return [4]x86asm.Reg{x86asm.R11, x86asm.R11L, x86asm.R11W, x86asm.R11B}
}

func movImm(s scratch, addr uintptr) []byte {
	seq := []byte{0x49, 0xb8 + byte(s), 0, 0, 0, 0, 0, 0, 0, 0}
	binary.LittleEndian.PutUint64(seq[2:], uint64(addr))
	return seq
}

// absJump encodes MOV r, addr; JMP r.
func absJump(s scratch, addr uintptr) []byte {
	return append(movImm(s, addr), 0x41, 0xff, 0xe0+byte(s))
}

// absCall encodes MOV r, addr; CALL r.
func absCall(s scratch, addr uintptr) []byte {
	return append(movImm(s, addr), 0x41, 0xff, 0xd0+byte(s))
}

// closureJump encodes MOV RDX, closure; JMP [RDX], which enters a Go func
// value with its context register set.
func closureJump(closure uintptr) []byte {
	seq := []byte{0x48, 0xba, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0x22}
	binary.LittleEndian.PutUint64(seq[2:], uint64(closure))
	return seq
}

// condJump encodes Jcc target as
//
//	Jcc  +2
//	JMP  +13
//	MOV  r, target
//	JMP  r
func condJump(s scratch, cc byte, target uintptr) []byte {
	seq := []byte{0x70 | cc, 0x02, 0xeb, absJumpLen}
	return append(seq, absJump(s, target)...)
}

// condCode extracts the condition nibble of a short or near Jcc.
func condCode(raw []byte) (byte, bool) {
	for len(raw) > 0 && (raw[0] == 0x2e || raw[0] == 0x3e) {
		raw = raw[1:] // branch hints
	}
	switch {
	case len(raw) >= 2 && raw[0] >= 0x70 && raw[0] <= 0x7f:
		return raw[0] & 0x0f, true
	case len(raw) >= 6 && raw[0] == 0x0f && raw[1] >= 0x80 && raw[1] <= 0x8f:
		return raw[1] & 0x0f, true
	}
	return 0, false
}

// isTrap matches INT3 and UD2, which compilers put after the last return.
func isTrap(raw []byte) bool {
	return raw[0] == 0xcc || (len(raw) >= 2 && raw[0] == 0x0f && raw[1] == 0x0b)
}

func ripRelative(inst x86asm.Inst) bool {
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		if mem, ok := a.(x86asm.Mem); ok && mem.Base == x86asm.RIP {
			return true
		}
	}
	return false
}

// readsStackGuard matches CMP r, [R14+16], the comparison of a Go prologue
// against g.stackguard0.
func readsStackGuard(inst x86asm.Inst) bool {
	if inst.Op != x86asm.CMP {
		return false
	}
	mem, ok := inst.Args[1].(x86asm.Mem)
	return ok && mem.Base == x86asm.R14 && mem.Index == 0 && int32(mem.Disp) == 16
}

// stackCheck returns the length of the Go stack bound check that starts src
// and a bound on the frame it guards, or zero when there is none. The
// compiler emits one of
//
//	CMP RSP, [R14+16]; JBE more
//	LEA R12, [RSP-x]; CMP R12, [R14+16]; JBE more
//	MOV R12, RSP; SUB R12, x; JB more; CMP R12, [R14+16]; JBE more
func stackCheck(src []byte) (int, uintptr) {
	var (
		n     int
		frame uintptr = stackSmall
		cmp   bool
	)
	for i := 0; i < 5 && n < len(src); i++ {
		inst, err := x86asm.Decode(src[n:], 64)
		if err != nil {
			return 0, 0
		}
		n += inst.Len
		switch inst.Op {
		case x86asm.LEA:
			mem, ok := inst.Args[1].(x86asm.Mem)
			if inst.Args[0] != x86asm.R12 || !ok || mem.Base != x86asm.RSP || int32(mem.Disp) > 0 {
				return 0, 0
			}
			frame += uintptr(-int64(int32(mem.Disp)))
		case x86asm.MOV:
			if inst.Args[0] != x86asm.R12 || inst.Args[1] != x86asm.RSP {
				return 0, 0
			}
		case x86asm.SUB:
			imm, ok := inst.Args[1].(x86asm.Imm)
			if inst.Args[0] != x86asm.R12 || !ok || int32(imm) < 0 {
				return 0, 0
			}
			frame += uintptr(int32(imm))
		case x86asm.JB:
			if cmp {
				return 0, 0
			}
		case x86asm.CMP:
			if !readsStackGuard(inst) {
				return 0, 0
			}
			cmp = true
		case x86asm.JBE:
			if !cmp {
				return 0, 0
			}
			return n, frame
		default:
			return 0, 0
		}
	}
	return 0, 0
}

func writesScratch(inst x86asm.Inst, s scratch) bool {
	if inst.Args[0] == nil {
		return false
	}
	if inst.Op == x86asm.CMP || inst.Op == x86asm.TEST || inst.Op == x86asm.PUSH {
		return false
	}
	for _, r := range s.regs() {
		if inst.Args[0] == r {
			return true
		}
		if inst.Op == x86asm.XCHG && inst.Args[1] == r {
			return true
		}
	}
	return false
}

// relocate decodes whole instructions from src, which lives at pc, until at
// least size bytes are covered. It returns position-independent code with the
// same effect and the number of source bytes consumed. Relative branches are
// rewritten into absolute ones through s; anything else that depends on its
// own address is refused.
func relocate(src []byte, pc uintptr, size int, s scratch) ([]byte, int, error) {
	var (
		out     []byte
		targets []uintptr
		n       int
	)
	for n < size {
		if n >= len(src) {
			return nil, 0, errors.Wrapf(ErrTooShort, "prologue at %#x", pc)
		}
		inst, err := x86asm.Decode(src[n:], 64)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "decode at %#x", pc+uintptr(n))
		}
		raw := src[n : n+inst.Len]
		next := pc + uintptr(n+inst.Len)
		switch {
		case inst.Op == x86asm.RET || isTrap(raw):
			return nil, 0, errors.Wrapf(ErrTooShort, "%s at %#x", inst.Op, pc+uintptr(n))
		case ripRelative(inst):
			return nil, 0, errors.Wrapf(ErrRelativeAddr, "%s at %#x", inst, pc+uintptr(n))
		case writesScratch(inst, s):
			return nil, 0, errors.Wrapf(ErrScratchLive, "%s at %#x", inst, pc+uintptr(n))
		case readsStackGuard(inst):
			return nil, 0, errors.Wrapf(ErrStackCheck, "%s at %#x", inst, pc+uintptr(n))
		}
		rel, ok := inst.Args[0].(x86asm.Rel)
		if !ok {
			out = append(out, raw...)
			n += inst.Len
			continue
		}
		target := next + uintptr(int64(rel))
		targets = append(targets, target)
		switch inst.Op {
		case x86asm.JMP:
			out = append(out, absJump(s, target)...)
		case x86asm.CALL:
			out = append(out, absCall(s, target)...)
		default:
			cc, ok := condCode(raw)
			if !ok {
				return nil, 0, errors.Wrapf(ErrRelativeAddr, "%s at %#x", inst, pc+uintptr(n))
			}
			out = append(out, condJump(s, cc, target)...)
		}
		n += inst.Len
	}
	// a branch back into the overwritten bytes would land in the stub
	for _, t := range targets {
		if t >= pc && t < pc+uintptr(n) {
			return nil, 0, errors.Wrapf(ErrRelativeAddr, "branch into prologue at %#x", t)
		}
	}
	return out, n, nil
}

// trampoline returns the relocated prologue of the function at pc followed
// by a jump to the rest of its body. With skipCheck a leading Go stack check
// is left out of the copy: its failure path re-enters the function at pc,
// which is the patched entry. The caller of the trampoline then has to
// provide the returned frame bound of stack itself.
func trampoline(src []byte, pc uintptr, size int, s scratch, skipCheck bool) ([]byte, int, uintptr, error) {
	var (
		skip  int
		frame uintptr
	)
	if skipCheck {
		skip, frame = stackCheck(src)
	}
	code, n, err := relocate(src[skip:], pc+uintptr(skip), size-skip, s)
	if err != nil {
		return nil, 0, 0, err
	}
	n += skip
	return append(code, absJump(s, pc+uintptr(n))...), n, frame, nil
}
