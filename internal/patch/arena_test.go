//go:build linux || darwin

package patch

import (
	"testing"
)

func TestArenaAlloc(t *testing.T) {
	var a arena
	p1, err := a.alloc(13)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	p2, err := a.alloc(30)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if p1%16 != 0 || p2%16 != 0 {
		t.Errorf("unaligned: %#x, %#x", p1, p2)
	}
	if p2 != p1+16 {
		t.Errorf("second block at %#x, want %#x", p2, p1+16)
	}
	// trampoline memory must be writable right after allocation
	buf := makeSlice(p2, 30)
	for i := range buf {
		buf[i] = byte(i)
	}
	if buf[29] != 29 {
		t.Errorf("write lost: %d", buf[29])
	}

	big, err := a.alloc(int(pageSize) + 1)
	if err != nil {
		t.Fatalf("alloc page+1: %v", err)
	}
	if big%pageSize != 0 {
		t.Errorf("oversized block %#x not page aligned", big)
	}
	if a.end-big < pageSize+1 {
		t.Errorf("chunk too small: %d", a.end-big)
	}
}
