package patch

import (
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestPatchNilAddress(t *testing.T) {
	p := New(WithLogger(zaptest.NewLogger(t)))
	if _, err := p.Patch(0, 0x1000, Code); err == nil {
		t.Error("nil target patched")
	}
	if _, err := p.Patch(0x1000, 0, Closure); err == nil {
		t.Error("nil destination patched")
	}
}

func TestPatchUnsupported(t *testing.T) {
	if supported {
		t.Skip("target can be patched")
	}
	if _, err := New().Patch(0x1000, 0x2000, Code); err != ErrUnsupported {
		t.Errorf("Patch = %v, want ErrUnsupported", err)
	}
}
