package convhook

import (
	"testing"

	"github.com/pkg/errors"
)

func TestConvString(t *testing.T) {
	tests := []struct {
		c    Conv
		want string
	}{
		{ConvGo, "go"},
		{ConvCdecl, "cdecl"},
		{ConvStdcall, "stdcall"},
		{ConvThiscall, "thiscall"},
		{ConvFastcall, "fastcall"},
		{ConvNative, "native"},
		{Conv(42), "conv(42)"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Conv(%d).String() = %q, want %q", int(tt.c), got, tt.want)
		}
	}
}

func TestConventions(t *testing.T) {
	convs := Conventions()
	if len(convs) == 0 || convs[0] != ConvGo {
		t.Fatalf("Conventions() = %v, want ConvGo first", convs)
	}
	for _, c := range convs {
		if !c.Supported() {
			t.Errorf("%s listed but not supported", c)
		}
	}
	// no Go toolchain target can emit these
	for _, c := range []Conv{ConvThiscall, ConvFastcall, Conv(-1), Conv(99)} {
		if c.Supported() {
			t.Errorf("%s reported as supported", c)
		}
	}
}

func TestSignatureOf(t *testing.T) {
	sig, err := SignatureOf[Go, func(string, ...int) (int, error)]()
	if err != nil {
		t.Fatalf("SignatureOf: %v", err)
	}
	if sig.Conv != ConvGo {
		t.Errorf("Conv = %s, want go", sig.Conv)
	}
	if got := sig.String(); got != "go func(string, ...int) (int, error)" {
		t.Errorf("String() = %q", got)
	}

	if _, err := SignatureOf[Go, int](); !errors.Is(err, ErrInputType) {
		t.Errorf("SignatureOf[Go, int] = %v, want ErrInputType", err)
	}
	if got := (Signature{}).String(); got != "go <nil>" {
		t.Errorf("zero Signature = %q", got)
	}
}

func TestAddress(t *testing.T) {
	var a Address
	if !a.IsNil() {
		t.Error("zero Address is not nil")
	}
	a = 0xdeadbeef
	if a.IsNil() || a.Number() != 0xdeadbeef {
		t.Errorf("Address = %v", a)
	}
	if got := a.String(); got != "0xDEADBEEF" {
		t.Errorf("String() = %q", got)
	}
	if AddressOf(answer).IsNil() {
		t.Error("AddressOf(answer) is nil")
	}
	if got := AddressOf(42); !got.IsNil() {
		t.Errorf("AddressOf(42) = %s", got)
	}
	got, err := AddressFrom(answer)
	if err != nil || got != AddressOf(answer) {
		t.Errorf("AddressFrom(answer) = %s, %v", got, err)
	}
}

func TestFunc(t *testing.T) {
	fn := Func[func(int, int) int](AddressOf(subInts))
	if got := fn(9, 4); got != 5 {
		t.Errorf("Func(subInts)(9, 4) = %d, want 5", got)
	}
	if Func[func()](0) != nil {
		t.Error("Func at nil address is not nil")
	}
	if Func[int](AddressOf(subInts)) != 0 {
		t.Error("Func of non-func type is not zero")
	}
}
