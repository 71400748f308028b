package symtab

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestSelf(t *testing.T) {
	addr, err := Self("github.com/k2io/convhook/symtab.testTarget")
	if errors.Is(err, ErrNoSymbols) {
		t.Skipf("test binary is stripped: %v", err)
	}
	if err != nil {
		t.Fatalf("Self: %v", err)
	}
	if want := reflect.ValueOf(testTarget).Pointer(); addr.Number() != want {
		t.Errorf("Self(testTarget) = %s, want %#x", addr, want)
	}
	if _, err := Self("github.com/k2io/convhook/symtab.noSuchFunc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Self(noSuchFunc) = %v, want ErrNotFound", err)
	}
}
