package symtab

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

//go:noinline
func testTarget(a int) int {
	return a * 3
}

func TestLookupMissing(t *testing.T) {
	tab := &Table{syms: map[string]uintptr{"main.main": 0x401000}}
	if v, err := tab.Lookup("main.main"); err != nil || v != 0x401000 {
		t.Errorf("Lookup(main.main) = %#x, %v", v, err)
	}
	if _, err := tab.Lookup("main.nothing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(main.nothing) = %v, want ErrNotFound", err)
	}
	if tab.Len() != 1 {
		t.Errorf("Len = %d", tab.Len())
	}
}

func TestReadSymbolsRejectsGarbage(t *testing.T) {
	name := filepath.Join(t.TempDir(), "garbage")
	if err := os.WriteFile(name, []byte("this is not an object file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSymbols(name); err == nil {
		t.Error("ReadSymbols accepted a text file")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Open of a missing file succeeded")
	}
}

func TestReadSymbolsStripped(t *testing.T) {
	// an ELF header and nothing else: no sections, so no symbols
	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Ehsize:    64,
		Phentsize: 56,
		Shentsize: 64,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		t.Fatal(err)
	}
	name := filepath.Join(t.TempDir(), "stripped")
	if err := os.WriteFile(name, buf.Bytes(), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSymbols(name); !errors.Is(err, ErrNoSymbols) {
		t.Errorf("ReadSymbols(stripped) = %v, want ErrNoSymbols", err)
	}
}
