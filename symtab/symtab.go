// Package symtab reads symbol tables of ELF, Mach-O and PE files and maps
// symbols of the running executable to their load addresses, for hooks whose
// original is only known by name.
package symtab

import (
	"io"
	"os"
	"reflect"

	"github.com/pkg/errors"

	"github.com/k2io/convhook"
)

var (
	// ErrNotFound means the symbol is not in the table.
	ErrNotFound = errors.New("symbol not found")
	// ErrNoSymbols means the file carries no symbol table, as a stripped
	// executable does.
	ErrNoSymbols = errors.New("no symbol table")
)

type rawFile interface {
	Symbols() (map[string]uintptr, error)
}

var objType = []func(io.ReaderAt) (rawFile, error){
	openElf,
	openMacho,
	openPE,
}

// Table holds the link-time values of the symbols of one object file.
type Table struct {
	syms map[string]uintptr
}

// Open reads the symbol table of the object file name.
func Open(name string) (*Table, error) {
	syms, err := ReadSymbols(name)
	if err != nil {
		return nil, err
	}
	return &Table{syms: syms}, nil
}

// ReadSymbols returns the link-time value of every symbol in name.
func ReadSymbols(name string) (map[string]uintptr, error) {
	r, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	for _, try := range objType {
		if raw, err := try(r); err == nil {
			syms, err := raw.Symbols()
			if err != nil {
				return nil, errors.Wrapf(err, "read %s", name)
			}
			if len(syms) == 0 {
				return nil, errors.Wrap(ErrNoSymbols, name)
			}
			return syms, nil
		}
	}
	return nil, errors.Errorf("open %s: unrecognized object file", name)
}

// Lookup returns the link-time value of name.
func (t *Table) Lookup(name string) (uintptr, error) {
	v, ok := t.syms[name]
	if !ok {
		return 0, errors.Wrap(ErrNotFound, name)
	}
	return v, nil
}

// Len returns the number of symbols.
func (t *Table) Len() int {
	return len(t.syms)
}

//go:noinline
func anchor() {}

const anchorName = "github.com/k2io/convhook/symtab.anchor"

// Self resolves name in the running executable. The load bias of a
// position-independent executable is taken from the distance between where
// anchor was linked and where it runs. A stripped executable fails with
// ErrNoSymbols.
func Self(name string) (convhook.Address, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}
	t, err := Open(exe)
	if err != nil {
		return 0, err
	}
	linked, err := t.Lookup(anchorName)
	if err != nil {
		return 0, errors.Wrap(ErrNoSymbols, exe)
	}
	v, err := t.Lookup(name)
	if err != nil {
		return 0, err
	}
	bias := reflect.ValueOf(anchor).Pointer() - linked
	return convhook.Address(v + bias), nil
}
