package symtab

import (
	"debug/macho"
	"io"
	"strings"
)

type machoFile struct {
	macho *macho.File
}

func openMacho(r io.ReaderAt) (rawFile, error) {
	f, err := macho.NewFile(r)
	if err != nil {
		return nil, err
	}
	return &machoFile{f}, nil
}

func (f *machoFile) Symbols() (map[string]uintptr, error) {
	off := make(map[string]uintptr)
	if f.macho.Symtab == nil {
		return off, nil
	}
	for _, s := range f.macho.Symtab.Syms {
		if s.Value == 0 {
			continue
		}
		// C symbols carry a leading underscore
		off[strings.TrimPrefix(s.Name, "_")] = uintptr(s.Value)
	}
	return off, nil
}
