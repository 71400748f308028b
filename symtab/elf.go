package symtab

import (
	"debug/elf"
	"io"
)

type elfFile struct {
	elf *elf.File
}

func openElf(r io.ReaderAt) (rawFile, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	return &elfFile{f}, nil
}

func (e *elfFile) Symbols() (map[string]uintptr, error) {
	elfSyms, err := e.elf.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, err
	}
	// dynamic symbols only carry what the static table lacks
	dynSyms, _ := e.elf.DynamicSymbols()
	off := make(map[string]uintptr, len(elfSyms)+len(dynSyms))
	for _, s := range dynSyms {
		if s.Value != 0 {
			off[s.Name] = uintptr(s.Value)
		}
	}
	for _, s := range elfSyms {
		if s.Value != 0 {
			off[s.Name] = uintptr(s.Value)
		}
	}
	return off, nil
}
