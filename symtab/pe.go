package symtab

import (
	"debug/pe"
	"io"
)

type peFile struct {
	pe *pe.File
}

func openPE(r io.ReaderAt) (rawFile, error) {
	f, err := pe.NewFile(r)
	if err != nil {
		return nil, err
	}
	return &peFile{f}, nil
}

// Symbols returns image-based addresses: PE symbol values are relative to
// their section.
func (f *peFile) Symbols() (map[string]uintptr, error) {
	off := make(map[string]uintptr)
	var base uint64
	switch h := f.pe.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		base = uint64(h.ImageBase)
	case *pe.OptionalHeader64:
		base = h.ImageBase
	}
	for _, s := range f.pe.Symbols {
		if s.SectionNumber <= 0 || int(s.SectionNumber) > len(f.pe.Sections) {
			continue
		}
		sect := f.pe.Sections[s.SectionNumber-1]
		off[s.Name] = uintptr(base + uint64(sect.VirtualAddress) + uint64(s.Value))
	}
	return off, nil
}
