// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/internal/bits"
	"github.com/smgtools/kamek/internal/pan"
	"github.com/smgtools/kamek/patch"
)

const segmentPadding = 4 // PowerPC instruction size.

// ReadObject parses a 32-bit big-endian PowerPC ELF relocatable object.
// Errors are Malformed patch errors.
func ReadObject(name string, data []byte) (m *patch.Module, err error) {
	defer func() {
		if err = pan.Error(recover()); err != nil {
			m = nil
			if errors.KindOf(err) == 0 {
				err = errors.Wrap(errors.Malformed, err, name)
			}
		}
	}()

	m = readObject(name, data)
	return
}

func malformed(format string, args ...interface{}) {
	pan.Panic(errors.Errorf(errors.Malformed, format, args...))
}

// objectSymbol is an ELF symbol resolved to a relocation target.
type objectSymbol struct {
	target  patch.Target
	invalid string // Reason why the symbol can't be referenced.
}

func readObject(name string, data []byte) *patch.Module {
	f, err := elf.NewFile(bytes.NewReader(data))
	pan.Check(err)

	switch {
	case f.Class != elf.ELFCLASS32:
		malformed("%s: ELF has class %s, expected ELFCLASS32", name, f.Class)

	case f.Data != elf.ELFDATA2MSB:
		malformed("%s: ELF has data %s, expected ELFDATA2MSB", name, f.Data)

	case f.Type != elf.ET_REL:
		malformed("%s: ELF has type %s, expected ET_REL", name, f.Type)

	case f.Machine != elf.EM_PPC:
		malformed("%s: ELF has machine %s, expected EM_PPC", name, f.Machine)
	}

	m := &patch.Module{Name: name}

	// Section index -> segment index (-1 if not loaded).
	segIndex := make([]int, len(f.Sections))

	for i, s := range f.Sections {
		segIndex[i] = -1

		if s.Flags&elf.SHF_ALLOC == 0 || s.Size == 0 {
			continue
		}

		var content []byte
		switch s.Type {
		case elf.SHT_PROGBITS, elf.SHT_INIT_ARRAY, elf.SHT_FINI_ARRAY, elf.SHT_PREINIT_ARRAY:
			content, err = s.Data()
			if err != nil {
				malformed("%s: section %q: %v", name, s.Name, err)
			}

		case elf.SHT_NOBITS:
			if s.Size > 1<<28 {
				malformed("%s: section %q is too large", name, s.Name)
			}
			content = make([]byte, s.Size)

		default:
			malformed("%s: allocated section %q has unsupported type %s", name, s.Name, s.Type)
		}

		align := uint32(1)
		if s.Addralign > 1 {
			if s.Addralign > 1<<16 || !bits.Pow2(s.Addralign) {
				malformed("%s: section %q has invalid alignment %d", name, s.Name, s.Addralign)
			}
			align = uint32(s.Addralign)
		}

		if n := bits.Align(len(content), segmentPadding); n != len(content) {
			content = append(content, make([]byte, n-len(content))...)
		}

		segIndex[i] = len(m.Segments)
		m.Segments = append(m.Segments, patch.Segment{
			Name:  s.Name,
			Align: align,
			Data:  content,
		})
	}

	layout := m.Layout()

	syms, err := f.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		malformed("%s: symbol table: %v", name, err)
	}

	// Symbol table index 0 is the null symbol; f.Symbols omits it.
	objSyms := make([]objectSymbol, len(syms)+1)

	for i, sym := range syms {
		objSyms[i+1] = resolveSymbol(m, sym, segIndex, layout)
	}

	for _, s := range f.Sections {
		switch s.Type {
		case elf.SHT_RELA:
			if int(s.Info) >= len(f.Sections) {
				malformed("%s: relocation section %q refers to invalid section", name, s.Name)
			}
			seg := segIndex[s.Info]
			if seg < 0 {
				continue // Relocations of debug information etc.
			}
			readRelocations(m, name, s, seg, objSyms)

		case elf.SHT_REL:
			malformed("%s: unsupported relocation section type %s", name, s.Type)
		}
	}

	return m
}

func resolveSymbol(m *patch.Module, sym elf.Symbol, segIndex []int, layout []uint32) (s objectSymbol) {
	bind := elf.ST_BIND(sym.Info)
	typ := elf.ST_TYPE(sym.Info)
	global := bind == elf.STB_GLOBAL || bind == elf.STB_WEAK

	switch {
	case sym.Section == elf.SHN_UNDEF:
		if sym.Name == "" {
			s.invalid = "undefined symbol without name"
		} else {
			s.target = patch.SymbolTarget(sym.Name)
		}

	case sym.Section == elf.SHN_ABS:
		s.target = patch.AddressTarget(uint32(sym.Value))

	case sym.Section == elf.SHN_COMMON:
		s.invalid = fmt.Sprintf("common symbol %q is not supported", sym.Name)

	case int(sym.Section) < len(segIndex) && segIndex[sym.Section] >= 0:
		offset := layout[segIndex[sym.Section]] + uint32(sym.Value)

		if global && sym.Name != "" && typ != elf.STT_SECTION && typ != elf.STT_FILE {
			m.Exports = append(m.Exports, patch.Export{Name: sym.Name, Offset: offset})
			s.target = patch.SymbolTarget(sym.Name)
		} else {
			s.target = patch.LocalTarget(offset)
		}

	default:
		s.invalid = fmt.Sprintf("symbol %q is not in a loaded section", sym.Name)
	}

	return
}

func readRelocations(m *patch.Module, name string, s *elf.Section, seg int, syms []objectSymbol) {
	data, err := s.Data()
	if err != nil {
		malformed("%s: section %q: %v", name, s.Name, err)
	}
	if len(data)%12 != 0 {
		malformed("%s: RELA section %q length is not a multiple of 12", name, s.Name)
	}

	r := bytes.NewReader(data)

	for r.Len() > 0 {
		var rela elf.Rela32
		pan.Check(binary.Read(r, binary.BigEndian, &rela))

		symIndex := elf.R_SYM32(rela.Info)
		rtype := elf.R_PPC(elf.R_TYPE32(rela.Info))

		if rtype == elf.R_PPC_NONE {
			continue
		}

		var (
			kind  patch.Kind
			width int
		)

		switch rtype {
		case elf.R_PPC_ADDR32:
			kind, width = patch.Absolute, 4

		case elf.R_PPC_ADDR16:
			kind, width = patch.Absolute, 2

		case elf.R_PPC_ADDR16_LO:
			kind, width = patch.AbsoluteLo, 2

		case elf.R_PPC_ADDR16_HI:
			kind, width = patch.AbsoluteHi, 2

		case elf.R_PPC_ADDR16_HA:
			kind, width = patch.AbsoluteHa, 2

		case elf.R_PPC_REL24:
			kind, width = patch.Branch24, 4

		case elf.R_PPC_REL32:
			kind, width = patch.Relative, 4

		default:
			malformed("%s: relocation at %s+0x%x: unsupported type %s", name, s.Name, rela.Off, rtype)
		}

		if int(symIndex) >= len(syms) {
			malformed("%s: relocation at 0x%x: symbol reference %d out of bounds", name, rela.Off, symIndex)
		}
		sym := syms[symIndex]
		if sym.invalid != "" {
			malformed("%s: relocation at 0x%x: %s", name, rela.Off, sym.invalid)
		}

		m.Relocations = append(m.Relocations, patch.Relocation{
			Segment: seg,
			Offset:  rela.Off,
			Target:  sym.target,
			Addend:  rela.Addend,
			Width:   width,
			Kind:    kind,
		})
	}
}
