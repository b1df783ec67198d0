// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package objfile assembles minimal PowerPC ELF relocatable objects for tests.
package objfile

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Section with content.  NOBITS sections have Size but no Data.
type Section struct {
	Name  string
	Type  elf.SectionType
	Flags elf.SectionFlag
	Align uint32
	Data  []byte
	Size  uint32
}

// Text section.
func Text(data ...byte) Section {
	return Section{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Align: 4, Data: data}
}

// Data section.
func Data(data ...byte) Section {
	return Section{Name: ".data", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Align: 4, Data: data}
}

// BSS section.
func BSS(size uint32) Section {
	return Section{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Align: 4, Size: size}
}

// Symbol definition.  Section is a 1-based index into the object's section
// list, or a special index such as elf.SHN_UNDEF.
type Symbol struct {
	Name    string
	Bind    elf.SymBind
	Type    elf.SymType
	Section elf.SectionIndex
	Value   uint32
}

// Global symbol defined in a section.
func Global(name string, section int, value uint32) Symbol {
	return Symbol{Name: name, Bind: elf.STB_GLOBAL, Type: elf.STT_FUNC, Section: elf.SectionIndex(section), Value: value}
}

// Local symbol defined in a section.
func Local(name string, section int, value uint32) Symbol {
	return Symbol{Name: name, Bind: elf.STB_LOCAL, Type: elf.STT_OBJECT, Section: elf.SectionIndex(section), Value: value}
}

// Undefined symbol.
func Undefined(name string) Symbol {
	return Symbol{Name: name, Bind: elf.STB_GLOBAL, Type: elf.STT_NOTYPE, Section: elf.SHN_UNDEF}
}

// Reloc applies to a 1-based section index and refers to a 1-based symbol
// index.
type Reloc struct {
	Section int
	Offset  uint32
	Symbol  int
	Type    elf.R_PPC
	Addend  int32
}

// Object description.
type Object struct {
	Sections []Section
	Symbols  []Symbol
	Relocs   []Reloc
}

type strtab struct {
	buf bytes.Buffer
}

func (t *strtab) add(s string) uint32 {
	if t.buf.Len() == 0 {
		t.buf.WriteByte(0)
	}
	if s == "" {
		return 0
	}
	off := uint32(t.buf.Len())
	t.buf.WriteString(s)
	t.buf.WriteByte(0)
	return off
}

// Bytes encodes the object.  Symbols should be ordered locals first.
func (o *Object) Bytes() []byte {
	var (
		shstr   strtab
		str     strtab
		headers []elf.Section32
		content [][]byte
	)

	shstr.add("")
	str.add("")

	headers = append(headers, elf.Section32{})
	content = append(content, nil)

	for _, s := range o.Sections {
		size := uint32(len(s.Data))
		if s.Type == elf.SHT_NOBITS {
			size = s.Size
		}
		headers = append(headers, elf.Section32{
			Name:      shstr.add(s.Name),
			Type:      uint32(s.Type),
			Flags:     uint32(s.Flags),
			Size:      size,
			Addralign: s.Align,
		})
		content = append(content, s.Data)
	}

	symtabIndex := len(headers) + len(relocTargets(o.Relocs))
	strtabIndex := symtabIndex + 1
	shstrtabIndex := strtabIndex + 1

	for _, target := range relocTargets(o.Relocs) {
		var rela bytes.Buffer
		for _, r := range o.Relocs {
			if r.Section == target {
				binary.Write(&rela, binary.BigEndian, elf.Rela32{
					Off:    r.Offset,
					Info:   elf.R_INFO32(uint32(r.Symbol), uint32(r.Type)),
					Addend: r.Addend,
				})
			}
		}
		headers = append(headers, elf.Section32{
			Name:      shstr.add(".rela" + o.Sections[target-1].Name),
			Type:      uint32(elf.SHT_RELA),
			Link:      uint32(symtabIndex),
			Info:      uint32(target),
			Addralign: 4,
			Entsize:   12,
			Size:      uint32(rela.Len()),
		})
		content = append(content, rela.Bytes())
	}

	var symtab bytes.Buffer
	binary.Write(&symtab, binary.BigEndian, elf.Sym32{})
	firstGlobal := len(o.Symbols) + 1
	for i, s := range o.Symbols {
		if s.Bind != elf.STB_LOCAL && firstGlobal > i+1 {
			firstGlobal = i + 1
		}
		binary.Write(&symtab, binary.BigEndian, elf.Sym32{
			Name:  str.add(s.Name),
			Value: s.Value,
			Info:  elf.ST_INFO(s.Bind, s.Type),
			Shndx: uint16(s.Section),
		})
	}
	headers = append(headers, elf.Section32{
		Name:      shstr.add(".symtab"),
		Type:      uint32(elf.SHT_SYMTAB),
		Link:      uint32(strtabIndex),
		Info:      uint32(firstGlobal),
		Addralign: 4,
		Entsize:   16,
		Size:      uint32(symtab.Len()),
	})
	content = append(content, symtab.Bytes())

	strName := shstr.add(".strtab")
	shstrName := shstr.add(".shstrtab")

	headers = append(headers, elf.Section32{
		Name:      strName,
		Type:      uint32(elf.SHT_STRTAB),
		Addralign: 1,
		Size:      uint32(str.buf.Len()),
	})
	content = append(content, str.buf.Bytes())

	headers = append(headers, elf.Section32{
		Name:      shstrName,
		Type:      uint32(elf.SHT_STRTAB),
		Addralign: 1,
		Size:      uint32(shstr.buf.Len()),
	})
	content = append(content, shstr.buf.Bytes())

	const headerSize = 52

	var body bytes.Buffer
	for i := range headers {
		if headers[i].Type == uint32(elf.SHT_NOBITS) || headers[i].Type == uint32(elf.SHT_NULL) {
			headers[i].Off = headerSize
			continue
		}
		for body.Len()%4 != 0 {
			body.WriteByte(0)
		}
		headers[i].Off = uint32(headerSize + body.Len())
		body.Write(content[i])
	}
	for body.Len()%4 != 0 {
		body.WriteByte(0)
	}

	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, elf.Header32{
		Ident:     ident,
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_PPC),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     uint32(headerSize + body.Len()),
		Ehsize:    headerSize,
		Shentsize: 40,
		Shnum:     uint16(len(headers)),
		Shstrndx:  uint16(shstrtabIndex),
	})
	out.Write(body.Bytes())
	for _, h := range headers {
		binary.Write(&out, binary.BigEndian, h)
	}

	return out.Bytes()
}

// relocTargets lists the section indexes which have relocations, in order of
// appearance.
func relocTargets(relocs []Reloc) (targets []int) {
	seen := make(map[int]bool)
	for _, r := range relocs {
		if !seen[r.Section] {
			seen[r.Section] = true
			targets = append(targets, r.Section)
		}
	}
	return
}
