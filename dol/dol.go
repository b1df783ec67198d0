// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dol reads and writes GameCube/Wii DOL executables.
package dol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/smgtools/kamek/buffer"
	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/game"
	"github.com/smgtools/kamek/internal/bits"
	"golang.org/x/xerrors"
)

const (
	NumText    = 7
	NumData    = 11
	HeaderSize = 0x100

	sectionAlign = 32
)

// Header is the on-disk file header.  Multi-byte fields are big-endian.
type Header struct {
	TextOffsets [NumText]uint32
	DataOffsets [NumData]uint32
	TextAddrs   [NumText]uint32
	DataAddrs   [NumData]uint32
	TextSizes   [NumText]uint32
	DataSizes   [NumData]uint32
	BSSAddr     uint32
	BSSSize     uint32
	Entry       uint32
	_           [7]uint32
}

// Section of initialized memory.
type Section struct {
	Addr uint32
	Data []byte
}

func (s Section) End() uint64 {
	return uint64(s.Addr) + uint64(len(s.Data))
}

// File is a parsed executable.  Absent (empty) sections are omitted.
type File struct {
	Text    []Section
	Data    []Section
	BSSAddr uint32
	BSSSize uint32
	Entry   uint32
}

// Parse an executable image.  The sections are copied.
func Parse(data []byte) (*File, error) {
	var h Header

	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &h); err != nil {
		if err == io.EOF || xerrors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.Wrap(errors.Malformed, io.ErrUnexpectedEOF, "dol: truncated header")
		}
		return nil, err
	}

	f := &File{
		BSSAddr: h.BSSAddr,
		BSSSize: h.BSSSize,
		Entry:   h.Entry,
	}

	var err error
	if f.Text, err = readSections(data, h.TextOffsets[:], h.TextAddrs[:], h.TextSizes[:]); err != nil {
		return nil, err
	}
	if f.Data, err = readSections(data, h.DataOffsets[:], h.DataAddrs[:], h.DataSizes[:]); err != nil {
		return nil, err
	}

	return f, nil
}

func readSections(data []byte, offsets, addrs, sizes []uint32) (sections []Section, err error) {
	for i, size := range sizes {
		if size == 0 {
			continue
		}

		offset := offsets[i]
		if offset < HeaderSize || uint64(offset)+uint64(size) > uint64(len(data)) {
			err = errors.Errorf(errors.Malformed, "dol: section at file offset 0x%x with size 0x%x is outside of file", offset, size)
			return
		}

		sections = append(sections, Section{
			Addr: addrs[i],
			Data: append([]byte(nil), data[offset:offset+size]...),
		})
	}
	return
}

// Regions lists the memory ranges of the sections and BSS, ordered by
// address.
func (f *File) Regions() game.Layout {
	var l game.Layout

	for i, s := range f.Text {
		l = append(l, game.Region{Name: fmt.Sprintf(".text%d", i), Start: s.Addr, End: s.End()})
	}
	for i, s := range f.Data {
		l = append(l, game.Region{Name: fmt.Sprintf(".data%d", i), Start: s.Addr, End: s.End()})
	}
	if f.BSSSize > 0 {
		l = append(l, game.Region{Name: ".bss", Start: f.BSSAddr, End: uint64(f.BSSAddr) + uint64(f.BSSSize)})
	}

	sort.SliceStable(l, func(i, j int) bool {
		return l[i].Start < l[j].Start
	})

	return l
}

// Inject code as a new text section, or as a data section if all text
// sections are in use.  The range must not overlap existing sections.
func (f *File) Inject(addr uint32, code []byte) error {
	if len(code) == 0 {
		return nil
	}

	end := uint64(addr) + uint64(len(code))
	if end > 1<<32 {
		return errors.Errorf(errors.InvalidLoadAddress, "dol: injected code at 0x%08x exceeds address space", addr)
	}

	for _, r := range f.Regions() {
		if r.Name == ".bss" {
			continue // Initialized sections may overlap BSS.
		}
		if uint64(addr) < r.End && end > uint64(r.Start) {
			return errors.Errorf(errors.InvalidLoadAddress, "dol: injected code at 0x%08x-0x%08x overlaps %s", addr, end, r.Name)
		}
	}

	s := Section{addr, append([]byte(nil), code...)}

	switch {
	case len(f.Text) < NumText:
		f.Text = append(f.Text, s)

	case len(f.Data) < NumData:
		f.Data = append(f.Data, s)

	default:
		return errors.New(errors.Malformed, "dol: no free section slots")
	}

	return nil
}

// Bytes encodes the executable.  Sections are stored in header order, each
// aligned to 32 bytes.
func (f *File) Bytes() []byte {
	var h Header

	h.BSSAddr = f.BSSAddr
	h.BSSSize = f.BSSSize
	h.Entry = f.Entry

	offset := uint32(HeaderSize)
	place := func(s Section) (uint32, uint32, uint32) {
		offset = bits.Align(offset, sectionAlign)
		o := offset
		offset += uint32(len(s.Data))
		return o, s.Addr, uint32(len(s.Data))
	}

	for i, s := range f.Text {
		h.TextOffsets[i], h.TextAddrs[i], h.TextSizes[i] = place(s)
	}
	for i, s := range f.Data {
		h.DataOffsets[i], h.DataAddrs[i], h.DataSizes[i] = place(s)
	}

	buf := buffer.NewDynamicHint(make([]byte, 0, offset), int(offset))
	binary.Write(buf, binary.BigEndian, &h)

	put := func(s Section, o uint32) {
		buf.Extend(int(o) - buf.Len())
		buf.PutBytes(s.Data)
	}

	for i, s := range f.Text {
		put(s, h.TextOffsets[i])
	}
	for i, s := range f.Data {
		put(s, h.DataOffsets[i])
	}

	return buf.Bytes()
}

// WriteTo writes the encoded executable.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}
