// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package link lays out patch modules at a base address and applies their
// relocations.
package link

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/smgtools/kamek/binding"
	"github.com/smgtools/kamek/buffer"
	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/internal/bits"
	"github.com/smgtools/kamek/internal/pan"
	"github.com/smgtools/kamek/patch"
	"golang.org/x/xerrors"
)

const addressSpace = uint64(1) << 32

// Branch displacement field of PowerPC I-form instructions.
const branchMask = 0x03fffffc

// Relocate lays out the modules back to back in input order, starting at
// base, and patches every relocation site.  The modules are consumed: their
// segment data is copied into the image and must not be reused.
//
// Image bytes and writes are a deterministic function of the inputs.
func Relocate(mods []*patch.Module, resolved *binding.Set, base uint32) (img *Image, err error) {
	defer func() {
		if err = pan.Error(recover()); err != nil {
			img = nil
			if xerrors.Is(err, buffer.ErrSizeLimit) {
				err = errors.Errorf(errors.InvalidLoadAddress, "linked image does not fit in address space at base address 0x%08x", base)
			}
		}
	}()

	img = relocate(mods, resolved, base)
	return
}

func relocate(mods []*patch.Module, resolved *binding.Set, base uint32) *Image {
	limit := addressSpace - uint64(base)
	if limit > math.MaxInt {
		limit = math.MaxInt
	}

	var sizeHint uint64
	for _, m := range mods {
		sizeHint += uint64(m.Size())
	}
	if sizeHint > limit {
		pan.Panic(buffer.ErrSizeLimit)
	}

	buf := buffer.NewLimited(make([]byte, 0, int(sizeHint)), int(limit))

	img := &Image{
		Base:    base,
		Modules: make([]Placement, len(mods)),
	}

	starts := make([]uint32, len(mods))

	for i, m := range mods {
		start := uint32(buf.Len())
		starts[i] = start

		p := Placement{
			Name:     m.Name,
			Start:    start,
			Segments: make([]Segment, len(m.Segments)),
		}

		for j, off := range m.Layout() {
			seg := m.Segments[j]
			buf.Extend(int(start + off - uint32(buf.Len())))

			p.Segments[j] = Segment{seg.Name, uint32(buf.Len()), uint32(len(seg.Data))}
			if len(seg.Data) > 0 {
				img.Writes = append(img.Writes, Write{
					Offset: uint32(buf.Len()),
					Size:   uint32(len(seg.Data)),
				})
				buf.PutBytes(seg.Data)
			}
		}

		p.Size = uint32(buf.Len()) - start
		img.Modules[i] = p

		for _, e := range m.Exports {
			img.Labels = append(img.Labels, Label{e.Name, base + start + e.Offset})
		}
	}

	img.Data = buf.Bytes()

	for i, m := range mods {
		for j := range m.Relocations {
			r := &m.Relocations[j]
			if r.Segment < 0 || r.Segment >= len(m.Segments) {
				pan.Panic(errors.Errorf(errors.Malformed, "%s: relocation %d refers to segment %d of %d", m.Name, j, r.Segment, len(m.Segments)))
			}

			segOffset := img.Modules[i].Segments[r.Segment].Offset
			segSize := len(m.Segments[r.Segment].Data)

			checkWidth(m, r)
			if uint64(r.Offset)+uint64(r.Width) > uint64(segSize) {
				pan.Panic(errors.Errorf(errors.OffsetOutOfBounds, "%s: relocation at 0x%x+%d exceeds segment %s of %d bytes", m.Name, r.Offset, r.Width, m.Segments[r.Segment].Name, segSize))
			}

			site := segOffset + r.Offset
			s := targetAddr(m, r, resolved, base, starts, i)
			apply(m, r, img.Data[site:site+uint32(r.Width)], s, base+site)
		}
	}

	sort.SliceStable(img.Labels, func(i, j int) bool {
		a, b := img.Labels[i], img.Labels[j]
		if a.Addr != b.Addr {
			return a.Addr < b.Addr
		}
		return a.Name < b.Name
	})

	return img
}

func checkWidth(m *patch.Module, r *patch.Relocation) {
	var ok bool

	switch r.Kind {
	case patch.Absolute, patch.Relative:
		ok = r.Width == 1 || r.Width == 2 || r.Width == 4

	case patch.AbsoluteLo, patch.AbsoluteHi, patch.AbsoluteHa:
		ok = r.Width == 2

	case patch.Branch24:
		ok = r.Width == 4
	}

	if !ok {
		pan.Panic(errors.Errorf(errors.Malformed, "%s: %s relocation with width %d", m.Name, r.Kind, r.Width))
	}
}

func targetAddr(m *patch.Module, r *patch.Relocation, resolved *binding.Set, base uint32, starts []uint32, index int) uint32 {
	switch {
	case r.Target.Symbol != "":
		var sym binding.Symbol
		found := false
		if resolved != nil {
			sym, found = resolved.Lookup(r.Target.Symbol)
		}
		if !found {
			pan.Panic(errors.Errorf(errors.UnresolvedSymbol, "%s: unresolved symbol %s", m.Name, r.Target.Symbol))
		}
		if sym.Module >= len(starts) {
			pan.Panic(errors.Errorf(errors.UnresolvedSymbol, "%s: symbol %s is defined by module %d of %d", m.Name, r.Target.Symbol, sym.Module, len(starts)))
		}
		return sym.Address(base, starts)

	case r.Target.Local:
		return base + starts[index] + r.Target.Value

	default:
		return r.Target.Value
	}
}

func apply(m *patch.Module, r *patch.Relocation, site []byte, s, p uint32) {
	value := s + uint32(r.Addend)

	switch r.Kind {
	case patch.Absolute:
		putUint(site, value)

	case patch.Relative:
		delta := int64(s) + int64(r.Addend) - int64(p)
		if !bits.FitsSigned(delta, r.Width*8) {
			outOfRange(m, r, delta)
		}
		putUint(site, uint32(delta))

	case patch.AbsoluteLo:
		putUint(site, value&0xffff)

	case patch.AbsoluteHi:
		putUint(site, value>>16)

	case patch.AbsoluteHa:
		putUint(site, (value+0x8000)>>16)

	case patch.Branch24:
		delta := int64(s) + int64(r.Addend) - int64(p)
		if delta&3 != 0 || !bits.FitsSigned(delta, 26) {
			outOfRange(m, r, delta)
		}
		insn := binary.BigEndian.Uint32(site)
		insn = insn&^branchMask | uint32(delta)&branchMask
		binary.BigEndian.PutUint32(site, insn)
	}
}

func outOfRange(m *patch.Module, r *patch.Relocation, delta int64) {
	pan.Panic(errors.Errorf(errors.RelocationOutOfRange, "%s: %s relocation to %s at segment offset 0x%x: displacement %d does not fit in %d bytes", m.Name, r.Kind, r.Target, r.Offset, delta, r.Width))
}

// putUint stores the low len(b) bytes of value in big-endian order.
func putUint(b []byte, value uint32) {
	switch len(b) {
	case 1:
		b[0] = uint8(value)

	case 2:
		binary.BigEndian.PutUint16(b, uint16(value))

	case 4:
		binary.BigEndian.PutUint32(b, value)
	}
}
