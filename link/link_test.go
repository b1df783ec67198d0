// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/smgtools/kamek/binding"
	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/patch"
	"github.com/smgtools/kamek/symbols"
	"golang.org/x/xerrors"
)

const testBase = 0x80001800

var builtin = symbols.NewTable("RMGE01", map[string]uint32{
	"OSReport": 0x8024a5c0,
})

func testModules() []*patch.Module {
	a := &patch.Module{
		Name:     "a",
		Segments: []patch.Segment{{Name: ".text", Align: 4, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}}},
		Exports:  []patch.Export{{Name: "S", Offset: 4}},
	}

	b := &patch.Module{
		Name: "b",
		Segments: []patch.Segment{
			{Name: ".text", Align: 4, Data: []byte{0x48, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
			{Name: ".bss", Align: 8, Data: []byte{}},
		},
		Relocations: []patch.Relocation{
			{Offset: 0, Target: patch.SymbolTarget("OSReport"), Width: 4, Kind: patch.Branch24},
			{Offset: 4, Target: patch.SymbolTarget("S"), Width: 4, Kind: patch.Absolute},
			{Offset: 8, Target: patch.LocalTarget(8), Width: 2, Kind: patch.AbsoluteHa},
			{Offset: 10, Target: patch.LocalTarget(8), Width: 2, Kind: patch.AbsoluteLo},
			{Offset: 12, Target: patch.SymbolTarget("S"), Width: 2, Kind: patch.Relative},
		},
	}

	return []*patch.Module{a, b}
}

func link(t testing.TB, mods []*patch.Module, base uint32) (*Image, error) {
	t.Helper()

	resolved, err := binding.Resolve(mods, builtin)
	if err != nil {
		t.Fatal(err)
	}
	return Relocate(mods, resolved, base)
}

func TestRelocate(t *testing.T) {
	img, err := link(t, testModules(), testBase)
	if err != nil {
		t.Fatal(err)
	}

	expect := []byte{
		1, 2, 3, 4, 5, 6, 7, 8,
		0x48, 0x24, 0x8d, 0xb9, // bl OSReport
		0x80, 0x00, 0x18, 0x04, // S
		0x80, 0x00, // .+8@ha
		0x18, 0x10, // .+8@l
		0xff, 0xf0, // S-.
		0x00, 0x00,
	}
	if !bytes.Equal(img.Data, expect) {
		t.Errorf("data:\n% x\nexpected:\n% x", img.Data, expect)
	}

	if img.Size() != 24 || img.Addr(8) != 0x80001808 {
		t.Error(img.Size(), img.Addr(8))
	}

	writes := []Write{{0, 8}, {8, 16}}
	if !reflect.DeepEqual(img.Writes, writes) {
		t.Error(img.Writes)
	}

	if p := img.Modules[1]; p.Name != "b" || p.Start != 8 || p.Size != 16 || !reflect.DeepEqual(p.Segments, []Segment{{".text", 8, 16}, {".bss", 24, 0}}) {
		t.Error(p)
	}

	if !reflect.DeepEqual(img.Labels, []Label{{"S", 0x80001804}}) {
		t.Error(img.Labels)
	}
}

func TestDeterminism(t *testing.T) {
	img1, err := link(t, testModules(), testBase)
	if err != nil {
		t.Fatal(err)
	}

	img2, err := link(t, testModules(), testBase)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(img1, img2) {
		t.Error("images differ")
	}
}

func TestRelocateErrors(t *testing.T) {
	for _, test := range []struct {
		name  string
		reloc patch.Relocation
		base  uint32
		size  int
		err   error
	}{
		{
			name:  "relative-byte",
			reloc: patch.Relocation{Target: patch.AddressTarget(testBase + 300), Width: 1, Kind: patch.Relative},
			base:  testBase,
			size:  4,
			err:   errors.ErrRelocationOutOfRange,
		},
		{
			name:  "relative-half",
			reloc: patch.Relocation{Target: patch.AddressTarget(testBase - 0x8001), Width: 2, Kind: patch.Relative},
			base:  testBase,
			size:  4,
			err:   errors.ErrRelocationOutOfRange,
		},
		{
			name:  "branch-unaligned",
			reloc: patch.Relocation{Target: patch.AddressTarget(testBase + 2), Width: 4, Kind: patch.Branch24},
			base:  testBase,
			size:  4,
			err:   errors.ErrRelocationOutOfRange,
		},
		{
			name:  "branch-far",
			reloc: patch.Relocation{Target: patch.AddressTarget(0x90000000), Width: 4, Kind: patch.Branch24},
			base:  testBase,
			size:  4,
			err:   errors.ErrRelocationOutOfRange,
		},
		{
			name:  "site",
			reloc: patch.Relocation{Offset: 2, Target: patch.AddressTarget(0), Width: 4, Kind: patch.Absolute},
			base:  testBase,
			size:  4,
			err:   errors.ErrOffsetOutOfBounds,
		},
		{
			name:  "width",
			reloc: patch.Relocation{Target: patch.AddressTarget(0), Width: 3, Kind: patch.Absolute},
			base:  testBase,
			size:  4,
			err:   errors.ErrMalformed,
		},
		{
			name:  "half-width",
			reloc: patch.Relocation{Target: patch.AddressTarget(0), Width: 4, Kind: patch.AbsoluteHa},
			base:  testBase,
			size:  4,
			err:   errors.ErrMalformed,
		},
		{
			name:  "segment",
			reloc: patch.Relocation{Segment: 1, Target: patch.AddressTarget(0), Width: 4},
			base:  testBase,
			size:  4,
			err:   errors.ErrMalformed,
		},
		{
			name:  "address-space",
			reloc: patch.Relocation{Target: patch.AddressTarget(0), Width: 4},
			base:  0xfffffffc,
			size:  8,
			err:   errors.ErrInvalidLoadAddress,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			m := &patch.Module{
				Name:        test.name,
				Segments:    []patch.Segment{{Name: ".text", Data: make([]byte, test.size)}},
				Relocations: []patch.Relocation{test.reloc},
			}

			img, err := Relocate([]*patch.Module{m}, nil, test.base)
			if !xerrors.Is(err, test.err) {
				t.Errorf("error: %v", err)
			}
			if img != nil {
				t.Error("image returned with error")
			}
		})
	}
}

func TestRelocateAddressSpaceEnd(t *testing.T) {
	m := &patch.Module{
		Name:        "end",
		Segments:    []patch.Segment{{Name: ".data", Data: make([]byte, 4)}},
		Relocations: []patch.Relocation{{Target: patch.AddressTarget(0x12345678), Width: 4}},
	}

	img, err := Relocate([]*patch.Module{m}, nil, 0xfffffffc)
	if err != nil {
		t.Fatal(err)
	}
	if binary.BigEndian.Uint32(img.Data) != 0x12345678 {
		t.Errorf("% x", img.Data)
	}
}

func TestRelocateEmpty(t *testing.T) {
	img, err := Relocate(nil, nil, testBase)
	if err != nil {
		t.Fatal(err)
	}
	if img.Size() != 0 || len(img.Writes) != 0 {
		t.Error(img)
	}
}

func BenchmarkRelocate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := link(b, testModules(), testBase); err != nil {
			b.Fatal(err)
		}
	}
}
