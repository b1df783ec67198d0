// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patch

import (
	"reflect"
	"testing"
)

func TestArgument(t *testing.T) {
	var none Argument
	if none.Type() != ArgNone {
		t.Error(none.Type())
	}
	if _, ok := none.Str(); ok {
		t.Error("none as string")
	}
	if _, ok := none.Int(); ok {
		t.Error("none as int")
	}

	s := String("Hello")
	if v, ok := s.Str(); !ok || v != "Hello" {
		t.Error(v, ok)
	}
	if _, ok := s.Int(); ok {
		t.Error("string as int")
	}

	n := Int(-5)
	if v, ok := n.Int(); !ok || v != -5 {
		t.Error(v, ok)
	}
	if _, ok := n.Str(); ok {
		t.Error("int as string")
	}

	if s.String() != `"Hello"` || n.String() != "-5" || none.String() != "none" {
		t.Error(s, n, none)
	}
}

func TestLayout(t *testing.T) {
	m := &Module{
		Segments: []Segment{
			{Name: ".text", Align: 4, Data: make([]byte, 6)},
			{Name: ".rodata", Align: 8, Data: make([]byte, 3)},
			{Name: ".data", Align: 1, Data: make([]byte, 2)},
			{Name: ".bss", Align: 4},
		},
	}

	if layout := m.Layout(); !reflect.DeepEqual(layout, []uint32{0, 8, 11, 16}) {
		t.Error(layout)
	}
	if size := m.Size(); size != 16 {
		t.Error(size)
	}

	if size := new(Module).Size(); size != 0 {
		t.Error(size)
	}
}

func TestImports(t *testing.T) {
	m := &Module{
		Relocations: []Relocation{
			{Target: SymbolTarget("OSReport"), Width: 4},
			{Target: LocalTarget(8), Width: 4},
			{Target: SymbolTarget("sprintf"), Width: 4},
			{Target: AddressTarget(0x80001800), Width: 4},
			{Target: SymbolTarget("OSReport"), Width: 2, Kind: AbsoluteHa},
		},
	}

	expect := []Import{
		{Name: "OSReport", Sites: []int{0, 4}},
		{Name: "sprintf", Sites: []int{2}},
	}

	if imports := m.Imports(); !reflect.DeepEqual(imports, expect) {
		t.Error(imports)
	}
}
