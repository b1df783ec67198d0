// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package patch contains the in-memory representation of compiled patch
// modules.
package patch

import (
	"github.com/smgtools/kamek/internal/bits"
)

// Segment of code or data.  Segments are laid out in order, each aligned to
// its Align (power of two; zero means 1).
type Segment struct {
	Name  string
	Align uint32
	Data  []byte
}

// Export defines a symbol at a module-local offset (relative to the start of
// the module's first segment).
type Export struct {
	Name   string
	Offset uint32
}

// Import is a symbol name and the indexes of the relocations which refer to
// it.
type Import struct {
	Name  string
	Sites []int
}

// Module is a relocatable unit of code and data.  It is consumed by linking.
type Module struct {
	Name        string
	Segments    []Segment
	Exports     []Export
	Relocations []Relocation
}

// Layout calculates the module-local offset of each segment.
func (m *Module) Layout() []uint32 {
	offsets := make([]uint32, len(m.Segments))
	var offset uint32

	for i, seg := range m.Segments {
		offset = bits.Align(offset, seg.Align)
		offsets[i] = offset
		offset += uint32(len(seg.Data))
	}

	return offsets
}

// Size of the laid-out module in bytes.
func (m *Module) Size() uint32 {
	n := len(m.Segments)
	if n == 0 {
		return 0
	}
	return m.Layout()[n-1] + uint32(len(m.Segments[n-1].Data))
}

// Imports lists the symbols referenced by relocations, in order of first
// reference.
func (m *Module) Imports() []Import {
	var imports []Import
	index := make(map[string]int)

	for i, r := range m.Relocations {
		if r.Target.Symbol == "" {
			continue
		}

		j, found := index[r.Target.Symbol]
		if !found {
			j = len(imports)
			index[r.Target.Symbol] = j
			imports = append(imports, Import{Name: r.Target.Symbol})
		}
		imports[j].Sites = append(imports[j].Sites, i)
	}

	return imports
}
