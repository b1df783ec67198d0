// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patch

import (
	"fmt"
	"strconv"
)

// Kind of relocation.
type Kind int

const (
	// Absolute writes S+A truncated to Width bytes.
	Absolute Kind = iota

	// Relative writes S+A-P, which must fit in Width bytes as a signed value.
	Relative

	// AbsoluteLo writes the low half of S+A.  Width is 2.
	AbsoluteLo

	// AbsoluteHi writes the high half of S+A.  Width is 2.
	AbsoluteHi

	// AbsoluteHa writes the high half of S+A adjusted for a signed low half
	// (the PowerPC @ha operator).  Width is 2.
	AbsoluteHa

	// Branch24 merges S+A-P into the displacement field of a PowerPC branch
	// instruction.  Width is 4.
	Branch24
)

var kindNames = [...]string{
	Absolute:   "absolute",
	Relative:   "relative",
	AbsoluteLo: "absolute@l",
	AbsoluteHi: "absolute@h",
	AbsoluteHa: "absolute@ha",
	Branch24:   "branch24",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return strconv.Itoa(int(k))
}

// Target of a relocation.  Exactly one of the forms applies: a named symbol
// (Symbol is not empty), an offset within the relocated module (Local is
// true), or a literal address.
type Target struct {
	Symbol string
	Local  bool
	Value  uint32 // Module-local offset or literal address.
}

// SymbolTarget refers to a named symbol.
func SymbolTarget(name string) Target { return Target{Symbol: name} }

// LocalTarget refers to an offset within the module.
func LocalTarget(offset uint32) Target { return Target{Local: true, Value: offset} }

// AddressTarget refers to a literal address.
func AddressTarget(addr uint32) Target { return Target{Value: addr} }

func (t Target) String() string {
	switch {
	case t.Symbol != "":
		return t.Symbol

	case t.Local:
		return fmt.Sprintf(".+0x%x", t.Value)

	default:
		return fmt.Sprintf("0x%08x", t.Value)
	}
}

// Relocation describes a site which is patched with a resolved address.
type Relocation struct {
	Segment int    // Index of the owning segment.
	Offset  uint32 // Site offset within the segment.
	Target  Target
	Addend  int32
	Width   int // 1, 2 or 4 bytes.
	Kind    Kind
}
