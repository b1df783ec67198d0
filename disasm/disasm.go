// Copyright (c) 2016 Timo Savola.
// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm prints PowerPC listings of linked images.
package disasm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bnagy/gapstone"

	"github.com/smgtools/kamek/link"
)

// Code reports whether a segment contains instructions.
func Code(segmentName string) bool {
	return segmentName == ".text" || strings.HasPrefix(segmentName, ".text.") || segmentName == ".init"
}

// Fprint disassembles the code segments of the image.  Exported symbols and
// branch targets are labeled.
func Fprint(w io.Writer, img *link.Image) (err error) {
	engine, err := gapstone.New(gapstone.CS_ARCH_PPC, gapstone.CS_MODE_32|gapstone.CS_MODE_BIG_ENDIAN)
	if err != nil {
		return
	}
	defer engine.Close()

	targets := make(map[uint]string)
	for _, l := range img.Labels {
		if _, found := targets[uint(l.Addr)]; !found {
			targets[uint(l.Addr)] = l.Name
		}
	}

	var insns []gapstone.Instruction

	for _, m := range img.Modules {
		for _, seg := range m.Segments {
			if !Code(seg.Name) || seg.Size == 0 {
				continue
			}

			text := img.Data[seg.Offset : seg.Offset+seg.Size]
			addr := img.Addr(seg.Offset)

			if _, found := targets[uint(addr)]; !found {
				targets[uint(addr)] = fmt.Sprintf("%s.%s", m.Name, strings.TrimPrefix(seg.Name, "."))
			}

			var segInsns []gapstone.Instruction
			segInsns, err = engine.Disasm(text, uint64(addr), 0)
			if err != nil {
				return
			}
			insns = append(insns, segInsns...)
		}
	}

	sequence := 0

	for i := range insns {
		insn := insns[i]

		if !strings.HasPrefix(insn.Mnemonic, "b") {
			continue
		}

		operands := strings.Split(insn.OpStr, ", ")
		last := operands[len(operands)-1]

		addr, err := strconv.ParseUint(last, 0, 32)
		if err != nil {
			continue // Register operand.
		}

		name, found := targets[uint(addr)]
		if !found {
			name = fmt.Sprintf(".L%d", sequence)
			sequence++

			targets[uint(addr)] = name
		}

		operands[len(operands)-1] = name
		insns[i].OpStr = strings.Join(operands, ", ")
	}

	for _, insn := range insns {
		if name, found := targets[insn.Address]; found {
			if !strings.HasPrefix(name, ".") {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s:\n", name)
		}

		fmt.Fprintf(w, "%08x\t%s\t%s\n", insn.Address, insn.Mnemonic, insn.OpStr)
	}

	fmt.Fprintln(w)
	return
}
