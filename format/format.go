// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package format serializes linked images.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smgtools/kamek/buffer"
	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/game"
	"github.com/smgtools/kamek/link"
)

// Serialize a linked image.  The layout is used to validate Dol output.  The
// output doesn't share memory with the image.
func Serialize(img *link.Image, t Type, layout game.Layout) (Output, error) {
	switch t {
	case Bin:
		return &Binary{t, copyBytes(img.Data)}, nil

	case Dol:
		if _, ok := layout.Contains(img.Base, img.Size()); !ok {
			return nil, errors.Errorf(errors.InvalidLoadAddress, "image at 0x%08x-0x%08x is not inside a loadable region", img.Base, uint64(img.Base)+uint64(img.Size()))
		}
		return &Binary{t, copyBytes(img.Data)}, nil

	case XML, INI:
		ds := Collect(img)
		lines := make([]string, len(ds))
		for i, d := range ds {
			lines[i] = formatDirective(t, d)
		}
		return &Directives{t, ds, lines}, nil

	default:
		return nil, errors.Errorf(errors.Malformed, "invalid patch type: %d", int(t))
	}
}

// Collect one directive per write of the image, ordered by ascending address.
func Collect(img *link.Image) []Directive {
	var size int
	for _, w := range img.Writes {
		size += int(w.Size)
	}

	data := buffer.NewDynamicHint(make([]byte, 0, size), size)
	ds := make([]Directive, 0, len(img.Writes))

	for _, w := range img.Writes {
		b := data.Extend(int(w.Size))
		copy(b, img.WriteBytes(w))
		ds = append(ds, Directive{img.Addr(w.Offset), b})
	}

	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Addr < ds[j].Addr
	})

	return ds
}

// chunkSize of the next Dolphin entry: the largest naturally aligned 4, 2 or
// 1 bytes.
func chunkSize(addr uint32, remain int) int {
	switch {
	case addr&3 == 0 && remain >= 4:
		return 4

	case addr&1 == 0 && remain >= 2:
		return 2

	default:
		return 1
	}
}

var dolphinSizes = [...]string{1: "byte", 2: "word", 4: "dword"}

func formatDirective(t Type, d Directive) string {
	if t == XML {
		return fmt.Sprintf(`<memory offset="0x%08X" value="%X" />`, d.Addr, d.Data)
	}

	var entries []string

	addr := d.Addr
	for b := d.Data; len(b) > 0; {
		n := chunkSize(addr, len(b))
		entries = append(entries, fmt.Sprintf("0x%08X:%s:0x%X", addr, dolphinSizes[n], b[:n]))
		addr += uint32(n)
		b = b[n:]
	}

	return strings.Join(entries, "\n")
}

func copyBytes(b []byte) []byte {
	return append(make([]byte, 0, len(b)), b...)
}
