// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"reflect"
	"strings"
	"testing"

	"github.com/smgtools/kamek"
	"github.com/smgtools/kamek/patch"
	"github.com/smgtools/kamek/symbols"
)

func TestParsePatch(t *testing.T) {
	for s, expect := range map[string]kamek.Patch{
		"Plain":                {ID: "Plain"},
		"Lives=99":             {ID: "Lives", Args: []patch.Argument{patch.Int(99)}},
		"Lives=0x10,-1":        {ID: "Lives", Args: []patch.Argument{patch.Int(16), patch.Int(-1)}},
		"Galaxy=RedBlueGalaxy": {ID: "Galaxy", Args: []patch.Argument{patch.String("RedBlueGalaxy")}},
		"Name=s:42":            {ID: "Name", Args: []patch.Argument{patch.String("42")}},
		"Count=i:7":            {ID: "Count", Args: []patch.Argument{patch.Int(7)}},
		"Empty=":               {ID: "Empty", Args: []patch.Argument{patch.String("")}},
	} {
		p, err := parsePatch(s)
		if err != nil {
			t.Errorf("%s: %v", s, err)
			continue
		}
		if !reflect.DeepEqual(p, expect) {
			t.Errorf("%s: %#v", s, p)
		}
	}

	if _, err := parsePatch("Count=i:x"); err == nil {
		t.Error("invalid integer accepted")
	}
}

func TestWriteSymbols(t *testing.T) {
	table := symbols.NewTable("RMGE01.map", map[string]uint32{
		"OSReport": 0x8024a5c0,
		"GXBegin":  0x80300000,
	})

	var buf strings.Builder
	if err := writeSymbols(&buf, table); err != nil {
		t.Fatal(err)
	}
	if s := buf.String(); s != "GXBegin = 0x80300000\nOSReport = 0x8024A5C0\n" {
		t.Error(s)
	}
}
