// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbols

import (
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/game"
	"github.com/smgtools/kamek/internal/mapfile"
	"golang.org/x/xerrors"
)

const testMap = `# RMGE01 externals

OSReport = 0x8024A5C0
  __ct__7NameObjFPCc=0x80045A50   # constructor
sinit$$1 = 0x80001234
garbage line
OSReport = 0x8024a5c4
`

func TestParseMap(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	table, err := ParseMap(strings.NewReader(testMap), "RMGE01.map", warn)
	if err != nil {
		t.Fatal(err)
	}

	for sym, expect := range map[string]uint32{
		"OSReport":           0x8024a5c4,
		"__ct__7NameObjFPCc": 0x80045a50,
		"sinit$$1":           0x80001234,
	} {
		addr, found := table.Lookup(sym)
		if !found || addr != expect {
			t.Errorf("%s: 0x%08x %v", sym, addr, found)
		}
	}

	if table.Len() != 3 {
		t.Error(table.Len())
	}

	if len(warnings) != 1 || !strings.Contains(warnings[0], "garbage line") {
		t.Error(warnings)
	}

	var names []string
	table.Range(func(sym string, _ uint32) bool {
		names = append(names, sym)
		return true
	})
	if strings.Join(names, " ") != "OSReport __ct__7NameObjFPCc sinit$$1" {
		t.Error(names)
	}
}

func TestParseMapOverflow(t *testing.T) {
	_, err := ParseMap(strings.NewReader("big = 0x100000000\n"), "big.map", nil)
	if !xerrors.Is(err, errors.ErrMalformed) {
		t.Fatal(err)
	}
}

func TestNewTableCopies(t *testing.T) {
	m := map[string]uint32{"a": 1}
	table := NewTable("t", m)
	m["a"] = 2

	if addr, _ := table.Lookup("a"); addr != 1 {
		t.Error(addr)
	}
}

func TestLoadSet(t *testing.T) {
	src := mapfile.FS{FS: fstest.MapFS{
		"RMGE01.map": &fstest.MapFile{Data: []byte(testMap)},
		"SB4E01.map": &fstest.MapFile{Data: []byte("GameScene = 0x80451230\n")},
	}}

	set, err := LoadSet(src, []game.ID{game.RMGE, game.SB4E}, nil)
	if err != nil {
		t.Fatal(err)
	}

	table, err := set.Table(game.SB4E)
	if err != nil {
		t.Fatal(err)
	}
	if addr, found := table.Lookup("GameScene"); !found || addr != 0x80451230 {
		t.Error(addr, found)
	}

	if _, err := set.Table(game.RMGJ); !xerrors.Is(err, errors.ErrUnknownGame) {
		t.Error(err)
	}

	if _, err := LoadSet(src, []game.ID{game.RMGP}, nil); err == nil {
		t.Error("missing map loaded")
	}
}
